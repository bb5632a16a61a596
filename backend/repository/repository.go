// Package repository описывает доступ к данным. Реализация на gorm живёт здесь же,
// реализация в памяти - в пакете memory.
package repository

import (
	"context"
	"errors"

	"sadhana/backend/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// ActivityFilter - условия выборки отчётов. Пустые поля не ограничивают выборку.
type ActivityFilter struct {
	UserID    string
	DateRange models.DateRange
	BhogaOnly bool
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type ActivityRepository interface {
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, error)
	GetByID(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
}

type ScheduleRepository interface {
	Get(ctx context.Context) ([]models.BhogaAssignment, error)
	// Replace заменяет все строки расписания в одной транзакции
	Replace(ctx context.Context, rows []models.BhogaAssignment) error
}

type StatusRepository interface {
	ListByDate(ctx context.Context, date string) ([]models.PreachingStatus, error)
	// Upsert вставляет или обновляет записи по ключу (date, user_id, contact_number)
	Upsert(ctx context.Context, statuses []models.PreachingStatus) error
}

// Store объединяет все репозитории приложения
type Store struct {
	Users      UserRepository
	Activities ActivityRepository
	Schedule   ScheduleRepository
	Statuses   StatusRepository
}
