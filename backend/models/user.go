package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role задаётся при создании и дальше не меняется
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Ref возвращает публичную ссылку на пользователя без чувствительных данных
func (u User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserRef используется в расписании и в отчётах
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}
