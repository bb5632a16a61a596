// Package memory хранит данные в памяти процесса (STORAGE=memory и тесты)
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sadhana/backend/models"
	"sadhana/backend/repository"
	"sadhana/backend/utils"
)

type db struct {
	mu         sync.RWMutex
	users      map[string]models.User
	activities map[string]models.Activity
	schedule   map[models.Weekday]models.BhogaAssignment
	statuses   map[statusKey]models.PreachingStatus
	now        func() time.Time
}

type statusKey struct {
	date, userID, contact string
}

// New возвращает набор репозиториев над общим хранилищем
func New() *repository.Store {
	d := &db{
		users:      make(map[string]models.User),
		activities: make(map[string]models.Activity),
		schedule:   make(map[models.Weekday]models.BhogaAssignment),
		statuses:   make(map[statusKey]models.PreachingStatus),
		now:        func() time.Time { return time.Now().UTC() },
	}
	return &repository.Store{
		Users:      &userRepo{d},
		Activities: &activityRepo{d},
		Schedule:   &scheduleRepo{d},
		Statuses:   &statusRepo{d},
	}
}

type userRepo struct{ *db }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = utils.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: %w", repository.ErrConflict)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := r.users[user.ID]; exists {
		return fmt.Errorf("create user: %w", repository.ErrConflict)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", repository.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = utils.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", repository.ErrNotFound)
}

func (r *userRepo) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

type activityRepo struct{ *db }

func (r *activityRepo) List(_ context.Context, filter repository.ActivityFilter) ([]models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Activity
	for _, a := range r.activities {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if !filter.DateRange.Contains(a.Date) {
			continue
		}
		if filter.BhogaOnly && !a.BhogaOffering {
			continue
		}
		out = append(out, r.withUser(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *activityRepo) GetByID(_ context.Context, id string) (*models.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, fmt.Errorf("get activity: %w", repository.ErrNotFound)
	}
	a = r.withUser(a)
	return &a, nil
}

func (r *activityRepo) Create(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.activities {
		if a.UserID == activity.UserID && a.Date == activity.Date {
			return fmt.Errorf("create activity: %w", repository.ErrConflict)
		}
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := r.now()
	activity.CreatedAt, activity.UpdatedAt = now, now
	r.activities[activity.ID] = cloneActivity(*activity)
	return nil
}

func (r *activityRepo) Update(_ context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[activity.ID]
	if !ok {
		return fmt.Errorf("update activity: %w", repository.ErrNotFound)
	}
	updated := cloneActivity(*activity)
	updated.UserID, updated.Date, updated.CreatedAt = stored.UserID, stored.Date, stored.CreatedAt
	updated.UpdatedAt = r.now()
	updated.User = nil
	r.activities[activity.ID] = updated
	activity.UpdatedAt = updated.UpdatedAt
	return nil
}

// withUser повторяет Preload("User") из gorm-реализации
func (d *db) withUser(a models.Activity) models.Activity {
	a = cloneActivity(a)
	if u, ok := d.users[a.UserID]; ok {
		a.User = &u
	}
	return a
}

func cloneActivity(a models.Activity) models.Activity {
	if a.PreachingContacts != nil {
		contacts := make([]models.PreachingContact, len(a.PreachingContacts))
		copy(contacts, a.PreachingContacts)
		a.PreachingContacts = contacts
	}
	return a
}

type scheduleRepo struct{ *db }

func (r *scheduleRepo) Get(_ context.Context) ([]models.BhogaAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.BhogaAssignment, 0, len(r.schedule))
	for _, d := range models.EditableWeekdays {
		row, ok := r.schedule[d]
		if !ok {
			continue
		}
		if row.UserID != nil {
			if u, ok := r.users[*row.UserID]; ok {
				row.User = &u
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *scheduleRepo) Replace(_ context.Context, rows []models.BhogaAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	next := make(map[models.Weekday]models.BhogaAssignment, len(rows))
	for _, row := range rows {
		row.User = nil
		row.UpdatedAt = now
		next[row.Weekday] = row
	}
	r.schedule = next
	return nil
}

type statusRepo struct{ *db }

func (r *statusRepo) ListByDate(_ context.Context, date string) ([]models.PreachingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.PreachingStatus
	for k, s := range r.statuses {
		if k.date == date {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ContactNumber < out[j].ContactNumber
	})
	return out, nil
}

func (r *statusRepo) Upsert(_ context.Context, statuses []models.PreachingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, s := range statuses {
		k := statusKey{s.Date, s.UserID, s.ContactNumber}
		if existing, ok := r.statuses[k]; ok {
			s.ID, s.CreatedAt = existing.ID, existing.CreatedAt
		} else {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		r.statuses[k] = s
	}
	return nil
}
