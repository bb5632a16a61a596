package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sadhana/backend/models"
	"sadhana/backend/utils"
)

// NewGormStore собирает репозитории поверх одного подключения
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:      &GormUserRepository{DB: db},
		Activities: &GormActivityRepository{DB: db},
		Schedule:   &GormScheduleRepository{DB: db},
		Statuses:   &GormStatusRepository{DB: db},
	}
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

type GormUserRepository struct {
	DB *gorm.DB
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = utils.NormalizeEmail(user.Email)
	return translate(r.DB.WithContext(ctx).Create(user).Error, "create user")
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err, "get user by email")
	}
	return &user, nil
}

func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

type GormActivityRepository struct {
	DB *gorm.DB
}

func (r *GormActivityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.Activity, error) {
	query := r.DB.WithContext(ctx).Preload("User")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.DateRange.IsSet() {
		query = query.Where("date BETWEEN ? AND ?", filter.DateRange.Start, filter.DateRange.End)
	}
	if filter.BhogaOnly {
		query = query.Where("bhoga_offering = ?", true)
	}

	var activities []models.Activity
	if err := query.Order("date DESC, created_at DESC").Find(&activities).Error; err != nil {
		return nil, translate(err, "list activities")
	}
	return activities, nil
}

func (r *GormActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	if err := r.DB.WithContext(ctx).Preload("User").First(&activity, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get activity")
	}
	return &activity, nil
}

func (r *GormActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return translate(r.DB.WithContext(ctx).Omit("User").Create(activity).Error, "create activity")
}

func (r *GormActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	result := r.DB.WithContext(ctx).
		Model(&models.Activity{ID: activity.ID}).
		Select(activityMutableColumns).
		Updates(activity)
	if result.Error != nil {
		return translate(result.Error, "update activity")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update activity: %w", ErrNotFound)
	}
	return nil
}

// Владелец и дата записи после создания не меняются
var activityMutableColumns = []string{
	"mangala_aarti", "mangala_aarti_reason", "japa_rounds",
	"lecture_duration", "lecture_description", "reading_duration", "reading_description",
	"wake_up_time", "sleep_time", "bhoga_offering", "preaching_contacts", "updated_at",
}

type GormScheduleRepository struct {
	DB *gorm.DB
}

func (r *GormScheduleRepository) Get(ctx context.Context) ([]models.BhogaAssignment, error) {
	var rows []models.BhogaAssignment
	if err := r.DB.WithContext(ctx).Preload("User").Find(&rows).Error; err != nil {
		return nil, translate(err, "get bhoga schedule")
	}
	return rows, nil
}

func (r *GormScheduleRepository) Replace(ctx context.Context, rows []models.BhogaAssignment) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.BhogaAssignment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		now := time.Now().UTC()
		for i := range rows {
			rows[i].UpdatedAt = now
		}
		return tx.Omit("User").Create(&rows).Error
	})
	return translate(err, "replace bhoga schedule")
}

type GormStatusRepository struct {
	DB *gorm.DB
}

func (r *GormStatusRepository) ListByDate(ctx context.Context, date string) ([]models.PreachingStatus, error) {
	var statuses []models.PreachingStatus
	if err := r.DB.WithContext(ctx).
		Where("date = ?", date).
		Order("user_id ASC, contact_number ASC").
		Find(&statuses).Error; err != nil {
		return nil, translate(err, "list preaching statuses")
	}
	return statuses, nil
}

func (r *GormStatusRepository) Upsert(ctx context.Context, statuses []models.PreachingStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "user_id"}, {Name: "contact_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"contact_name", "status", "attended", "updated_by", "updated_at",
			}),
		}).Create(&statuses).Error
	})
	return translate(err, "upsert preaching statuses")
}
