package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreachingStatus - статус работы с контактом на дату. Ключ: (date, user_id, contact_number).
type PreachingStatus struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Date          string    `gorm:"size:10;not null;uniqueIndex:idx_preaching_status_key" json:"date"`
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_preaching_status_key" json:"userId"`
	ContactNumber string    `gorm:"size:64;not null;uniqueIndex:idx_preaching_status_key" json:"contactNumber"`
	ContactName   string    `json:"contactName"`
	Status        string    `json:"status"`
	Attended      bool      `gorm:"not null;default:false" json:"attended"`
	UpdatedBy     string    `gorm:"size:36" json:"updatedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *PreachingStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// StatusUpdate - изменение статуса одного контакта
type StatusUpdate struct {
	UserID        string `json:"userId,omitempty"`
	ContactNumber string `json:"contactNumber"`
	ContactName   string `json:"contactName,omitempty"`
	Status        string `json:"status"`
	Attended      bool   `json:"attended"`
}

// BulkStatusUpdate - тело POST /preachingStatus/bulk-update
type BulkStatusUpdate struct {
	Date    string         `json:"date"`
	Updates []StatusUpdate `json:"updates"`
}

// ToStatus собирает запись для сохранения
func (u StatusUpdate) ToStatus(date, updatedBy string) PreachingStatus {
	return PreachingStatus{
		Date:          date,
		UserID:        u.UserID,
		ContactNumber: u.ContactNumber,
		ContactName:   u.ContactName,
		Status:        u.Status,
		Attended:      u.Attended,
		UpdatedBy:     updatedBy,
	}
}
