package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sadhana/backend/utils"
)

// Activity - дневной отчёт пользователя. Не больше одной записи на (user_id, date).
type Activity struct {
	ID                 string                                `gorm:"primaryKey;size:36" json:"id"`
	UserID             string                                `gorm:"size:36;not null;uniqueIndex:idx_activity_user_date" json:"userId"`
	User               *User                                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Date               string                                `gorm:"size:10;not null;uniqueIndex:idx_activity_user_date;index" json:"date"`
	MangalaAarti       bool                                  `gorm:"not null;default:false" json:"mangalaAarti"`
	MangalaAartiReason string                                `json:"mangalaAartiReason,omitempty"`
	JapaRounds         int                                   `gorm:"not null;default:0" json:"japaRounds"`
	LectureDuration    int                                   `gorm:"not null;default:0" json:"lectureDuration"`
	LectureDescription string                                `json:"lectureDescription,omitempty"`
	ReadingDuration    int                                   `gorm:"not null;default:0" json:"readingDuration"`
	ReadingDescription string                                `json:"readingDescription,omitempty"`
	WakeUpTime         string                                `gorm:"size:5" json:"wakeUpTime,omitempty"`
	SleepTime          string                                `gorm:"size:5" json:"sleepTime,omitempty"`
	BhogaOffering      bool                                  `gorm:"not null;default:false;index" json:"bhogaOffering"`
	PreachingContacts  datatypes.JSONSlice[PreachingContact] `json:"preachingContacts"`
	CreatedAt          time.Time                             `json:"createdAt"`
	UpdatedAt          time.Time                             `json:"updatedAt"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// PreachingContact принадлежит ровно одному Activity
type PreachingContact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	AddedDate string `json:"addedDate"`
}

// Key - идентичность контакта между днями: нормализованный телефон,
// а если телефона нет, то локальный id.
func (c PreachingContact) Key() string {
	if phone := utils.ContactKey(c.Phone); phone != "" {
		return phone
	}
	return utils.ContactKey(c.ID)
}

// Normalize приводит запись к виду, в котором она хранится
func (a *Activity) Normalize() {
	if a.MangalaAarti {
		a.MangalaAartiReason = ""
	}
	if a.PreachingContacts == nil {
		a.PreachingContacts = datatypes.JSONSlice[PreachingContact]{}
	}
	for i := range a.PreachingContacts {
		c := &a.PreachingContacts[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.AddedDate == "" {
			c.AddedDate = a.Date
		}
		c.Email = utils.NormalizeEmail(c.Email)
	}
}

// Validate возвращает ошибки по полям; пустая карта - запись корректна
func (a *Activity) Validate() map[string]string {
	errs := map[string]string{}
	if !utils.IsISODate(a.Date) {
		errs["date"] = "must be a yyyy-MM-dd date"
	}
	if a.JapaRounds < 0 {
		errs["japaRounds"] = "must not be negative"
	}
	if a.LectureDuration < 0 {
		errs["lectureDuration"] = "must not be negative"
	}
	if a.ReadingDuration < 0 {
		errs["readingDuration"] = "must not be negative"
	}
	if a.WakeUpTime != "" && !utils.IsClock(a.WakeUpTime) {
		errs["wakeUpTime"] = "must be HH:mm"
	}
	if a.SleepTime != "" && !utils.IsClock(a.SleepTime) {
		errs["sleepTime"] = "must be HH:mm"
	}
	for i, c := range a.PreachingContacts {
		if c.Name == "" {
			errs["preachingContacts."+strconv.Itoa(i)+".name"] = "is required"
		}
	}
	return errs
}

// ActivityPatch - частичное обновление для PUT /activities/:id
type ActivityPatch struct {
	MangalaAarti       *bool               `json:"mangalaAarti"`
	MangalaAartiReason *string             `json:"mangalaAartiReason"`
	JapaRounds         *int                `json:"japaRounds"`
	LectureDuration    *int                `json:"lectureDuration"`
	LectureDescription *string             `json:"lectureDescription"`
	ReadingDuration    *int                `json:"readingDuration"`
	ReadingDescription *string             `json:"readingDescription"`
	WakeUpTime         *string             `json:"wakeUpTime"`
	SleepTime          *string             `json:"sleepTime"`
	BhogaOffering      *bool               `json:"bhogaOffering"`
	PreachingContacts  *[]PreachingContact `json:"preachingContacts"`
}

// Apply переносит заданные поля в запись. Дата и владелец не меняются.
func (p ActivityPatch) Apply(a *Activity) {
	if p.MangalaAarti != nil {
		a.MangalaAarti = *p.MangalaAarti
	}
	if p.MangalaAartiReason != nil {
		a.MangalaAartiReason = *p.MangalaAartiReason
	}
	if p.JapaRounds != nil {
		a.JapaRounds = *p.JapaRounds
	}
	if p.LectureDuration != nil {
		a.LectureDuration = *p.LectureDuration
	}
	if p.LectureDescription != nil {
		a.LectureDescription = *p.LectureDescription
	}
	if p.ReadingDuration != nil {
		a.ReadingDuration = *p.ReadingDuration
	}
	if p.ReadingDescription != nil {
		a.ReadingDescription = *p.ReadingDescription
	}
	if p.WakeUpTime != nil {
		a.WakeUpTime = *p.WakeUpTime
	}
	if p.SleepTime != nil {
		a.SleepTime = *p.SleepTime
	}
	if p.BhogaOffering != nil {
		a.BhogaOffering = *p.BhogaOffering
	}
	if p.PreachingContacts != nil {
		a.PreachingContacts = datatypes.JSONSlice[PreachingContact](*p.PreachingContacts)
	}
}
