package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SundayDuty - постоянное значение воскресенья в расписании
const SundayDuty = "No Offering Duty"

var ErrSundayNotEditable = errors.New("sunday has no offering duty and cannot be assigned")

// BhogaAssignment - строка расписания: один день недели и назначенный пользователь
type BhogaAssignment struct {
	Weekday   Weekday   `gorm:"primaryKey;size:9" json:"weekday"`
	UserID    *string   `gorm:"size:36" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BhogaSchedule - недельное расписание в том виде, в котором оно ходит по API:
// {"monday": {...} | null, ..., "sunday": "No Offering Duty"}
type BhogaSchedule struct {
	Days map[Weekday]*UserRef
}

// NewBhogaSchedule создаёт расписание, где все редактируемые дни заданы и пусты
func NewBhogaSchedule() BhogaSchedule {
	s := BhogaSchedule{Days: make(map[Weekday]*UserRef, len(EditableWeekdays))}
	for _, d := range EditableWeekdays {
		s.Days[d] = nil
	}
	return s
}

func (s BhogaSchedule) Get(d Weekday) *UserRef {
	if s.Days == nil {
		return nil
	}
	return s.Days[d]
}

func (s *BhogaSchedule) Assign(d Weekday, ref *UserRef) error {
	if !d.Editable() {
		return ErrSundayNotEditable
	}
	if s.Days == nil {
		s.Days = make(map[Weekday]*UserRef)
	}
	s.Days[d] = ref
	return nil
}

// Missing возвращает дни, которых не было в запросе
func (s BhogaSchedule) Missing() []Weekday {
	var missing []Weekday
	for _, d := range EditableWeekdays {
		if _, ok := s.Days[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// Assignments переводит расписание в строки для хранения
func (s BhogaSchedule) Assignments() []BhogaAssignment {
	rows := make([]BhogaAssignment, 0, len(EditableWeekdays))
	for _, d := range EditableWeekdays {
		row := BhogaAssignment{Weekday: d}
		if ref := s.Get(d); ref != nil && ref.ID != "" {
			id := ref.ID
			row.UserID = &id
		}
		rows = append(rows, row)
	}
	return rows
}

// ScheduleFromAssignments собирает расписание из строк БД
func ScheduleFromAssignments(rows []BhogaAssignment) BhogaSchedule {
	s := NewBhogaSchedule()
	for _, row := range rows {
		if !row.Weekday.Editable() || row.UserID == nil {
			continue
		}
		if row.User != nil {
			s.Days[row.Weekday] = row.User.Ref()
		} else {
			s.Days[row.Weekday] = &UserRef{ID: *row.UserID}
		}
	}
	return s
}

func (s BhogaSchedule) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(weekdayNames))
	for _, d := range EditableWeekdays {
		if ref := s.Get(d); ref != nil {
			out[d.String()] = ref
		} else {
			out[d.String()] = nil
		}
	}
	out[Sunday.String()] = SundayDuty
	return json.Marshal(out)
}

// UnmarshalJSON принимает для каждого дня null, строку с id пользователя или объект
// пользователя ({"id": ...} или {"_id": ...}). Воскресенье игнорируется.
func (s *BhogaSchedule) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Days = make(map[Weekday]*UserRef, len(EditableWeekdays))
	for key, value := range raw {
		d, err := ParseWeekday(key)
		if err != nil {
			return err
		}
		if !d.Editable() {
			continue
		}
		ref, err := decodeUserRef(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
		s.Days[d] = ref
	}
	return nil
}

func decodeUserRef(value json.RawMessage) (*UserRef, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil, nil
	}
	if value[0] == '"' {
		var id string
		if err := json.Unmarshal(value, &id); err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		return &UserRef{ID: id}, nil
	}
	var obj struct {
		UserRef
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(value, &obj); err != nil {
		return nil, err
	}
	ref := obj.UserRef
	if ref.ID == "" {
		ref.ID = obj.LegacyID
	}
	if ref.ID == "" {
		return nil, errors.New("user reference without id")
	}
	return &ref, nil
}
