package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Weekday - день недели расписания бхоги. Значения совпадают с time.Weekday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// EditableWeekdays - дни, которые назначает администратор; воскресенье фиксировано
var EditableWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) Editable() bool {
	return d > Sunday && d <= Saturday
}

// WeekdayOf возвращает день недели для даты в её собственном часовом поясе
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range weekdayNames {
		if n == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if d < Sunday || d > Saturday {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Хранится в БД строкой ("monday"), а не числом
func (Weekday) GormDataType() string {
	return "string"
}

func (d Weekday) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Weekday) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Weekday", src)
	}
}
