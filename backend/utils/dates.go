package utils

import "time"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// FormatDate возвращает дату в формате yyyy-MM-dd в часовом поясе t
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate разбирает yyyy-MM-dd как полночь в loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

func IsISODate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsClock проверяет время суток HH:mm (24 часа). Дата у такого времени отсутствует.
func IsClock(s string) bool {
	if len(s) != len(ClockLayout) {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// StartOfDay отбрасывает время, оставляя часовой пояс
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays сдвигает дату по календарю, а не на 24 часа
func AddDays(t time.Time, days int) time.Time {
	return StartOfDay(t).AddDate(0, 0, days)
}
