// Package ledger хранит статусы работы с контактами по ключу
// date → userId → contactNumber и локальные несохранённые правки поверх них.
package ledger

import (
	"sort"

	"sadhana/backend/models"
)

// Entry - сохранённое состояние контакта
type Entry struct {
	Status      string `json:"status"`
	Attended    bool   `json:"attended"`
	ContactName string `json:"contactName"`
}

// DateMap - статусы одной даты: userId → contactNumber → Entry
type DateMap map[string]map[string]Entry

// Ledger - статусы по датам. Нулевое значение готово к использованию.
type Ledger struct {
	dates map[string]DateMap
}

// FromStatuses группирует записи сервера одной даты
func FromStatuses(statuses []models.PreachingStatus) DateMap {
	m := DateMap{}
	for _, s := range statuses {
		if m[s.UserID] == nil {
			m[s.UserID] = map[string]Entry{}
		}
		m[s.UserID][s.ContactNumber] = Entry{Status: s.Status, Attended: s.Attended, ContactName: s.ContactName}
	}
	return m
}

// ReplaceDate заменяет статусы даты целиком
func (l *Ledger) ReplaceDate(date string, m DateMap) {
	if l.dates == nil {
		l.dates = map[string]DateMap{}
	}
	l.dates[date] = m.clone()
}

// ClearDate убирает дату из журнала
func (l *Ledger) ClearDate(date string) {
	delete(l.dates, date)
}

func (l Ledger) Get(date, userID, contact string) (Entry, bool) {
	e, ok := l.dates[date][userID][contact]
	return e, ok
}

// Date возвращает копию статусов даты
func (l Ledger) Date(date string) DateMap {
	return l.dates[date].clone()
}

// Dates - загруженные даты по возрастанию
func (l Ledger) Dates() []string {
	out := make([]string, 0, len(l.dates))
	for d := range l.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Clone - глубокая копия журнала
func (l Ledger) Clone() Ledger {
	out := Ledger{dates: make(map[string]DateMap, len(l.dates))}
	for d, m := range l.dates {
		out.dates[d] = m.clone()
	}
	return out
}

func (m DateMap) clone() DateMap {
	out := make(DateMap, len(m))
	for user, contacts := range m {
		c := make(map[string]Entry, len(contacts))
		for k, v := range contacts {
			c[k] = v
		}
		out[user] = c
	}
	return out
}
