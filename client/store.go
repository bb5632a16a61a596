package client

import (
	"sort"
	"sync"

	"sadhana/backend/ledger"
	"sadhana/backend/models"
)

// Session - текущий пользователь и его токен
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// State - всё, что клиент знает о сервере. Меняется только через Reduce.
type State struct {
	Session    Session
	Users      []models.User
	Activities []models.Activity
	Schedule   models.BhogaSchedule
	Ledger     ledger.Ledger
	Pending    ledger.Pending
}

// Event - переход состояния
type Event interface {
	event()
}

type SessionStarted struct {
	Token string
	User  *models.User
}

type SessionCleared struct{}

type UsersLoaded struct {
	Users []models.User
}

type ActivitiesLoaded struct {
	Activities []models.Activity
}

// ActivitySaved заменяет запись с тем же id или добавляет новую
type ActivitySaved struct {
	Activity models.Activity
}

type ScheduleLoaded struct {
	Schedule models.BhogaSchedule
}

type StatusesLoaded struct {
	Date    string
	Entries ledger.DateMap
}

// StatusesReset очищает даты после неудачной загрузки
type StatusesReset struct {
	Dates []string
}

type StatusEdited struct {
	Date    string
	UserID  string
	Contact string
	Patch   ledger.Patch
}

type StatusEditsDiscarded struct {
	Date string
}

// StatusEditsSaved снимает только те правки, что ушли на сервер
type StatusEditsSaved struct {
	Date string
	Sent ledger.DatePatches
}

func (SessionStarted) event() {}
func (SessionCleared) event() {}
func (UsersLoaded) event() {}
func (ActivitiesLoaded) event() {}
func (ActivitySaved) event() {}
func (ScheduleLoaded) event() {}
func (StatusesLoaded) event() {}
func (StatusesReset) event() {}
func (StatusEdited) event() {}
func (StatusEditsDiscarded) event() {}
func (StatusEditsSaved) event() {}

// Reduce возвращает новое состояние и не меняет переданное
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case SessionStarted:
		s.Session = Session{Token: e.Token, User: e.User}
	case SessionCleared:
		// Выход сбрасывает всё, что было загружено от имени пользователя
		s = State{Schedule: models.NewBhogaSchedule()}
	case UsersLoaded:
		s.Users = append([]models.User{}, e.Users...)
	case ActivitiesLoaded:
		s.Activities = append([]models.Activity{}, e.Activities...)
	case ActivitySaved:
		s.Activities = upsertActivity(s.Activities, e.Activity)
	case ScheduleLoaded:
		s.Schedule = e.Schedule
		if s.Schedule.Days == nil {
			s.Schedule = models.NewBhogaSchedule()
		}
	case StatusesLoaded:
		s.Ledger = s.Ledger.Clone()
		s.Ledger.ReplaceDate(e.Date, e.Entries)
	case StatusesReset:
		s.Ledger = s.Ledger.Clone()
		for _, d := range e.Dates {
			s.Ledger.ClearDate(d)
		}
	case StatusEdited:
		s.Pending = s.Pending.Clone()
		s.Pending.Edit(e.Date, e.UserID, e.Contact, e.Patch)
	case StatusEditsDiscarded:
		s.Pending = s.Pending.Clone()
		s.Pending.Discard(e.Date)
	case StatusEditsSaved:
		s.Pending = s.Pending.Clone()
		s.Pending.Acknowledge(e.Date, e.Sent)
	}
	return s
}

func upsertActivity(list []models.Activity, a models.Activity) []models.Activity {
	out := make([]models.Activity, 0, len(list)+1)
	replaced := false
	for _, existing := range list {
		if existing.ID == a.ID {
			out = append(out, a)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Store хранит State под мьютексом. Каждая запись - один вызов Reduce,
// поэтому выигрывает тот ответ, который пришёл последним.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Schedule: models.NewBhogaSchedule()}}
}

func (s *Store) Dispatch(events ...Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.state = Reduce(s.state, e)
	}
	return s.state
}

// Snapshot возвращает текущее состояние. Срезы и карты нельзя менять.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Session() Session {
	return s.Snapshot().Session
}

// ActivityByDate ищет отчёт текущего пользователя за дату
func (s *Store) ActivityByDate(date string) (models.Activity, bool) {
	st := s.Snapshot()
	var userID string
	if st.Session.User != nil {
		userID = st.Session.User.ID
	}
	for _, a := range st.Activities {
		if a.Date == date && (userID == "" || a.UserID == userID) {
			return a, true
		}
	}
	return models.Activity{}, false
}

// StatusView - значение статуса для отображения: несохранённая правка поверх журнала
func (s *Store) StatusView(date, userID, contact string) ledger.Entry {
	st := s.Snapshot()
	return st.Pending.View(&st.Ledger, date, userID, contact)
}
