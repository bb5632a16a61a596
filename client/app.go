package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sadhana/backend/bhoga"
	"sadhana/backend/config"
	"sadhana/backend/ledger"
	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/backend/utils"
)

// App связывает запросы к серверу с хранилищем состояния.
// Ошибки не повторяются: 401 сбрасывает сессию, ошибка чтения очищает
// соответствующую часть состояния, ошибка записи оставляет состояние как было.
// Во всех трёх случаях пользователь получает уведомление.
type App struct {
	api      *Client
	store    *Store
	notifier Notifier
	cfg      *config.ClientConfig
	now      func() time.Time

	users       singleflight.Group
	usersMu     sync.Mutex
	usersLoaded time.Time
}

func NewApp(cfg *config.ClientConfig, notifier Notifier) *App {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &App{
		api:      New(cfg),
		store:    NewStore(),
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// SetClock подменяет источник "сегодня"
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

func (a *App) API() *Client { return a.api }
func (a *App) Store() *Store { return a.store }

func (a *App) Today() string {
	return utils.FormatDate(a.now())
}

// Login открывает сессию и сразу обновляет справочник пользователей
func (a *App) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		// 401 здесь означает неверный пароль, а не истёкшую сессию
		a.notify(LevelError, "Login failed", err)
		return nil, err
	}
	a.api.SetToken(resp.Token)
	user := resp.User
	a.store.Dispatch(SessionStarted{Token: resp.Token, User: &user})
	a.notify(LevelInfo, "Logged in as "+user.Name, nil)

	// Ошибка справочника уже показана через notifier и не отменяет вход
	_, _ = a.refreshUsers(ctx, true)
	return &user, nil
}

// RestoreSession поднимает сессию по сохранённому токену
func (a *App) RestoreSession(ctx context.Context) (*models.User, error) {
	token := a.api.Token()
	if token == "" {
		return nil, nil
	}
	user, err := a.api.Profile(ctx)
	if err != nil {
		return nil, a.readFailed("Could not load profile", err)
	}
	a.store.Dispatch(SessionStarted{Token: token, User: user})
	return user, nil
}

// Logout сбрасывает сессию локально, даже если сервер недоступен
func (a *App) Logout(ctx context.Context) error {
	var err error
	if a.api.Token() != "" {
		err = a.api.Logout(ctx)
	}
	a.api.SetToken("")
	a.store.Dispatch(SessionCleared{})
	if err != nil && !IsUnauthorized(err) {
		a.notify(LevelError, "Logged out locally, server did not confirm", err)
		return err
	}
	a.notify(LevelInfo, "Logged out", nil)
	return nil
}

// RefreshUsers обновляет справочник. Параллельные вызовы объединяются,
// повторный вызов раньше UserRefreshInterval возвращает уже загруженный список.
func (a *App) RefreshUsers(ctx context.Context) ([]models.User, error) {
	return a.refreshUsers(ctx, false)
}

func (a *App) refreshUsers(ctx context.Context, force bool) ([]models.User, error) {
	if !force {
		a.usersMu.Lock()
		fresh := !a.usersLoaded.IsZero() && time.Since(a.usersLoaded) < a.cfg.UserRefreshInterval
		a.usersMu.Unlock()
		if fresh {
			return a.store.Snapshot().Users, nil
		}
	}

	v, err, _ := a.users.Do("users", func() (interface{}, error) {
		users, err := a.api.Users(ctx)
		if err != nil {
			a.store.Dispatch(UsersLoaded{Users: nil})
			return nil, a.readFailed("Could not load users", err)
		}
		a.store.Dispatch(UsersLoaded{Users: users})
		a.usersMu.Lock()
		a.usersLoaded = time.Now()
		a.usersMu.Unlock()
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.User), nil
}

func (a *App) LoadActivities(ctx context.Context, q ActivityQuery) ([]models.Activity, error) {
	activities, err := a.api.Activities(ctx, q)
	if err != nil {
		a.store.Dispatch(ActivitiesLoaded{Activities: nil})
		return nil, a.readFailed("Could not load activities", err)
	}
	a.store.Dispatch(ActivitiesLoaded{Activities: activities})
	return activities, nil
}

func (a *App) AddActivity(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	created, err := a.api.CreateActivity(ctx, activity)
	if err != nil {
		return nil, a.writeFailed("Could not save activity", err)
	}
	a.store.Dispatch(ActivitySaved{Activity: *created})
	a.notify(LevelInfo, "Activity saved", nil)
	return created, nil
}

func (a *App) UpdateActivity(ctx context.Context, id string, patch models.ActivityPatch) (*models.Activity, error) {
	updated, err := a.api.UpdateActivity(ctx, id, patch)
	if err != nil {
		return nil, a.writeFailed("Could not update activity", err)
	}
	a.store.Dispatch(ActivitySaved{Activity: *updated})
	a.notify(LevelInfo, "Activity updated", nil)
	return updated, nil
}

// SaveTodayActivity создаёт сегодняшний отчёт или обновляет уже загруженный
func (a *App) SaveTodayActivity(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	today := a.Today()
	if existing, ok := a.store.ActivityByDate(today); ok {
		return a.UpdateActivity(ctx, existing.ID, PatchFrom(activity))
	}
	activity.Date = today
	return a.AddActivity(ctx, activity)
}

func (a *App) ActivityByDate(date string) (models.Activity, bool) {
	return a.store.ActivityByDate(date)
}

func (a *App) LoadSchedule(ctx context.Context) (models.BhogaSchedule, error) {
	schedule, err := a.api.Schedule(ctx)
	if err != nil {
		a.store.Dispatch(ScheduleLoaded{Schedule: models.NewBhogaSchedule()})
		return models.NewBhogaSchedule(), a.readFailed("Could not load bhoga schedule", err)
	}
	a.store.Dispatch(ScheduleLoaded{Schedule: schedule})
	return schedule, nil
}

// SaveSchedule заменяет неделю целиком и перечитывает расписание
func (a *App) SaveSchedule(ctx context.Context, schedule models.BhogaSchedule) (models.BhogaSchedule, error) {
	if missing := schedule.Missing(); len(missing) > 0 {
		err := fmt.Errorf("schedule is missing %v", missing)
		a.notify(LevelError, "Could not save bhoga schedule", err)
		return models.BhogaSchedule{}, err
	}
	if _, err := a.api.ReplaceSchedule(ctx, schedule); err != nil {
		return models.BhogaSchedule{}, a.writeFailed("Could not save bhoga schedule", err)
	}
	a.notify(LevelInfo, "Bhoga schedule saved", nil)
	return a.LoadSchedule(ctx)
}

// BhogaWeek сверяет загруженное расписание с загруженными отчётами
func (a *App) BhogaWeek() []bhoga.Day {
	st := a.store.Snapshot()
	return bhoga.Reconcile(st.Schedule, st.Activities, st.Users, a.now())
}

// LoadStatuses загружает даты, заменяет их в журнале и возвращает загруженное.
// При ошибке запрошенные даты очищаются.
func (a *App) LoadStatuses(ctx context.Context, dates ...string) (map[string]ledger.DateMap, error) {
	loaded := make(map[string]ledger.DateMap, len(dates))
	for _, date := range dates {
		statuses, err := a.api.Statuses(ctx, date)
		if err != nil {
			a.store.Dispatch(StatusesReset{Dates: dates})
			return nil, a.readFailed("Could not load preaching statuses", err)
		}
		loaded[date] = ledger.FromStatuses(statuses)
	}

	events := make([]Event, 0, len(loaded))
	for _, date := range dates {
		events = append(events, StatusesLoaded{Date: date, Entries: loaded[date]})
	}
	a.store.Dispatch(events...)
	return loaded, nil
}

// UpdateStatus сохраняет один статус и перечитывает его дату
func (a *App) UpdateStatus(ctx context.Context, userID, date string, update models.StatusUpdate) error {
	if _, err := a.api.UpdateStatus(ctx, userID, date, update); err != nil {
		return a.writeFailed("Could not update preaching status", err)
	}
	_, err := a.LoadStatuses(ctx, date)
	return err
}

// EditStatus копит локальную правку без запроса к серверу
func (a *App) EditStatus(date, userID, contact string, patch ledger.Patch) {
	a.store.Dispatch(StatusEdited{Date: date, UserID: userID, Contact: utils.ContactKey(contact), Patch: patch})
}

// SaveStatuses отправляет правки даты одним bulk-update. После успешного ответа
// снимаются только отправленные правки; перечитывание - по настройке ReloadAfterBulkUpdate.
func (a *App) SaveStatuses(ctx context.Context, date string) error {
	st := a.store.Snapshot()
	sent := st.Pending.Edits(date)
	updates := st.Pending.Updates(&st.Ledger, date)
	if len(updates) == 0 {
		return nil
	}

	if _, err := a.api.BulkUpdateStatuses(ctx, models.BulkStatusUpdate{Date: date, Updates: updates}); err != nil {
		return a.writeFailed("Could not save preaching statuses", err)
	}
	a.store.Dispatch(StatusEditsSaved{Date: date, Sent: sent})
	a.notify(LevelInfo, fmt.Sprintf("Saved %d preaching statuses", len(updates)), nil)

	if a.cfg.ReloadAfterBulkUpdate {
		if _, err := a.LoadStatuses(ctx, date); err != nil {
			return err
		}
	}
	return nil
}

// CancelStatuses отбрасывает несохранённые правки даты
func (a *App) CancelStatuses(date string) {
	a.store.Dispatch(StatusEditsDiscarded{Date: date})
}

func (a *App) StatusView(date, userID, contact string) ledger.Entry {
	return a.store.StatusView(date, userID, utils.ContactKey(contact))
}

// ContactStatus - контакт из отчёта и его статус на дату
type ContactStatus struct {
	Contact models.PreachingContact
	Key     string
	Status  ledger.Entry
}

// ContactStatuses сопоставляет контакты отчёта со статусами даты по PreachingContact.Key
func (a *App) ContactStatuses(date string, activity models.Activity) []ContactStatus {
	out := make([]ContactStatus, 0, len(activity.PreachingContacts))
	for _, c := range activity.PreachingContacts {
		key := c.Key()
		out = append(out, ContactStatus{Contact: c, Key: key, Status: a.store.StatusView(date, activity.UserID, key)})
	}
	return out
}

// EditContactStatus - EditStatus для контакта из отчёта; имя контакта подставляется из отчёта
func (a *App) EditContactStatus(date, userID string, contact models.PreachingContact, patch ledger.Patch) {
	if patch.ContactName == "" {
		patch.ContactName = contact.Name
	}
	a.store.Dispatch(StatusEdited{Date: date, UserID: userID, Contact: contact.Key(), Patch: patch})
}

func (a *App) Dashboard(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	d, err := a.api.Dashboard(ctx, q)
	if err != nil {
		return nil, a.readFailed("Could not load dashboard", err)
	}
	return d, nil
}

func (a *App) BhogaReport(ctx context.Context) ([]bhoga.Day, error) {
	days, err := a.api.BhogaReport(ctx)
	if err != nil {
		return nil, a.readFailed("Could not load bhoga report", err)
	}
	return days, nil
}

func (a *App) PreachingReport(ctx context.Context) (*report.PreachingSummary, error) {
	s, err := a.api.PreachingReport(ctx)
	if err != nil {
		return nil, a.readFailed("Could not load preaching report", err)
	}
	return s, nil
}

func (a *App) MyStats(ctx context.Context) (*report.Stats, error) {
	s, err := a.api.MyStats(ctx)
	if err != nil {
		return nil, a.readFailed("Could not load statistics", err)
	}
	return s, nil
}

// PatchFrom превращает полную запись в патч со всеми изменяемыми полями
func PatchFrom(a models.Activity) models.ActivityPatch {
	contacts := []models.PreachingContact(a.PreachingContacts)
	if contacts == nil {
		contacts = []models.PreachingContact{}
	}
	return models.ActivityPatch{
		MangalaAarti:       &a.MangalaAarti,
		MangalaAartiReason: &a.MangalaAartiReason,
		JapaRounds:         &a.JapaRounds,
		LectureDuration:    &a.LectureDuration,
		LectureDescription: &a.LectureDescription,
		ReadingDuration:    &a.ReadingDuration,
		ReadingDescription: &a.ReadingDescription,
		WakeUpTime:         &a.WakeUpTime,
		SleepTime:          &a.SleepTime,
		BhogaOffering:      &a.BhogaOffering,
		PreachingContacts:  &contacts,
	}
}

func (a *App) notify(level Level, message string, err error) {
	a.notifier.Notify(Notification{Level: level, Message: message, Err: err})
}

// authFailed сбрасывает сессию, если сервер отверг токен
func (a *App) authFailed(err error) bool {
	if !IsUnauthorized(err) {
		return false
	}
	a.api.SetToken("")
	a.store.Dispatch(SessionCleared{})
	a.notify(LevelError, "Session expired, please log in again", err)
	return true
}

func (a *App) readFailed(message string, err error) error {
	if a.authFailed(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	a.notify(LevelError, message, err)
	return err
}

func (a *App) writeFailed(message string, err error) error {
	if a.authFailed(err) {
		return err
	}
	a.notify(LevelError, message, err)
	return err
}
