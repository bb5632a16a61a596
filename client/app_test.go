package client

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/config"
	"sadhana/backend/controllers"
	"sadhana/backend/ledger"
	"sadhana/backend/models"
	"sadhana/backend/repository"
	"sadhana/backend/repository/memory"
	"sadhana/backend/routes"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

// Среда, 8 мая 2024
var now = time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)

const today = "2024-05-08"

type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) errors() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.items {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	store *repository.Store
	cfg   *config.ClientConfig
	admin models.User
	alice models.User
}

// startServer поднимает настоящий сервер на loopback с хранилищем в памяти
func startServer(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	f := &fixture{store: store}
	f.admin = createUser(t, store, "Admin", "admin@temple.org", models.RoleAdmin)
	f.alice = createUser(t, store, "Alice", "alice@temple.org", models.RoleUser)

	app := routes.NewApp(controllers.Deps{
		Store:    store,
		Cfg:      &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour, Location: time.UTC},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Denylist: session.NewMemoryDenylist(nil),
		Now:      func() time.Time { return now },
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	f.cfg = &config.ClientConfig{
		BaseURL:             "http://" + ln.Addr().String() + "/api",
		Timeout:             5 * time.Second,
		UserRefreshInterval: time.Hour,
		Location:            time.UTC,
	}
	return f
}

func createUser(t *testing.T, store *repository.Store, name, email string, role models.Role) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password")
	require.NoError(t, err)
	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, store.Users.Create(context.Background(), u))
	return *u
}

func (f *fixture) newApp(t *testing.T) (*App, *recorder) {
	t.Helper()
	rec := &recorder{}
	app := NewApp(f.cfg, rec)
	app.SetClock(func() time.Time { return now })
	return app, rec
}

func (f *fixture) login(t *testing.T, email string) (*App, *recorder) {
	t.Helper()
	app, rec := f.newApp(t)
	_, err := app.Login(context.Background(), email, "password")
	require.NoError(t, err)
	return app, rec
}

func TestLoginRefreshesUsers(t *testing.T) {
	f := startServer(t)
	app, rec := f.newApp(t)

	user, err := app.Login(context.Background(), "alice@temple.org", "password")
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, user.ID)

	st := app.Store().Snapshot()
	assert.True(t, st.Session.LoggedIn())
	assert.Len(t, st.Users, 2)
	assert.Empty(t, rec.errors())
}

func TestLoginWithWrongPassword(t *testing.T) {
	f := startServer(t)
	app, rec := f.newApp(t)

	_, err := app.Login(context.Background(), "alice@temple.org", "nope")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, app.Store().Session().LoggedIn())
	require.Len(t, rec.errors(), 1)
	assert.Equal(t, "Login failed", rec.errors()[0].Message)
}

func TestRefreshUsersRespectsInterval(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")
	createUser(t, f.store, "Bob", "bob@temple.org", models.RoleUser)

	users, err := app.RefreshUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2, "refresh inside the interval returns the cached directory")

	f.cfg.UserRefreshInterval = 0
	users, err = app.RefreshUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestRestoreSessionAndLogout(t *testing.T) {
	f := startServer(t)
	first, _ := f.login(t, "alice@temple.org")

	f.cfg.Token = first.API().Token()
	app, _ := f.newApp(t)
	user, err := app.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	require.NoError(t, app.Logout(context.Background()))
	assert.False(t, app.Store().Session().LoggedIn())

	// Токен отозван на сервере: первая сессия получает 401 и сбрасывается
	_, err = first.LoadActivities(context.Background(), ActivityQuery{})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, first.Store().Session().LoggedIn())
}

func TestSaveTodayActivityCreatesThenUpdates(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")
	ctx := context.Background()

	created, err := app.SaveTodayActivity(ctx, models.Activity{JapaRounds: 8, WakeUpTime: "04:30"})
	require.NoError(t, err)
	assert.Equal(t, today, created.Date)

	updated, err := app.SaveTodayActivity(ctx, models.Activity{JapaRounds: 16, WakeUpTime: "04:15"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 16, updated.JapaRounds)

	got, ok := app.ActivityByDate(today)
	require.True(t, ok)
	assert.Equal(t, "04:15", got.WakeUpTime)

	activities, err := app.LoadActivities(ctx, ActivityQuery{StartDate: today, EndDate: today})
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestWriteFailureKeepsState(t *testing.T) {
	f := startServer(t)
	app, rec := f.login(t, "alice@temple.org")
	ctx := context.Background()

	_, err := app.AddActivity(ctx, models.Activity{Date: today, JapaRounds: 4})
	require.NoError(t, err)

	_, err = app.AddActivity(ctx, models.Activity{Date: today, JapaRounds: 8})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)

	require.Len(t, app.Store().Snapshot().Activities, 1)
	assert.Equal(t, 4, app.Store().Snapshot().Activities[0].JapaRounds)
	assert.Len(t, rec.errors(), 1)
	assert.True(t, app.Store().Session().LoggedIn())
}

func TestSaveScheduleReloads(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "admin@temple.org")
	ctx := context.Background()

	schedule := models.NewBhogaSchedule()
	require.NoError(t, schedule.Assign(models.Monday, &models.UserRef{ID: f.alice.ID}))

	saved, err := app.SaveSchedule(ctx, schedule)
	require.NoError(t, err)
	require.NotNil(t, saved.Get(models.Monday))
	assert.Equal(t, "Alice", saved.Get(models.Monday).Name)
	assert.Equal(t, "Alice", app.Store().Snapshot().Schedule.Get(models.Monday).Name)

	partial := models.BhogaSchedule{Days: map[models.Weekday]*models.UserRef{models.Monday: nil}}
	_, err = app.SaveSchedule(ctx, partial)
	require.Error(t, err)
}

func TestBhogaWeekFromLoadedState(t *testing.T) {
	f := startServer(t)
	admin, _ := f.login(t, "admin@temple.org")
	ctx := context.Background()

	schedule := models.NewBhogaSchedule()
	require.NoError(t, schedule.Assign(models.Monday, &models.UserRef{ID: f.alice.ID}))
	_, err := admin.SaveSchedule(ctx, schedule)
	require.NoError(t, err)

	_, err = admin.LoadActivities(ctx, ActivityQuery{})
	require.NoError(t, err)

	days := admin.BhogaWeek()
	require.Len(t, days, 7)
	for _, d := range days {
		if d.Date == "2024-05-13" {
			assert.Equal(t, "Assigned user Alice has not offered bhoga yet.", d.Message)
			assert.False(t, d.AssignedUserDidNotOffer)
		}
	}
}

func TestStatusOverlaySaveAndCancel(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")
	ctx := context.Background()
	uid := f.alice.ID

	require.NoError(t, app.UpdateStatus(ctx, uid, today, models.StatusUpdate{
		ContactNumber: "+1 555 0100", ContactName: "Gopal", Status: "called",
	}))
	assert.Equal(t, "called", app.StatusView(today, uid, "+15550100").Status)

	// Правка видна сразу, отмена возвращает сохранённое значение без запроса
	app.EditStatus(today, uid, "+1 555 0100", ledger.Patch{Status: strPtr("visited")})
	assert.Equal(t, "visited", app.StatusView(today, uid, "+15550100").Status)
	app.CancelStatuses(today)
	assert.Equal(t, "called", app.StatusView(today, uid, "+15550100").Status)

	app.EditStatus(today, uid, "+15550100", ledger.Patch{Status: strPtr("visited")})
	require.NoError(t, app.SaveStatuses(ctx, today))
	assert.False(t, app.Store().Snapshot().Pending.Has(today))

	// Без ReloadAfterBulkUpdate журнал не перечитывается
	assert.Equal(t, "called", app.StatusView(today, uid, "+15550100").Status)

	loaded, err := app.LoadStatuses(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, "visited", loaded[today][uid]["+15550100"].Status)
	assert.Equal(t, "visited", app.StatusView(today, uid, "+15550100").Status)
	assert.Equal(t, "Gopal", app.StatusView(today, uid, "+15550100").ContactName)
}

func TestSaveStatusesReloadsWhenConfigured(t *testing.T) {
	f := startServer(t)
	f.cfg.ReloadAfterBulkUpdate = true
	app, _ := f.login(t, "alice@temple.org")
	ctx := context.Background()

	app.EditStatus(today, f.alice.ID, "111", ledger.Patch{Status: strPtr("invited")})
	require.NoError(t, app.SaveStatuses(ctx, today))
	assert.Equal(t, "invited", app.StatusView(today, f.alice.ID, "111").Status)
}

func TestLoadStatusesFailureResetsDates(t *testing.T) {
	f := startServer(t)
	app, rec := f.login(t, "alice@temple.org")
	ctx := context.Background()

	require.NoError(t, app.UpdateStatus(ctx, f.alice.ID, today, models.StatusUpdate{ContactNumber: "111", Status: "called"}))
	require.Contains(t, app.Store().Snapshot().Ledger.Dates(), today)

	_, err := app.LoadStatuses(ctx, today, "not-a-date")
	require.Error(t, err)
	assert.Empty(t, app.Store().Snapshot().Ledger.Dates())
	assert.Len(t, rec.errors(), 1)
}

func TestFailedBulkSaveKeepsOverlay(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")

	// Чужой userId: сервер отвечает 403
	app.EditStatus(today, f.admin.ID, "111", ledger.Patch{Status: strPtr("called")})
	err := app.SaveStatuses(context.Background(), today)
	require.Error(t, err)
	assert.True(t, app.Store().Snapshot().Pending.Has(today))
	assert.True(t, app.Store().Session().LoggedIn())
}

func TestCanceledContextIsNotSent(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := app.API().Activities(ctx, ActivityQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReports(t *testing.T) {
	f := startServer(t)
	alice, _ := f.login(t, "alice@temple.org")
	admin, _ := f.login(t, "admin@temple.org")
	ctx := context.Background()

	_, err := alice.SaveTodayActivity(ctx, models.Activity{
		JapaRounds:        16,
		PreachingContacts: []models.PreachingContact{{Name: "Gopal", Phone: "111"}},
	})
	require.NoError(t, err)

	stats, err := alice.MyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, stats.TotalJapaRounds)

	_, err = alice.Dashboard(ctx, DashboardQuery{})
	assert.Error(t, err)

	dash, err := admin.Dashboard(ctx, DashboardQuery{Search: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 16, dash.Summary.AverageJapaPerUser)
	require.Len(t, dash.Users, 1)

	preaching, err := admin.PreachingReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, preaching.TotalContacts)

	days, err := admin.BhogaReport(ctx)
	require.NoError(t, err)
	assert.Len(t, days, 7)

	window, err := admin.API().StatusWindow(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, window.Data, 7)
}

func TestContactStatusesMatchActivityContacts(t *testing.T) {
	f := startServer(t)
	app, _ := f.login(t, "alice@temple.org")
	ctx := context.Background()

	activity, err := app.SaveTodayActivity(ctx, models.Activity{
		Date:       today,
		JapaRounds: 16,
		PreachingContacts: []models.PreachingContact{
			{Name: "Gopal", Phone: "+1 (555) 010-0"},
			{ID: "123-456", Name: "Radha"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, app.UpdateStatus(ctx, f.alice.ID, today, models.StatusUpdate{ContactNumber: "+1 555 0100", Status: "called"}))
	rows := app.ContactStatuses(today, *activity)
	require.Len(t, rows, 2)
	assert.Equal(t, "+15550100", rows[0].Key)
	assert.Equal(t, "called", rows[0].Status.Status)
	assert.Empty(t, rows[1].Status.Status)

	// Правка по контакту из отчёта уходит на сервер под тем же ключом
	app.EditContactStatus(today, f.alice.ID, activity.PreachingContacts[1], ledger.Patch{Status: strPtr("invited")})
	require.NoError(t, app.SaveStatuses(ctx, today))
	_, err = app.LoadStatuses(ctx, today)
	require.NoError(t, err)

	rows = app.ContactStatuses(today, *activity)
	assert.Equal(t, "invited", rows[1].Status.Status)
	assert.Equal(t, "Radha", app.StatusView(today, f.alice.ID, "123-456").ContactName)
}
