package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/config"
	"sadhana/backend/controllers"
	"sadhana/backend/ledger"
	"sadhana/backend/models"
	"sadhana/backend/repository/memory"
	"sadhana/backend/routes"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

func TestApplyAssignments(t *testing.T) {
	s := models.NewBhogaSchedule()
	require.NoError(t, s.Assign(models.Tuesday, &models.UserRef{ID: "u9"}))

	require.NoError(t, applyAssignments(&s, []string{"monday=u1", "Tuesday=none"}))
	assert.Equal(t, "u1", s.Get(models.Monday).ID)
	assert.Nil(t, s.Get(models.Tuesday))
	assert.Empty(t, s.Missing())

	assert.Error(t, applyAssignments(&s, []string{"monday"}))
	assert.Error(t, applyAssignments(&s, []string{"funday=u1"}))
	assert.ErrorIs(t, applyAssignments(&s, []string{"sunday=u1"}), models.ErrSundayNotEditable)
}

func TestPrintStatuses(t *testing.T) {
	var buf bytes.Buffer
	printStatuses(&buf, "2024-05-08", nil)
	assert.Equal(t, "No preaching statuses for 2024-05-08\n", buf.String())

	buf.Reset()
	printStatuses(&buf, "2024-05-08", ledger.DateMap{
		"u2": {"222": {Status: "invited"}},
		"u1": {"111": {Status: "called", ContactName: "Gopal", Attended: true}},
	})
	out := buf.String()
	assert.Contains(t, out, "USER")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("u1")), bytes.Index(buf.Bytes(), []byte("u2")))
	assert.Contains(t, out, "Gopal")
	assert.Contains(t, out, "yes")
}

func TestPrintSchedule(t *testing.T) {
	s := models.NewBhogaSchedule()
	require.NoError(t, s.Assign(models.Monday, &models.UserRef{ID: "u1", Name: "Alice"}))

	var buf bytes.Buffer
	printSchedule(&buf, s)
	assert.Contains(t, buf.String(), "Alice")
	assert.Contains(t, buf.String(), models.SundayDuty)
}

func TestCLIAgainstServer(t *testing.T) {
	store := memory.New()
	hash, err := utils.HashPassword("password")
	require.NoError(t, err)
	admin := &models.User{Name: "Admin", Email: "admin@temple.org", PasswordHash: hash, Role: models.RoleAdmin}
	alice := &models.User{Name: "Alice", Email: "alice@temple.org", PasswordHash: hash, Role: models.RoleUser}
	require.NoError(t, store.Users.Create(context.Background(), admin))
	require.NoError(t, store.Users.Create(context.Background(), alice))

	server := routes.NewApp(controllers.Deps{
		Store:    store,
		Cfg:      &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour, Location: time.UTC},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Denylist: session.NewMemoryDenylist(nil),
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Listener(ln) }()
	t.Cleanup(func() { _ = server.Shutdown() })

	run := func(args ...string) (string, error) {
		cfg := &config.ClientConfig{
			BaseURL:  "http://" + ln.Addr().String() + "/api",
			Timeout:  5 * time.Second,
			Location: time.UTC,
		}
		var out bytes.Buffer
		app := newCLI(cfg)
		app.Writer = &out
		app.ErrWriter = io.Discard
		err := app.RunContext(context.Background(), append([]string{"sadhanactl"}, args...))
		return out.String(), err
	}

	out, err := run("--email", "alice@temple.org", "--password", "password", "login")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = run("today")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err = run("--email", "alice@temple.org", "--password", "password", "today", "--japa", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "16")

	out, err = run("--email", "admin@temple.org", "--password", "password", "schedule", "set", "monday="+alice.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")

	out, err = run("--email", "admin@temple.org", "--password", "password", "dashboard", "--search", "ali")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@temple.org")

	out, err = run("--email", "alice@temple.org", "--password", "password",
		"statuses", "set", "--contact", "111", "--status", "called")
	require.NoError(t, err)
	assert.Contains(t, out, "called")
}
