package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/config"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}
}

func newApp(cfg *config.Config, denylist session.Denylist, logs io.Writer) *fiber.App {
	logger := slog.New(slog.NewTextHandler(logs, nil))
	app := fiber.New()
	app.Use(LoggingMiddleware(logger))
	auth := AuthMiddleware(cfg, denylist, logger)
	app.Get("/me", auth, func(c *fiber.Ctx) error {
		return c.SendString(CurrentClaims(c).UserID)
	})
	app.Get("/admin", auth, AdminMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	app := newApp(cfg, session.NewMemoryDenylist(nil), io.Discard)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := utils.GenerateJWTToken("u1", "user", cfg)
	require.NoError(t, err)

	for _, header := range []string{"Bearer " + token, token} {
		req = httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", header)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "u1", string(body))
	}
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	cfg := testConfig()
	denylist := session.NewMemoryDenylist(nil)
	app := newApp(cfg, denylist, io.Discard)

	token, err := utils.GenerateJWTToken("u1", "user", cfg)
	require.NoError(t, err)
	claims, err := utils.ParseJWTToken(token, cfg)
	require.NoError(t, err)
	require.NoError(t, denylist.Revoke(context.Background(), claims.TokenID, claims.ExpiresAt))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminMiddleware(t *testing.T) {
	cfg := testConfig()
	app := newApp(cfg, nil, io.Discard)

	userToken, _ := utils.GenerateJWTToken("u1", "user", cfg)
	adminToken, _ := utils.GenerateJWTToken("a1", "admin", cfg)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	var logs bytes.Buffer
	app := newApp(testConfig(), nil, &logs)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	out := logs.String()
	assert.True(t, strings.Contains(out, "level=WARN"), out)
	assert.Contains(t, out, "path=/me")
	assert.Contains(t, out, "status=401")
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Handler())

	_, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	m.ActivityWritten("create")
	m.StatusesWritten(3)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `sadhana_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, string(body), `sadhana_activities_written_total{op="create"} 1`)
	assert.Contains(t, string(body), "sadhana_preaching_statuses_written_total 3")

	var nilMetrics *Metrics
	nilMetrics.ActivityWritten("create")
}
