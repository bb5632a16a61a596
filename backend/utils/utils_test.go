package utils

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/config"
)

func TestJWTRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}

	token, err := GenerateJWTToken("u1", "admin", cfg)
	require.NoError(t, err)

	claims, err := ParseJWTToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)

	other, err := GenerateJWTToken("u1", "admin", cfg)
	require.NoError(t, err)
	otherClaims, err := ParseJWTToken(other, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenID, otherClaims.TokenID)
}

func TestJWTRejectsBadTokens(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}

	_, err := ParseJWTToken("garbage", cfg)
	assert.Error(t, err)

	token, _ := GenerateJWTToken("u1", "user", &config.Config{JWTSecret: "other", JWTTTL: time.Hour})
	_, err = ParseJWTToken(token, cfg)
	assert.Error(t, err)

	expired, _ := GenerateJWTToken("u1", "user", &config.Config{JWTSecret: "testsecret", JWTTTL: -time.Minute})
	_, err = ParseJWTToken(expired, cfg)
	assert.Error(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := noUser.SignedString([]byte("testsecret"))
	require.NoError(t, err)
	_, err = ParseJWTToken(signed, cfg)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	for header, want := range map[string]string{
		"Bearer abc": "abc",
		"bearer abc": "abc",
		"abc":        "abc",
		"":           "",
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, want, string(body), header)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+79120001122", NormalizePhone("+7 (912) 000-11-22"))
	assert.Equal(t, "79120001122", NormalizePhone("7 912 000 11 22"))
	assert.Equal(t, "", NormalizePhone("  "))
	assert.Equal(t, "", NormalizePhone("+"))
	assert.Equal(t, "12", NormalizePhone("1+2"))
}

func TestContactKey(t *testing.T) {
	assert.Equal(t, "+15550100", ContactKey(" +1 555-0100 "))
	assert.Equal(t, "c8a5e0d2-contact", ContactKey(" c8a5e0d2-contact "))
	assert.Equal(t, "", ContactKey(""))
	assert.Equal(t, "123456", ContactKey("123-456"))
	assert.Equal(t, "-", ContactKey(" - "))
	assert.Equal(t, ContactKey("+1 555-0100"), ContactKey(ContactKey("+1 555-0100")))
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "radha@example.com", NormalizeEmail("  Radha@Example.COM "))
	assert.True(t, IsValidEmail("radha@example.com"))
	assert.False(t, IsValidEmail("radha@"))
	assert.False(t, IsValidEmail("radha.example.com"))
	assert.True(t, ContainsFold("Radha Devi", "DEV"))
}

func TestDates(t *testing.T) {
	assert.True(t, IsISODate("2024-02-29"))
	assert.False(t, IsISODate("2023-02-29"))
	assert.False(t, IsISODate("2024-2-9"))
	assert.True(t, IsClock("04:30"))
	assert.True(t, IsClock("23:59"))
	assert.False(t, IsClock("24:00"))
	assert.False(t, IsClock("4:30"))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Переход на летнее время: календарный сдвиг, а не 24 часа
	before := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)
	assert.Equal(t, "2024-03-10", FormatDate(AddDays(before, 1)))
	assert.Equal(t, "2024-03-02", FormatDate(AddDays(before, -7)))

	d, err := ParseDate("2024-05-06", loc)
	require.NoError(t, err)
	assert.Equal(t, StartOfDay(d), d)
	assert.Equal(t, loc, d.Location())
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hare-krishna")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hare-krishna"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestErrorHandlerKeepsEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
