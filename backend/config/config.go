package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Хранилища, поддерживаемые сервером
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	ServerPort string
	Storage    string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int
	DBMaxIdleConns int
	AutoMigrate    bool

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	// Часовой пояс, в котором считается "сегодня"
	Location *time.Location

	AdminName           string
	AdminEmail          string
	AdminPassword       string
	DefaultUserPassword string

	LogLevel    string
	LogFormat   string
	CORSOrigins string
}

// LoadConfig читает .env (если есть) и переменные окружения.
// Все некорректные значения собираются и возвращаются одной ошибкой.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using environment variables")
	}

	var problems []string
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Storage:    strings.ToLower(getEnv("STORAGE", StoragePostgres)),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "sadhana"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 10, &problems),
		DBMaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5, &problems),
		AutoMigrate:    getBool("DB_AUTO_MIGRATE", true, &problems),

		JWTSecret: getEnv("JWT_SECRET", "secret"),
		JWTTTL:    getDuration("JWT_TTL", 72*time.Hour, &problems),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0, &problems),

		NATSURL: getEnv("NATS_URL", ""),

		AdminName:           getEnv("ADMIN_NAME", "Administrator"),
		AdminEmail:          getEnv("ADMIN_EMAIL", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		DefaultUserPassword: getEnv("DEFAULT_USER_PASSWORD", "password"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}

	tz := getEnv("APP_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Sprintf("APP_TIMEZONE: unknown location %q", tz))
	}
	cfg.Location = loc

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		problems = append(problems, fmt.Sprintf("STORAGE: must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage))
	}
	if cfg.JWTTTL <= 0 {
		problems = append(problems, "JWT_TTL: must be positive")
	}

	if len(problems) > 0 {
		return nil, errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return cfg, nil
}

// ClientConfig описывает подключение CLI к серверу
type ClientConfig struct {
	BaseURL             string
	Token               string
	Timeout             time.Duration
	UserRefreshInterval time.Duration
	// Перезагружать статусы после bulk-update
	ReloadAfterBulkUpdate bool
	Location              *time.Location
}

// LoadClientConfig читает настройки клиента из .env и окружения
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	var problems []string
	cfg := &ClientConfig{
		BaseURL:               strings.TrimRight(getEnv("SADHANA_URL", "http://localhost:8080/api"), "/"),
		Token:                 getEnv("SADHANA_TOKEN", ""),
		Timeout:               getDuration("SADHANA_TIMEOUT", 10*time.Second, &problems),
		UserRefreshInterval:   getDuration("SADHANA_USER_REFRESH_INTERVAL", 300*time.Millisecond, &problems),
		ReloadAfterBulkUpdate: getBool("RELOAD_AFTER_BULK_UPDATE", false, &problems),
	}

	tz := getEnv("APP_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Sprintf("APP_TIMEZONE: unknown location %q", tz))
	}
	cfg.Location = loc

	if len(problems) > 0 {
		return nil, errors.New("invalid client configuration: " + strings.Join(problems, "; "))
	}
	return cfg, nil
}

// DSN собирает строку подключения к Postgres
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Now возвращает текущее время в часовом поясе приложения
func (c *Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, problems *[]string) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: not an integer: %q", key, raw))
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool, problems *[]string) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: not a boolean: %q", key, raw))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s: not a duration: %q", key, raw))
		return defaultValue
	}
	return v
}
