package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Формат логов (text/json)
	Format string
	// Уровень: debug, info, warn, error
	Level string
	// Выходной поток (os.Stdout, файл и т.д.)
	Output io.Writer
}

// InitLogger инициализирует и возвращает логгер
func InitLogger(config ...LoggerConfig) *slog.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler).With("app", "sadhana")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Ключи c.Locals, которые заполняют middleware
const (
	LocalRequestID = "request_id"
	LocalClaims    = "claims"
)

// RequestLogger добавляет к логгеру идентификаторы запроса и пользователя
func RequestLogger(c *fiber.Ctx, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	logger := base
	if id, ok := c.Locals(LocalRequestID).(string); ok && id != "" {
		logger = logger.With("request_id", id)
	}
	if claims, ok := c.Locals(LocalClaims).(*Claims); ok && claims != nil {
		logger = logger.With("user_id", claims.UserID)
	}
	return logger
}
