package controllers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"sadhana/backend/config"
	"sadhana/backend/events"
	"sadhana/backend/middleware"
	"sadhana/backend/repository"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

// Deps - общие зависимости контроллеров
type Deps struct {
	Store    *repository.Store
	Cfg      *config.Config
	Logger   *slog.Logger
	Events   events.Publisher
	Metrics  *middleware.Metrics
	Denylist session.Denylist
	// Now задаёт "сегодня"; по умолчанию cfg.Now
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Events == nil {
		d.Events = events.NoopPublisher{}
	}
	if d.Now == nil {
		d.Now = d.Cfg.Now
	}
	return d
}

// handleRepoError переводит ошибки репозитория в HTTP-ответы
func (d Deps) handleRepoError(c *fiber.Ctx, err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFound(c, notFound)
	case errors.Is(err, repository.ErrConflict):
		return utils.Conflict(c, conflict)
	default:
		utils.RequestLogger(c, d.Logger).Error("repository error", "error", err)
		return utils.InternalServerError(c, "Could not query database")
	}
}

// publish не влияет на результат запроса: ошибка шины только логируется
func (d Deps) publish(c *fiber.Ctx, subject string, data interface{}) {
	if err := d.Events.Publish(c.UserContext(), subject, data); err != nil {
		utils.RequestLogger(c, d.Logger).Warn("event publish failed", "subject", subject, "error", err)
	}
}

func currentUser(c *fiber.Ctx) *utils.Claims {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return &utils.Claims{}
	}
	return claims
}
