package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sadhana/backend/config"
	"sadhana/backend/models"
	"sadhana/backend/repository"
	"sadhana/backend/utils"
)

// SeedAdmin создаёт администратора из ADMIN_EMAIL/ADMIN_PASSWORD.
// Повторный запуск ничего не меняет.
func SeedAdmin(ctx context.Context, users repository.UserRepository, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("admin seed skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		logger.Debug("admin already exists", "email", cfg.AdminEmail)
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: hash password: %w", err)
	}
	admin := &models.User{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("admin seeded", "email", admin.Email, "user_id", admin.ID)
	return nil
}
