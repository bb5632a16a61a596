package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sadhana/backend/config"
	"sadhana/backend/controllers"
	"sadhana/backend/database"
	"sadhana/backend/events"
	"sadhana/backend/middleware"
	"sadhana/backend/repository"
	"sadhana/backend/repository/memory"
	"sadhana/backend/routes"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat, Level: cfg.LogLevel})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize storage
	var store *repository.Store
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = memory.New()
	default:
		db, err := database.InitDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if cfg.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}
		store = repository.NewGormStore(db)
	}

	if err := database.SeedAdmin(ctx, store.Users, cfg, logger); err != nil {
		return err
	}

	// Token denylist: redis, если задан адрес
	var denylist session.Denylist
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}
		denylist = session.NewRedisDenylist(rdb)
		logger.Info("redis denylist enabled", "addr", cfg.RedisAddr)
	} else {
		denylist = session.NewMemoryDenylist(time.Now)
	}

	// Event bus
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		publisher = nc
		logger.Info("nats publisher enabled", "url", cfg.NATSURL)
	}
	defer publisher.Close()

	app := routes.NewApp(controllers.Deps{
		Store:    store,
		Cfg:      cfg,
		Logger:   logger,
		Events:   publisher,
		Metrics:  middleware.NewMetrics(),
		Denylist: denylist,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.ServerPort, "storage", cfg.Storage)
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
