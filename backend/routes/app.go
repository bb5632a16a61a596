package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"sadhana/backend/controllers"
	"sadhana/backend/middleware"
	"sadhana/backend/utils"
)

// NewApp собирает fiber-приложение со всеми middleware и маршрутами
func NewApp(deps controllers.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sadhana",
		ErrorHandler:          utils.ErrorHandler,
		DisableStartupMessage: true,
	})

	origins := "*"
	if deps.Cfg != nil && deps.Cfg.CORSOrigins != "" {
		origins = deps.Cfg.CORSOrigins
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: utils.LocalRequestID,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))
	if deps.Logger != nil {
		app.Use(middleware.LoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}

	SetupRoutes(app, deps)
	return app
}
