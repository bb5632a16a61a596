package routes

import (
	"github.com/gofiber/fiber/v2"

	"sadhana/backend/controllers"
	"sadhana/backend/middleware"
	"sadhana/backend/utils"
)

// SetupRoutes регистрирует все маршруты API
func SetupRoutes(app *fiber.App, deps controllers.Deps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	// Auth routes
	authController := controllers.NewAuthController(deps)
	api.Post("/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(deps.Cfg, deps.Denylist, deps.Logger)
	adminMiddleware := middleware.AdminMiddleware()

	api.Post("/auth/register", authMiddleware, adminMiddleware, authController.Register)
	api.Post("/auth/logout", authMiddleware, authController.Logout)

	// User routes
	userController := controllers.NewUserController(deps)
	api.Get("/auth/profile", authMiddleware, userController.GetProfile)
	api.Get("/auth/api/users", authMiddleware, userController.ListUsers)

	// Bhoga schedule routes
	bhogaController := controllers.NewBhogaController(deps)
	api.Get("/auth/bhoga-schedule", authMiddleware, bhogaController.GetSchedule)
	api.Put("/auth/bhoga-schedule", authMiddleware, adminMiddleware, bhogaController.ReplaceSchedule)

	// Activity routes
	activityController := controllers.NewActivityController(deps)
	activities := api.Group("/activities", authMiddleware)
	activities.Get("/", activityController.ListActivities)
	activities.Post("/", activityController.CreateActivity)
	activities.Put("/:id", activityController.UpdateActivity)

	// Preaching status routes
	preachingController := controllers.NewPreachingController(deps)
	preaching := api.Group("/preachingStatus", authMiddleware)
	preaching.Get("/", preachingController.ListStatuses)
	preaching.Post("/bulk-update", preachingController.BulkUpdate)
	preaching.Put("/:userId/:date", preachingController.UpdateStatus)

	// Report routes
	analyticsController := controllers.NewAnalyticsController(deps)
	reports := api.Group("/reports", authMiddleware)
	reports.Get("/me", analyticsController.GetMyStats)
	reports.Get("/dashboard", adminMiddleware, analyticsController.GetDashboard)
	reports.Get("/bhoga", adminMiddleware, analyticsController.GetBhogaReport)
	reports.Get("/preaching", adminMiddleware, analyticsController.GetPreachingReport)
	reports.Get("/preaching/window", adminMiddleware, analyticsController.GetStatusWindow)
}
