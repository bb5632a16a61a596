package controllers

import (
	"github.com/gofiber/fiber/v2"

	"sadhana/backend/bhoga"
	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/backend/repository"
	"sadhana/backend/utils"
)

type AnalyticsController struct {
	Deps
}

func NewAnalyticsController(deps Deps) *AnalyticsController {
	return &AnalyticsController{Deps: deps.withDefaults()}
}

// StatusWindowPage - одна страница таблицы статусов проповеди
type StatusWindowPage struct {
	Date     string                   `json:"date"`
	Statuses []models.PreachingStatus `json:"statuses"`
}

// GetDashboard godoc
// @Summary Admin dashboard
// @Description Summary cards plus per-user rows; search matches name or email, date range is inclusive
// @Tags reports
// @Produce json
// @Param search query string false "Name or email substring"
// @Param startDate query string false "Inclusive start date (YYYY-MM-DD)"
// @Param endDate query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/dashboard [get]
func (ac *AnalyticsController) GetDashboard(c *fiber.Ctx) error {
	dateRange, err := parseDateRange(c)
	if err != nil {
		return err
	}

	users, activities, err := ac.loadAll(c)
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}

	filtered := report.Filter(activities, users, report.Criteria{
		SearchTerm: c.Query("search"),
		DateRange:  dateRange,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"summary":    report.Dashboard(users, activities, ac.Now()),
		"users":      report.UserReports(filtered.Users, filtered.Activities),
		"activities": report.SortByDateDesc(filtered.Activities),
	})
}

// GetMyStats godoc
// @Summary Current user's practice totals
// @Tags reports
// @Produce json
// @Param startDate query string false "Inclusive start date (YYYY-MM-DD)"
// @Param endDate query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/me [get]
func (ac *AnalyticsController) GetMyStats(c *fiber.Ctx) error {
	claims := currentUser(c)

	dateRange, err := parseDateRange(c)
	if err != nil {
		return err
	}

	activities, err := ac.Store.Activities.List(c.UserContext(), repository.ActivityFilter{
		UserID:    claims.UserID,
		DateRange: dateRange,
	})
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"stats": report.UserStats(claims.UserID, activities)})
}

// GetBhogaReport godoc
// @Summary Bhoga offerings for today and the next six days
// @Description Compares the weekly schedule with the offerings actually recorded
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/bhoga [get]
func (ac *AnalyticsController) GetBhogaReport(c *fiber.Ctx) error {
	now := ac.Now()

	rows, err := ac.Store.Schedule.Get(c.UserContext())
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}
	users, err := ac.Store.Users.List(c.UserContext())
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}
	offerings, err := ac.Store.Activities.List(c.UserContext(), repository.ActivityFilter{
		BhogaOnly: true,
		DateRange: models.DateRange{
			Start: utils.FormatDate(now),
			End:   utils.FormatDate(utils.AddDays(now, bhoga.WindowDays-1)),
		},
	})
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}

	days := bhoga.Reconcile(models.ScheduleFromAssignments(rows), offerings, users, now)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"days": days})
}

// GetPreachingReport godoc
// @Summary Preaching contacts of the last 30 days
// @Tags reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/preaching [get]
func (ac *AnalyticsController) GetPreachingReport(c *fiber.Ctx) error {
	users, activities, err := ac.loadAll(c)
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}

	summary := report.Preaching(activities, report.NewDirectory(users), ac.Now(),
		report.PreachingReportDays, report.PreachingRecentLimit)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"report": summary})
}

// GetStatusWindow godoc
// @Summary Preaching statuses from a week ago to a week ahead
// @Description Dates are newest first, 8 per page
// @Tags reports
// @Produce json
// @Param page query int false "Page number" default(1)
// @Success 200 {object} utils.PaginatedResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/preaching/window [get]
func (ac *AnalyticsController) GetStatusWindow(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	dates := report.DateWindow(ac.Now(), report.StatusWindowDays, report.StatusWindowDays)
	pageDates, _ := report.Paginate(dates, page, report.StatusWindowPageSize)

	rows := make([]StatusWindowPage, 0, len(pageDates))
	for _, date := range pageDates {
		statuses, err := ac.Store.Statuses.ListByDate(c.UserContext(), date)
		if err != nil {
			return ac.handleRepoError(c, err, "", "")
		}
		if statuses == nil {
			statuses = []models.PreachingStatus{}
		}
		rows = append(rows, StatusWindowPage{Date: date, Statuses: statuses})
	}

	return utils.Paginate(c, rows, len(dates), page, report.StatusWindowPageSize)
}

func (ac *AnalyticsController) loadAll(c *fiber.Ctx) ([]models.User, []models.Activity, error) {
	users, err := ac.Store.Users.List(c.UserContext())
	if err != nil {
		return nil, nil, err
	}
	activities, err := ac.Store.Activities.List(c.UserContext(), repository.ActivityFilter{})
	if err != nil {
		return nil, nil, err
	}
	return users, activities, nil
}
