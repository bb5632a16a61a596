package controllers

import (
	"github.com/gofiber/fiber/v2"

	"sadhana/backend/events"
	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/backend/repository"
	"sadhana/backend/utils"
)

type ActivityController struct {
	Deps
}

func NewActivityController(deps Deps) *ActivityController {
	return &ActivityController{Deps: deps.withDefaults()}
}

// ListActivities godoc
// @Summary List activities
// @Description Users see only their own records; admins may filter by userId
// @Tags activities
// @Produce json
// @Param userId query string false "User ID (admin only)"
// @Param startDate query string false "Inclusive start date (YYYY-MM-DD)"
// @Param endDate query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /activities [get]
func (ac *ActivityController) ListActivities(c *fiber.Ctx) error {
	claims := currentUser(c)

	filter := repository.ActivityFilter{UserID: claims.UserID}
	if claims.IsAdmin() {
		filter.UserID = c.Query("userId")
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return err
	}
	filter.DateRange = dateRange

	activities, err := ac.Store.Activities.List(c.UserContext(), filter)
	if err != nil {
		return ac.handleRepoError(c, err, "", "")
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"activities": activities})
}

// CreateActivity godoc
// @Summary Record a daily activity
// @Description One record per user and date; users may only record today
// @Tags activities
// @Accept json
// @Produce json
// @Param activity body models.Activity true "Activity"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /activities [post]
func (ac *ActivityController) CreateActivity(c *fiber.Ctx) error {
	claims := currentUser(c)

	var activity models.Activity
	if err := c.BodyParser(&activity); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	// Поля, которые задаёт только сервер
	activity.ID = ""
	activity.User = nil
	if !claims.IsAdmin() || activity.UserID == "" {
		activity.UserID = claims.UserID
	}
	now := ac.Now()
	if activity.Date == "" {
		activity.Date = utils.FormatDate(now)
	}
	if !claims.IsAdmin() && !report.CanEditActivity(activity.Date, now) {
		return utils.Forbidden(c, "Only today's activity can be recorded")
	}

	activity.Normalize()
	if errs := activity.Validate(); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	if claims.IsAdmin() && activity.UserID != claims.UserID {
		if _, err := ac.Store.Users.GetByID(c.UserContext(), activity.UserID); err != nil {
			return ac.handleRepoError(c, err, "User not found", "")
		}
	}

	if err := ac.Store.Activities.Create(c.UserContext(), &activity); err != nil {
		return ac.handleRepoError(c, err, "", "Activity for this date already exists")
	}

	created, err := ac.Store.Activities.GetByID(c.UserContext(), activity.ID)
	if err != nil {
		return ac.handleRepoError(c, err, "Activity not found", "")
	}

	ac.Metrics.ActivityWritten("create")
	ac.publish(c, events.ActivityRecorded, events.ActivityEvent{
		ActivityID: created.ID, UserID: created.UserID, Date: created.Date, ActorID: claims.UserID,
	})
	return utils.Created(c, fiber.Map{"activity": created})
}

// UpdateActivity godoc
// @Summary Update an activity
// @Description Partial update; owners may edit only today's record, admins any
// @Tags activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param activity body models.ActivityPatch true "Changed fields"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /activities/{id} [put]
func (ac *ActivityController) UpdateActivity(c *fiber.Ctx) error {
	claims := currentUser(c)

	activity, err := ac.Store.Activities.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return ac.handleRepoError(c, err, "Activity not found", "")
	}

	if !claims.IsAdmin() {
		if activity.UserID != claims.UserID {
			return utils.Forbidden(c, "You can only edit your own activities")
		}
		if !report.CanEditActivity(activity.Date, ac.Now()) {
			return utils.Forbidden(c, "Only today's activity can be edited")
		}
	}

	var patch models.ActivityPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	patch.Apply(activity)
	activity.Normalize()
	if errs := activity.Validate(); len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	if err := ac.Store.Activities.Update(c.UserContext(), activity); err != nil {
		return ac.handleRepoError(c, err, "Activity not found", "")
	}

	updated, err := ac.Store.Activities.GetByID(c.UserContext(), activity.ID)
	if err != nil {
		return ac.handleRepoError(c, err, "Activity not found", "")
	}

	ac.Metrics.ActivityWritten("update")
	ac.publish(c, events.ActivityUpdated, events.ActivityEvent{
		ActivityID: updated.ID, UserID: updated.UserID, Date: updated.Date, ActorID: claims.UserID,
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"activity": updated})
}

// parseDateRange читает startDate/endDate; формат проверяется, если значение задано.
// Ошибка - *fiber.Error с кодом 400, её отрисовывает utils.ErrorHandler.
func parseDateRange(c *fiber.Ctx) (models.DateRange, error) {
	r := models.DateRange{Start: c.Query("startDate"), End: c.Query("endDate")}
	if r.Start != "" && !utils.IsISODate(r.Start) {
		return models.DateRange{}, fiber.NewError(fiber.StatusBadRequest, "Invalid startDate format. Use YYYY-MM-DD")
	}
	if r.End != "" && !utils.IsISODate(r.End) {
		return models.DateRange{}, fiber.NewError(fiber.StatusBadRequest, "Invalid endDate format. Use YYYY-MM-DD")
	}
	return r, nil
}
