package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"sadhana/backend/events"
	"sadhana/backend/models"
	"sadhana/backend/utils"
)

type PreachingController struct {
	Deps
}

func NewPreachingController(deps Deps) *PreachingController {
	return &PreachingController{Deps: deps.withDefaults()}
}

// ListStatuses godoc
// @Summary List preaching statuses for a date
// @Tags preaching
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /preachingStatus [get]
func (pc *PreachingController) ListStatuses(c *fiber.Ctx) error {
	date := c.Query("date")
	if !utils.IsISODate(date) {
		return utils.BadRequest(c, "Invalid date format. Use YYYY-MM-DD")
	}

	statuses, err := pc.Store.Statuses.ListByDate(c.UserContext(), date)
	if err != nil {
		return pc.handleRepoError(c, err, "", "")
	}
	if statuses == nil {
		statuses = []models.PreachingStatus{}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"statuses": statuses})
}

// UpdateStatus godoc
// @Summary Set follow-up status of one contact
// @Description Users may only write their own statuses; admins may write for anyone
// @Tags preaching
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param status body models.StatusUpdate true "Status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /preachingStatus/{userId}/{date} [put]
func (pc *PreachingController) UpdateStatus(c *fiber.Ctx) error {
	claims := currentUser(c)
	userID, date := c.Params("userId"), c.Params("date")

	if !utils.IsISODate(date) {
		return utils.BadRequest(c, "Invalid date format. Use YYYY-MM-DD")
	}
	if !claims.IsAdmin() && userID != claims.UserID {
		return utils.Forbidden(c, "You can only update your own contacts")
	}

	var input models.StatusUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	input.UserID = userID
	input.ContactNumber = utils.ContactKey(input.ContactNumber)
	if input.ContactNumber == "" {
		return utils.ValidationError(c, map[string]string{"contactNumber": "is required"})
	}

	status := input.ToStatus(date, claims.UserID)
	if err := pc.Store.Statuses.Upsert(c.UserContext(), []models.PreachingStatus{status}); err != nil {
		return pc.handleRepoError(c, err, "", "")
	}

	saved, err := pc.Store.Statuses.ListByDate(c.UserContext(), date)
	if err != nil {
		return pc.handleRepoError(c, err, "", "")
	}
	for _, s := range saved {
		if s.UserID == status.UserID && s.ContactNumber == status.ContactNumber {
			status = s
			break
		}
	}

	pc.Metrics.StatusesWritten(1)
	pc.publish(c, events.PreachingStatusUpdated, events.StatusEvent{Date: date, ActorID: claims.UserID, Count: 1})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"status": status})
}

// BulkUpdate godoc
// @Summary Save several preaching statuses of one date
// @Description Rows without userId belong to the caller; repeated keys keep the last row
// @Tags preaching
// @Accept json
// @Produce json
// @Param request body models.BulkStatusUpdate true "Updates"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /preachingStatus/bulk-update [post]
func (pc *PreachingController) BulkUpdate(c *fiber.Ctx) error {
	claims := currentUser(c)

	var input models.BulkStatusUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if !utils.IsISODate(input.Date) {
		return utils.ValidationError(c, map[string]string{"date": "must be YYYY-MM-DD"})
	}

	errs := map[string]string{}
	type key struct{ user, contact string }
	index := map[key]int{}
	statuses := make([]models.PreachingStatus, 0, len(input.Updates))
	for i, u := range input.Updates {
		if u.UserID == "" {
			u.UserID = claims.UserID
		}
		if !claims.IsAdmin() && u.UserID != claims.UserID {
			return utils.Forbidden(c, "You can only update your own contacts")
		}
		u.ContactNumber = utils.ContactKey(u.ContactNumber)
		if u.ContactNumber == "" {
			errs[fmt.Sprintf("updates[%d].contactNumber", i)] = "is required"
			continue
		}

		// Повтор ключа в одном запросе: побеждает последняя строка
		k := key{u.UserID, u.ContactNumber}
		if at, ok := index[k]; ok {
			statuses[at] = u.ToStatus(input.Date, claims.UserID)
			continue
		}
		index[k] = len(statuses)
		statuses = append(statuses, u.ToStatus(input.Date, claims.UserID))
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	if err := pc.Store.Statuses.Upsert(c.UserContext(), statuses); err != nil {
		return pc.handleRepoError(c, err, "", "")
	}

	saved, err := pc.Store.Statuses.ListByDate(c.UserContext(), input.Date)
	if err != nil {
		return pc.handleRepoError(c, err, "", "")
	}
	if saved == nil {
		saved = []models.PreachingStatus{}
	}

	pc.Metrics.StatusesWritten(len(statuses))
	pc.publish(c, events.PreachingStatusUpdated, events.StatusEvent{Date: input.Date, ActorID: claims.UserID, Count: len(statuses)})
	utils.RequestLogger(c, pc.Logger).Info("preaching statuses saved", "date", input.Date, "count", len(statuses))
	return utils.Success(c, fiber.StatusOK, fiber.Map{"statuses": saved})
}
