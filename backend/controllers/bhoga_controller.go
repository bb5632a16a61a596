package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"sadhana/backend/events"
	"sadhana/backend/models"
	"sadhana/backend/utils"
)

type BhogaController struct {
	Deps
}

func NewBhogaController(deps Deps) *BhogaController {
	return &BhogaController{Deps: deps.withDefaults()}
}

// GetSchedule godoc
// @Summary Get bhoga schedule
// @Description Weekday to assigned user; sunday is always "No Offering Duty"
// @Tags bhoga
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/bhoga-schedule [get]
func (bc *BhogaController) GetSchedule(c *fiber.Ctx) error {
	schedule, err := bc.loadSchedule(c)
	if err != nil {
		return bc.handleRepoError(c, err, "", "")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"schedule": schedule})
}

// ReplaceSchedule godoc
// @Summary Replace bhoga schedule
// @Description All six weekdays (monday..saturday) must be present; null clears a day, sunday is ignored
// @Tags bhoga
// @Accept json
// @Produce json
// @Param schedule body map[string]interface{} true "Weekday to user id or user object"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/bhoga-schedule [put]
func (bc *BhogaController) ReplaceSchedule(c *fiber.Ctx) error {
	var schedule models.BhogaSchedule
	if err := json.Unmarshal(c.Body(), &schedule); err != nil {
		return utils.BadRequest(c, "Invalid schedule: "+err.Error())
	}

	errs := map[string]string{}
	for _, d := range schedule.Missing() {
		errs[d.String()] = "is required"
	}
	// Назначать можно только существующих пользователей
	for _, d := range models.EditableWeekdays {
		ref := schedule.Get(d)
		if ref == nil {
			continue
		}
		if _, err := bc.Store.Users.GetByID(c.UserContext(), ref.ID); err != nil {
			errs[d.String()] = "unknown user " + ref.ID
		}
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	if err := bc.Store.Schedule.Replace(c.UserContext(), schedule.Assignments()); err != nil {
		return bc.handleRepoError(c, err, "", "")
	}

	saved, err := bc.loadSchedule(c)
	if err != nil {
		return bc.handleRepoError(c, err, "", "")
	}

	claims := currentUser(c)
	assignments := make(map[string]string, len(models.EditableWeekdays))
	for _, d := range models.EditableWeekdays {
		if ref := saved.Get(d); ref != nil {
			assignments[d.String()] = ref.ID
		} else {
			assignments[d.String()] = ""
		}
	}
	bc.Metrics.ScheduleReplaced()
	bc.publish(c, events.BhogaScheduleReplaced, events.ScheduleEvent{ActorID: claims.UserID, Assignments: assignments})
	utils.RequestLogger(c, bc.Logger).Info("bhoga schedule replaced")

	return utils.Success(c, fiber.StatusOK, fiber.Map{"schedule": saved})
}

func (bc *BhogaController) loadSchedule(c *fiber.Ctx) (models.BhogaSchedule, error) {
	rows, err := bc.Store.Schedule.Get(c.UserContext())
	if err != nil {
		return models.BhogaSchedule{}, err
	}
	return models.ScheduleFromAssignments(rows), nil
}
