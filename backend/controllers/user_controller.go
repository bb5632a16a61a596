package controllers

import (
	"github.com/gofiber/fiber/v2"

	"sadhana/backend/utils"
)

type UserController struct {
	Deps
}

func NewUserController(deps Deps) *UserController {
	return &UserController{Deps: deps.withDefaults()}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	user, err := uc.Store.Users.GetByID(c.UserContext(), currentUser(c).UserID)
	if err != nil {
		return uc.handleRepoError(c, err, "User not found", "")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": user})
}

// ListUsers godoc
// @Summary List users
// @Description Returns every registered account
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/api/users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := uc.Store.Users.List(c.UserContext())
	if err != nil {
		return uc.handleRepoError(c, err, "", "")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"users": users})
}
