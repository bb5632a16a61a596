package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"sadhana/backend/models"
	"sadhana/backend/repository"
	"sadhana/backend/utils"
)

type AuthController struct {
	Deps
}

func NewAuthController(deps Deps) *AuthController {
	return &AuthController{Deps: deps.withDefaults()}
}

type RegisterRequest struct {
	Name     string      `json:"name" example:"Radha Devi"`
	Email    string      `json:"email" example:"radha@example.com" format:"email"`
	Password string      `json:"password" example:"password"`
	Role     models.Role `json:"role" example:"user" enums:"user,admin"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"radha@example.com"`
	Password string `json:"password" example:"password"`
}

// Register godoc
// @Summary Register a new user
// @Description Admin creates an account; password defaults to DEFAULT_USER_PASSWORD
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Role == "" {
		input.Role = models.RoleUser
	}

	errs := map[string]string{}
	if input.Name == "" {
		errs["name"] = "is required"
	}
	if !utils.IsValidEmail(input.Email) {
		errs["email"] = "must be a valid email"
	}
	if !input.Role.Valid() {
		errs["role"] = "must be admin or user"
	}
	if len(errs) > 0 {
		return utils.ValidationError(c, errs)
	}

	password := input.Password
	if password == "" {
		password = ac.Cfg.DefaultUserPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := ac.Store.Users.Create(c.UserContext(), user); err != nil {
		return ac.handleRepoError(c, err, "User not found", "Email already registered")
	}

	utils.RequestLogger(c, ac.Logger).Info("user registered", "new_user_id", user.ID, "role", user.Role)
	return utils.Created(c, fiber.Map{"user": user})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	user, err := ac.Store.Users.GetByEmail(c.UserContext(), input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return ac.handleRepoError(c, err, "", "")
	}

	if !utils.CheckPassword(user.PasswordHash, input.Password) {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, string(user.Role), ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout godoc
// @Summary User logout
// @Description Revokes the presented token until it expires
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/logout [post]
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	claims := currentUser(c)
	if ac.Denylist != nil {
		if err := ac.Denylist.Revoke(c.UserContext(), claims.TokenID, claims.ExpiresAt); err != nil {
			utils.RequestLogger(c, ac.Logger).Error("token revoke failed", "error", err)
			return utils.InternalServerError(c, "Could not log out")
		}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "Logged out"})
}
