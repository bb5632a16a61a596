package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"sadhana/backend/config"
	"sadhana/backend/session"
	"sadhana/backend/utils"
)

// AuthMiddleware проверяет токен и кладёт claims в c.Locals
func AuthMiddleware(cfg *config.Config, denylist session.Denylist, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, err.Error())
		}

		if denylist != nil {
			revoked, err := denylist.IsRevoked(c.UserContext(), claims.TokenID)
			if err != nil {
				utils.RequestLogger(c, logger).Error("denylist lookup failed", "error", err)
				return utils.InternalServerError(c, "Could not verify token")
			}
			if revoked {
				return utils.Unauthorized(c, "Token has been revoked")
			}
		}

		c.Locals(utils.LocalClaims, claims)
		return c.Next()
	}
}

// AdminMiddleware пропускает только администраторов. Ставится после AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := CurrentClaims(c)
		if claims == nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !claims.IsAdmin() {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}
		return c.Next()
	}
}

// CurrentClaims возвращает claims текущего запроса или nil
func CurrentClaims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(utils.LocalClaims).(*utils.Claims)
	return claims
}
