package utils

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"sadhana/backend/config"
)

// Claims - данные, извлечённые из токена
type Claims struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

func GenerateJWTToken(userID, role string, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(cfg.JWTTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseJWTToken проверяет подпись и срок действия токена
func ParseJWTToken(tokenString string, cfg *config.Config) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userID, ok := mapClaims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	claims := &Claims{UserID: userID}
	claims.Role, _ = mapClaims["role"].(string)
	claims.TokenID, _ = mapClaims["jti"].(string)
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return claims, nil
}

// BearerToken достаёт токен из заголовка Authorization; префикс "Bearer " необязателен
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func ExtractClaimsFromToken(c *fiber.Ctx, cfg *config.Config) (*Claims, error) {
	tokenString := BearerToken(c)
	if tokenString == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}
	return ParseJWTToken(tokenString, cfg)
}
