// Package middleware provides authentication, logging and tracing
// middleware for the stub API server.
package middleware

import (
	"strconv"
	"strings"

	"vibio/internal/config"
	"vibio/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// AuthRequired enforces a valid bearer token on protected routes and stores
// the authenticated user id in c.Locals("userID").
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c, "Invalid token claims")
	}

	// User id travels as a string in the "sub" claim.
	subStr, ok := claims["sub"].(string)
	if !ok {
		return unauthorized(c, "Invalid token subject")
	}
	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return unauthorized(c, "Invalid user ID in token")
	}

	c.Locals("userID", uint(userID))
	c.SetUserContext(observability.WithUserID(c.UserContext(), uint(userID)))
	return c.Next()
}
