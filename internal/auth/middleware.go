package auth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// Identify stores the caller's user_id in locals when a valid bearer token is
// present. Anonymous requests pass through untouched.
func Identify(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return c.Next()
		}
		if claims, err := parseClaims(secretBytes, token); err == nil {
			c.Locals(userIDKey, claims.UserID)
		}
		return c.Next()
	}
}

// LoginRequired sends anonymous callers to loginPath with a next parameter
// pointing back at the requested URL. It must run after Identify.
func LoginRequired(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) != "" {
			return c.Next()
		}
		return c.Redirect(loginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

// JWTMiddleware rejects requests without a valid bearer token with 401.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := parseClaims(secretBytes, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals(userIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
