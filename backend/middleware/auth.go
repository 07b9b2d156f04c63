package middleware

import (
	"github.com/gofiber/fiber/v2"

	"proficiency/backend/apperr"
	"proficiency/backend/config"
	"proficiency/backend/models"
	"proficiency/backend/utils"
)

// Session decodes the session cookie when present. A missing or invalid token
// is treated as an anonymous request; guards below decide what that means.
func Session(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(utils.SessionCookie)
		if token == "" {
			return c.Next()
		}
		if s, err := utils.ParseSessionToken(token, cfg); err == nil {
			utils.SetSession(c, s)
		}
		return c.Next()
	}
}

func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if utils.CurrentSession(c) == nil {
			return utils.Error(c, apperr.Unauthorized())
		}
		return c.Next()
	}
}

// RequireRole rejects sessions of any other role with 401.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := utils.CurrentSession(c)
		if s == nil || s.Role != role {
			return utils.Error(c, apperr.Unauthorized())
		}
		return c.Next()
	}
}

func AdminMiddleware() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}

func CandidateMiddleware() fiber.Handler {
	return RequireRole(models.RoleCandidate)
}
