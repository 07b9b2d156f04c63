package utils

import "github.com/gofiber/fiber/v2"

const sessionLocal = "session"

func SetSession(c *fiber.Ctx, s *Session) {
	c.Locals(sessionLocal, s)
}

// CurrentSession returns the session attached by middleware.Session, or nil.
func CurrentSession(c *fiber.Ctx) *Session {
	s, _ := c.Locals(sessionLocal).(*Session)
	return s
}
