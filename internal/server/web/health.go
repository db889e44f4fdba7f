package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 2 * time.Second

func (s *Server) livez(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// readyz reports ready once the database answers a ping.
func (s *Server) readyz(c *fiber.Ctx) error {
	if s.deps.DB == nil {
		return c.SendString("ok")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "readiness check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).SendString("database unavailable")
	}

	return c.SendString("ok")
}
