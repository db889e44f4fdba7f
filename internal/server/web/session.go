package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/server/auth"
)

// setSession issues a signed session cookie for userID. The cookie itself
// has no expiry and ends with the browser session; the token inside expires
// after SessionTTL.
func (s *Server) setSession(c *fiber.Ctx, userID int64) error {
	token, err := auth.GenerateToken(userID, s.secret, s.opts.SessionTTL)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:        common.SessionCookieName,
		Value:       token,
		Path:        "/",
		HTTPOnly:    true,
		Secure:      s.opts.CookieSecure,
		SameSite:    fiber.CookieSameSiteLaxMode,
		SessionOnly: true,
	})
	return nil
}

func (s *Server) clearSession(c *fiber.Ctx) {
	expireCookie(c, common.SessionCookieName, s.opts.CookieSecure)
}

func expireCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// loadSession verifies the session cookie, if any, and stores the identity
// in the request context. A bad or expired token is dropped.
func (s *Server) loadSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(common.SessionCookieName)
		if token == "" {
			return c.Next()
		}

		id, err := auth.IdentityFromToken(token, s.secret)
		if err != nil {
			s.logger.Info(c.UserContext(), "session rejected", "error", err)
			s.clearSession(c)
			return c.Next()
		}

		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// requireLogin redirects anonymous requests to the login page with msg.
func (s *Server) requireLogin(msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.IdentityFromContext(c.UserContext()); !ok {
			s.addFlash(c, msg)
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

func loggedIn(c *fiber.Ctx) bool {
	_, ok := auth.IdentityFromContext(c.UserContext())
	return ok
}
