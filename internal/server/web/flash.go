package web

import (
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/duplofs/internal/common"
)

const (
	flashTTL       = 10 * time.Minute
	maxFlashes     = 5
	maxFlashLength = 512
	flashLocalsKey = "flashes"
)

// flashClaims is the signed payload of the flash cookie.
type flashClaims struct {
	jwt.RegisteredClaims
	Messages []string `json:"msgs"`
}

// pendingFlashes returns the notices queued for display: those added during
// this request, or else those carried in by the flash cookie.
func (s *Server) pendingFlashes(c *fiber.Ctx) []string {
	if msgs, ok := c.Locals(flashLocalsKey).([]string); ok {
		return msgs
	}

	var msgs []string
	if raw := c.Cookies(common.FlashCookieName); raw != "" {
		claims := &flashClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil {
			msgs = claims.Messages
		}
	}

	c.Locals(flashLocalsKey, msgs)
	return msgs
}

// addFlash queues msg for the next rendered page.
func (s *Server) addFlash(c *fiber.Ctx, msg string) {
	msg = truncateUTF8(msg, maxFlashLength)

	msgs := append(s.pendingFlashes(c), msg)
	if len(msgs) > maxFlashes {
		msgs = msgs[len(msgs)-maxFlashes:]
	}
	c.Locals(flashLocalsKey, msgs)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, flashClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
		Messages: msgs,
	}).SignedString(s.secret)
	if err != nil {
		s.logger.Error(c.UserContext(), "sign flash", "error", err)
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:        common.FlashCookieName,
		Value:       token,
		Path:        "/",
		HTTPOnly:    true,
		Secure:      s.opts.CookieSecure,
		SameSite:    fiber.CookieSameSiteLaxMode,
		SessionOnly: true,
	})
}

// popFlashes returns and discards all pending notices.
func (s *Server) popFlashes(c *fiber.Ctx) []string {
	msgs := s.pendingFlashes(c)
	c.Locals(flashLocalsKey, []string(nil))
	if c.Cookies(common.FlashCookieName) != "" || len(msgs) > 0 {
		expireCookie(c, common.FlashCookieName, s.opts.CookieSecure)
	}
	return msgs
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
