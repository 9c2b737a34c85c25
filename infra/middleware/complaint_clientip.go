package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIPKey is the request-scoped local under which the resolved
// client IP is stored.
const ClientIPKey = "client_ip"

// ClientIP resolves the originating client address by inspecting
// forwarding headers in priority order, then falling back to the
// transport-level peer address, and stores it in request locals. The
// resolved value feeds the geolocation lookup during complaint creation.
func ClientIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := resolveClientIP(c)
		c.Locals(ClientIPKey, ip)
		return c.Next()
	}
}

// GetClientIP returns the IP resolved by the ClientIP middleware, or
// the transport peer address when the middleware did not run.
func GetClientIP(c *fiber.Ctx) string {
	if ip, ok := c.Locals(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return c.IP()
}

func resolveClientIP(c *fiber.Ctx) string {
	// X-Forwarded-For carries the full proxy chain; the first hop is
	// the original client.
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}

	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}

	return c.IP()
}
