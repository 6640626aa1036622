package fiber

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/storefront/core"
)

const (
	claimsKey   = "claims"
	tokenCookie = "token"
)

// guard returns nil to let the request through or the error to reject it with.
type guard func(c fiber.Ctx) error

// RequireAuth creates a Fiber middleware that validates the bearer token and
// stores its claims in the context for downstream handlers.
func (a *Adapter) RequireAuth(auth core.AuthProvider) fiber.Handler {
	check := a.authenticate(auth)
	return func(c fiber.Ctx) error {
		if err := check(c); err != nil {
			return a.respondError(c, err)
		}
		return c.Next()
	}
}

// RequireRole creates a Fiber middleware that admits only callers whose
// claims carry role. It must run after RequireAuth; without claims it rejects.
func (a *Adapter) RequireRole(role core.Role) fiber.Handler {
	check := a.authorize(role)
	return func(c fiber.Ctx) error {
		if err := check(c); err != nil {
			return a.respondError(c, err)
		}
		return c.Next()
	}
}

func (a *Adapter) authenticate(auth core.AuthProvider) guard {
	return func(c fiber.Ctx) error {
		token, present := extractToken(c)
		if !present {
			a.metrics.AuthEvent("authenticate", core.ErrMissingAuthHeader)
			return core.ErrMissingAuthHeader
		}

		claims, err := auth.Authenticate(token)
		a.metrics.AuthEvent("authenticate", err)
		if err != nil {
			return core.ErrInvalidToken
		}

		c.Locals(claimsKey, claims)
		return nil
	}
}

func (a *Adapter) authorize(role core.Role) guard {
	return func(c fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.HasRole(role) {
			a.metrics.RoleDenied(string(role))
			return core.ErrForbidden
		}
		return nil
	}
}

// guarded runs guards left to right, stopping at the first rejection, then
// the handler.
func (a *Adapter) guarded(operation string, guards []guard, handler fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		defer func() {
			a.metrics.ObserveRequest(operation, strconv.Itoa(c.Response().StatusCode()), time.Since(start))
		}()

		for _, g := range guards {
			if err := g(c); err != nil {
				return a.respondError(c, err)
			}
		}
		return handler(c)
	}
}

// ClaimsFrom returns the claims stored by the auth guard, or nil on
// routes without one.
func ClaimsFrom(c fiber.Ctx) *core.Claims {
	claims, _ := c.Locals(claimsKey).(*core.Claims)
	return claims
}

// extractToken extracts the access token from the request.
// Checks the Authorization header first, then falls back to the login cookie.
// present is false only when neither carries anything.
func extractToken(c fiber.Ctx) (token string, present bool) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", true
		}
		return strings.TrimSpace(value), true
	}

	if cookie := c.Cookies(tokenCookie); cookie != "" {
		return cookie, true
	}
	return "", false
}
