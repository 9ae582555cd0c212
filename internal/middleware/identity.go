package middleware

// identity.go stores and retrieves the authenticated caller on the Echo
// context.  JWTAuth writes it; guards, handlers and the rate limiter read
// it.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
)

const identityKey = "identity"

// SetIdentity attaches id to c.
func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller attached by JWTAuth.  ok is false on
// routes that did not pass through JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok && id.UserID != 0
}

// userID is the rate-limit key part for the caller, "anon" when
// unauthenticated.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
