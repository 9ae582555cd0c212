// Package middleware provides the Echo middleware shared by all routes:
// bearer-token authentication, role and ownership guards, rate limiting,
// response caching and request logging.  Rejections are returned as
// *echo.HTTPError so the application's error handler renders them in the
// standard response envelope.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/token"
)

// Messages used for 401 responses.
const (
	MsgNoToken      = "Access denied. No token provided."
	MsgInvalidToken = "Invalid token."
	MsgExpiredToken = "Token expired."
)

// JWTAuth validates the Bearer access token and attaches the caller's
// identity to the context.  No database lookup is made.
func JWTAuth(issuer *token.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoToken)
			}
			claims, err := issuer.VerifyAccessToken(raw)
			if err != nil {
				if errors.Is(err, token.ErrExpiredToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, MsgExpiredToken)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
			}
			SetIdentity(c, claims.Identity())
			return next(c)
		}
	}
}

// bearer extracts the token from an Authorization header.  The scheme is
// matched case-insensitively.
func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(prefix):])
	return raw, raw != ""
}
