package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
)

// OwnerResolver returns the id of the user owning resource id, or
// model.ErrNotFound.
type OwnerResolver func(ctx context.Context, id uint64) (uint64, error)

// RequireRole rejects callers whose role does not satisfy role.  It must
// run after JWTAuth.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoToken)
			}
			if !id.Role.Satisfies(role) {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied. Insufficient permissions.")
			}
			return next(c)
		}
	}
}

// RequireOwnerOrRole lets the request through when the caller owns the
// resource named by the :id path parameter or holds role.  A missing
// resource is 404 and a malformed id 400.
func RequireOwnerOrRole(resolve OwnerResolver, role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoToken)
			}
			rid, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || rid == 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid ID")
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			owner, err := resolve(ctx, rid)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "Resource not found.")
				}
				return err
			}
			if !id.CanActOn(owner, role) {
				return echo.NewHTTPError(http.StatusForbidden, "Not authorized to modify this resource.")
			}
			return next(c)
		}
	}
}
