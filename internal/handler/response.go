// Package handler contains the HTTP handlers.  Handlers bind and validate
// input, call a service or repository and return either a response or an
// error; ErrorHandler is the single place where errors become status
// codes and envelopes.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/model"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    any                `json:"data,omitempty"`
	Errors  []model.FieldError `json:"errors,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Pagination describes one page of a list response.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

func newPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{CurrentPage: page, TotalPages: pages, TotalItems: total, ItemsPerPage: limit}
}

// ErrorHandler renders every error as an Envelope.  Internal detail is
// attached only when Expose is set (non-production).
type ErrorHandler struct {
	Log    *zap.Logger
	Expose bool
}

// Handle implements echo.HTTPErrorHandler.
func (h ErrorHandler) Handle(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, env := h.translate(err)
	if status >= http.StatusInternalServerError && h.Log != nil {
		h.Log.Error("unhandled error",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, env)
	}
	if werr != nil && h.Log != nil {
		h.Log.Warn("write error response", zap.Error(werr))
	}
}

func (h ErrorHandler) translate(err error) (int, Envelope) {
	env := Envelope{Success: false}

	var ve *model.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		env.Message = ve.Message
		env.Errors = ve.Fields
		return http.StatusBadRequest, env
	case errors.Is(err, model.ErrDuplicateEmail):
		env.Message = "Email already registered."
		return http.StatusBadRequest, env
	case errors.Is(err, model.ErrDuplicateSlug):
		env.Message = "A record with this name already exists."
		return http.StatusBadRequest, env
	case errors.Is(err, model.ErrInvalidCredentials):
		env.Message = "Invalid email or password."
		return http.StatusUnauthorized, env
	case errors.Is(err, model.ErrAccountDeactivated):
		env.Message = "Account is deactivated."
		return http.StatusUnauthorized, env
	case errors.Is(err, model.ErrInvalidRefreshToken):
		env.Message = "Invalid or expired refresh token."
		return http.StatusUnauthorized, env
	case errors.Is(err, model.ErrUnauthenticated):
		env.Message = "Access denied. No token provided."
		return http.StatusUnauthorized, env
	case errors.Is(err, model.ErrForbidden):
		env.Message = "Access denied."
		return http.StatusForbidden, env
	case errors.Is(err, model.ErrNotFound):
		env.Message = "Resource not found."
		return http.StatusNotFound, env
	case errors.As(err, &he):
		env.Message = httpErrorMessage(he)
		if he.Internal != nil && h.Expose {
			env.Error = he.Internal.Error()
		}
		return he.Code, env
	}

	env.Message = "Server error."
	if h.Expose {
		env.Error = err.Error()
	}
	return http.StatusInternalServerError, env
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
