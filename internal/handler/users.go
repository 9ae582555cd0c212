package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

// UserHandler serves the admin-only /api/users endpoints.
type UserHandler struct {
	Users *service.Users
}

func NewUserHandler(u *service.Users) *UserHandler { return &UserHandler{Users: u} }

type updateUserReq struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool   `json:"isActive"`
}

var errUserNotFound = echo.NewHTTPError(http.StatusNotFound, "User not found.")

func (h *UserHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return err
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return ok(c, http.StatusOK, "Users retrieved successfully.", echo.Map{"users": out, "pagination": newPagination(page, limit, total)})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errUserNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "User retrieved successfully.", echo.Map{"user": toUserResp(u)})
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	actor, _ := middleware.IdentityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, actor.UserID, id, service.UserUpdate{
		Name: req.Name, Email: req.Email, Role: req.Role, IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errUserNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "User updated successfully.", echo.Map{"user": toUserResp(u)})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	actor, _ := middleware.IdentityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, actor.UserID, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errUserNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "User deleted successfully.", nil)
}
