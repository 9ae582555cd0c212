package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.Auth
}

func NewAuthHandler(a *service.Auth) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
type logoutReq struct {
	RefreshToken string `json:"refreshToken"`
}
type profileReq struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// userResp is the public projection of a user; the hash never leaves the
// service.
type userResp struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role,
		IsActive: u.IsActive, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

type authResp struct {
	User         *userResp `json:"user,omitempty"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
}

func toAuthResp(p service.TokenPair, withUser bool) authResp {
	r := authResp{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresIn: p.ExpiresIn}
	if withUser {
		u := toUserResp(p.User)
		r.User = &u
	}
	return r
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "User registered successfully.", toAuthResp(pair, true))
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Login successful.", toAuthResp(pair, true))
}

// Refresh: rotate the presented token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Token refreshed successfully.", toAuthResp(pair, false))
}

// Logout always answers 200 so an unauthenticated caller learns nothing
// about the token it presented.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.Auth.Logout(ctx, req.RefreshToken)
	return ok(c, http.StatusOK, "Logged out successfully.", nil)
}

// LogoutAll revokes every refresh token of the caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.LogoutAll(ctx, id.UserID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Logged out from all devices successfully.", nil)
}

func (h *AuthHandler) Profile(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Profile(ctx, id.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Profile retrieved successfully.", echo.Map{"user": toUserResp(u)})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	var req profileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, id.UserID, service.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Profile updated successfully.", echo.Map{"user": toUserResp(u)})
}

// ChangePassword revokes every refresh token on success; the client must
// log in again.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	var req changePasswordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Password changed successfully. Please login again.", nil)
}
