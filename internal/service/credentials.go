// Package service holds the authentication core: credential checks, the
// refresh token ledger and the flows that compose them with the token
// issuer.  Services depend on the store interfaces in package model and
// never on SQL directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/password"
)

// PasswordHasher is satisfied by *password.Hasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) (bool, error)
}

// Credentials creates users and checks their passwords.
type Credentials struct {
	users  model.UserStore
	hasher PasswordHasher
	dummy  string
}

// NewCredentials precomputes a dummy hash with the live hasher so that a
// login for an unknown email costs the same as a wrong password.
func NewCredentials(users model.UserStore, hasher PasswordHasher) (*Credentials, error) {
	dummy, err := hasher.Hash("not-a-real-password-7f3c1a")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Credentials{users: users, hasher: hasher, dummy: dummy}, nil
}

// Create hashes raw and inserts a new active user with the user role.
// The pre-check is only a fast path; the unique index decides.
func (c *Credentials) Create(ctx context.Context, name, email, raw string) (model.User, error) {
	return c.CreateWithRole(ctx, name, email, raw, model.RoleUser)
}

// CreateWithRole is Create for callers that pick the role, such as the
// admin bootstrap command.
func (c *Credentials) CreateWithRole(ctx context.Context, name, email, raw string, role model.Role) (model.User, error) {
	email = model.NormalizeEmail(email)
	if _, err := c.users.GetByEmail(ctx, email); err == nil {
		return model.User{}, model.ErrDuplicateEmail
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}
	hash, err := c.hasher.Hash(raw)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	return c.users.Create(ctx, model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
}

// VerifyCredentials returns the user whose password matches raw.  Unknown
// emails and wrong passwords both yield ErrInvalidCredentials after one
// hash comparison.  A deactivated account is reported only after the
// password was proven correct.
func (c *Credentials) VerifyCredentials(ctx context.Context, email, raw string) (model.User, error) {
	u, err := c.users.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_, _ = c.hasher.Compare(c.dummy, raw)
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, err
	}
	ok, err := c.CheckPassword(u, raw)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, model.ErrInvalidCredentials
	}
	if !IsActive(u) {
		return model.User{}, model.ErrAccountDeactivated
	}
	return u, nil
}

// CheckPassword compares raw against u's stored hash.
func (c *Credentials) CheckPassword(u model.User, raw string) (bool, error) {
	ok, err := c.hasher.Compare(u.PasswordHash, raw)
	if errors.Is(err, password.ErrUnknownHash) {
		return false, nil
	}
	return ok, err
}

// HashPassword hashes raw with the configured algorithm.
func (c *Credentials) HashPassword(raw string) (string, error) {
	return c.hasher.Hash(raw)
}

// UpdatePassword stores a new hash.  Revoking the user's refresh tokens is
// the caller's job.
func (c *Credentials) UpdatePassword(ctx context.Context, u model.User, newHash string) error {
	return c.users.UpdatePassword(ctx, u.ID, newHash)
}

// IsActive reports whether u may authenticate.
func IsActive(u model.User) bool { return u.IsActive }
