package model

import (
	"context"
	"time"
)

// UserStore persists users.  Implementations return ErrNotFound for
// missing rows and ErrDuplicateEmail when the unique email index rejects
// a write.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id uint64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	Update(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
}

// RefreshTokenStore persists refresh-token rows keyed by the SHA-256 hash
// of the opaque value.
type RefreshTokenStore interface {
	Create(ctx context.Context, t RefreshToken) (RefreshToken, error)
	// FindActiveByHash returns the non-revoked row for hash or ErrNotFound.
	FindActiveByHash(ctx context.Context, hash string) (RefreshToken, error)
	// RevokeByHash flips revoked for a non-revoked row and reports whether
	// this call was the one that did it.
	RevokeByHash(ctx context.Context, hash string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	// WithTx runs fn against a store bound to one transaction.  A non-nil
	// error from fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(RefreshTokenStore) error) error
}
