package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/blog-api/internal/model"
)

// TokenRepo persists refresh tokens.  Only the SHA-256 digest of the
// opaque value is stored in token_hash.
type TokenRepo struct {
	db *sql.DB // nil when bound to a transaction
	q  dbtx
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db, q: db} }

var _ model.RefreshTokenStore = (*TokenRepo)(nil)

// Create inserts a refresh token row.
func (r *TokenRepo) Create(ctx context.Context, t model.RefreshToken) (model.RefreshToken, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked) VALUES (?,?,?,0)",
		t.UserID, t.TokenHash, t.ExpiresAt.UTC())
	if err != nil {
		return model.RefreshToken{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RefreshToken{}, err
	}
	t.ID = uint64(id)
	t.Revoked = false
	t.RevokedAt = nil
	return t, nil
}

// FindActiveByHash returns the non-revoked row for hash.  Expiry is left
// to the caller so it can revoke lazily.
func (r *TokenRepo) FindActiveByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? AND revoked=0 LIMIT 1",
		hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return t, nil
}

// RevokeByHash marks a token as revoked.  The revoked=0 guard makes the
// update conditional; true means this call performed the revocation.
func (r *TokenRepo) RevokeByHash(ctx context.Context, hash string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1, revoked_at=? WHERE token_hash=? AND revoked=0",
		at.UTC(), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1, revoked_at=? WHERE user_id=? AND revoked=0",
		at.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes rows that expired before the cutoff and rows
// revoked before it.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR (revoked=1 AND revoked_at < ?)",
		before.UTC(), before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// WithTx runs fn inside one transaction.  Calling WithTx on a repo that is
// already bound to a transaction reuses it.
func (r *TokenRepo) WithTx(ctx context.Context, fn func(model.RefreshTokenStore) error) (err error) {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()
	return fn(&TokenRepo{q: tx})
}
