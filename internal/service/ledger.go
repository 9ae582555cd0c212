package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/token"
)

// DefaultRefreshTTL is the refresh-token lifetime when none is configured.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// IssuedRefresh is a freshly minted refresh token.  Value is handed to the
// client once and never stored.
type IssuedRefresh struct {
	Value     string
	ExpiresAt time.Time
	Record    model.RefreshToken
}

// TokenPair is the result of login, registration and rotation.
type TokenPair struct {
	User         model.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access-token lifetime in seconds
}

// Ledger persists, verifies, rotates and revokes refresh tokens.
type Ledger struct {
	store  model.RefreshTokenStore
	users  model.UserStore
	issuer *token.Issuer
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock replaces time.Now.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLedgerLogger sets the logger used by the janitor.
func WithLedgerLogger(log *zap.Logger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

func NewLedger(store model.RefreshTokenStore, users model.UserStore, issuer *token.Issuer, ttl time.Duration, opts ...LedgerOption) *Ledger {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	l := &Ledger{store: store, users: users, issuer: issuer, ttl: ttl, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Issue creates and persists a new refresh token for userID.
func (l *Ledger) Issue(ctx context.Context, userID uint64) (IssuedRefresh, error) {
	return issueOn(ctx, l.store, userID, l.now().UTC().Add(l.ttl))
}

func issueOn(ctx context.Context, store model.RefreshTokenStore, userID uint64, exp time.Time) (IssuedRefresh, error) {
	raw, err := token.NewRefreshValue()
	if err != nil {
		return IssuedRefresh{}, err
	}
	rec, err := store.Create(ctx, model.RefreshToken{
		UserID:    userID,
		TokenHash: token.HashRefresh(raw),
		ExpiresAt: exp,
	})
	if err != nil {
		return IssuedRefresh{}, fmt.Errorf("store refresh token: %w", err)
	}
	return IssuedRefresh{Value: raw, ExpiresAt: exp, Record: rec}, nil
}

// Verify returns the active row for raw.  Unknown and revoked tokens are
// indistinguishable (ErrRefreshTokenNotFound).  An expired token is
// revoked on discovery and yields ErrRefreshTokenExpired.
func (l *Ledger) Verify(ctx context.Context, raw string) (model.RefreshToken, error) {
	if raw == "" {
		return model.RefreshToken{}, model.ErrRefreshTokenNotFound
	}
	hash := token.HashRefresh(raw)
	rec, err := l.store.FindActiveByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.RefreshToken{}, model.ErrRefreshTokenNotFound
		}
		return model.RefreshToken{}, err
	}
	now := l.now().UTC()
	if rec.Expired(now) {
		if _, err := l.store.RevokeByHash(ctx, hash, now); err != nil {
			return model.RefreshToken{}, err
		}
		return model.RefreshToken{}, model.ErrRefreshTokenExpired
	}
	return rec, nil
}

// Rotate exchanges raw for a new access token and a new refresh token.
// Revoking the old row and inserting the new one share a transaction and
// the revoke is conditional, so of two concurrent rotations of the same
// token exactly one succeeds.
func (l *Ledger) Rotate(ctx context.Context, raw string) (TokenPair, error) {
	rec, err := l.Verify(ctx, raw)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := l.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return TokenPair{}, model.ErrRefreshTokenNotFound
		}
		return TokenPair{}, err
	}
	if !IsActive(u) {
		return TokenPair{}, model.ErrAccountDeactivated
	}
	access, err := l.issuer.IssueAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}

	now := l.now().UTC()
	var next IssuedRefresh
	err = l.store.WithTx(ctx, func(tx model.RefreshTokenStore) error {
		revoked, err := tx.RevokeByHash(ctx, rec.TokenHash, now)
		if err != nil {
			return err
		}
		if !revoked {
			return model.ErrRefreshTokenNotFound
		}
		next, err = issueOn(ctx, tx, u.ID, now.Add(l.ttl))
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		User:         u,
		AccessToken:  access.Token,
		RefreshToken: next.Value,
		ExpiresIn:    int64(l.issuer.TTL() / time.Second),
	}, nil
}

// Revoke marks raw revoked.  Unknown or already revoked tokens are not an
// error.
func (l *Ledger) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	_, err := l.store.RevokeByHash(ctx, token.HashRefresh(raw), l.now().UTC())
	return err
}

// RevokeAll revokes every active refresh token of userID.
func (l *Ledger) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := l.store.RevokeAllForUser(ctx, userID, l.now().UTC())
	return err
}

// PurgeExpired deletes rows that can no longer authenticate.
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	return l.store.DeleteExpired(ctx, l.now().UTC())
}

// RunJanitor calls PurgeExpired every interval until ctx is cancelled.
func (l *Ledger) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := l.PurgeExpired(ctx)
			if err != nil {
				l.log.Warn("refresh token purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				l.log.Info("purged refresh tokens", zap.Int64("rows", n))
			}
		}
	}
}
