// Package testutil provides in-memory stores and helpers for unit tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/model"
)

// MakeNoopLogger returns a logger that discards everything.
func MakeNoopLogger() *zap.Logger { return zap.NewNop() }

// Users is a mutex-guarded model.UserStore.
type Users struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.User
}

var _ model.UserStore = (*Users)(nil)

func NewUsers() *Users { return &Users{rows: map[uint64]model.User{}} }

func (s *Users) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = model.NormalizeEmail(u.Email)
	for _, r := range s.rows {
		if r.Email == u.Email {
			return model.User{}, model.ErrDuplicateEmail
		}
	}
	s.nextID++
	u.ID = s.nextID
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.rows[u.ID] = u
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range s.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *Users) List(_ context.Context, limit, offset int) ([]model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.User, 0, len(s.rows))
	for _, u := range s.rows {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *Users) Update(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[u.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	u.Email = model.NormalizeEmail(u.Email)
	for id, r := range s.rows {
		if id != u.ID && r.Email == u.Email {
			return model.User{}, model.ErrDuplicateEmail
		}
	}
	cur.Name, cur.Email, cur.Role, cur.IsActive = u.Name, u.Email, u.Role, u.IsActive
	cur.UpdatedAt = time.Now().UTC()
	s.rows[u.ID] = cur
	return cur, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	s.rows[id] = u
	return nil
}

func (s *Users) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Tokens is a model.RefreshTokenStore.  WithTx works on a copy of the
// rows and swaps it in only when fn succeeds; the store lock is held for
// the whole transaction, so concurrent transactions serialize.
type Tokens struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[string]model.RefreshToken

	// FailCreate makes Create fail, to exercise rollback paths.
	FailCreate error
}

var _ model.RefreshTokenStore = (*Tokens)(nil)

func NewTokens() *Tokens { return &Tokens{rows: map[string]model.RefreshToken{}} }

// All returns a snapshot of every row, revoked included.
func (s *Tokens) All() []model.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RefreshToken, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active counts non-revoked rows of userID.
func (s *Tokens) Active(userID uint64) int {
	n := 0
	for _, r := range s.All() {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}

func (s *Tokens) Create(ctx context.Context, t model.RefreshToken) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().Create(ctx, t)
}

func (s *Tokens) FindActiveByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().FindActiveByHash(ctx, hash)
}

func (s *Tokens) RevokeByHash(ctx context.Context, hash string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().RevokeByHash(ctx, hash, at)
}

func (s *Tokens) RevokeAllForUser(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().RevokeAllForUser(ctx, userID, at)
}

func (s *Tokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().DeleteExpired(ctx, before)
}

func (s *Tokens) WithTx(ctx context.Context, fn func(model.RefreshTokenStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make(map[string]model.RefreshToken, len(s.rows))
	for k, v := range s.rows {
		rows[k] = v
	}
	tx := &tokensTx{parent: s, rows: rows, nextID: s.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	s.rows, s.nextID = tx.rows, tx.nextID
	return nil
}

// tx exposes the live rows through the transactional view; callers hold mu.
func (s *Tokens) tx() *tokensTx {
	return &tokensTx{parent: s, rows: s.rows, nextID: s.nextID, live: true}
}

var errDuplicateHash = errors.New("duplicate token hash")

type tokensTx struct {
	parent *Tokens
	rows   map[string]model.RefreshToken
	nextID uint64
	live   bool
}

func (t *tokensTx) Create(_ context.Context, rt model.RefreshToken) (model.RefreshToken, error) {
	if t.parent.FailCreate != nil {
		return model.RefreshToken{}, t.parent.FailCreate
	}
	if _, dup := t.rows[rt.TokenHash]; dup {
		return model.RefreshToken{}, errDuplicateHash
	}
	t.nextID++
	if t.live {
		t.parent.nextID = t.nextID
	}
	rt.ID = t.nextID
	rt.Revoked = false
	rt.RevokedAt = nil
	rt.CreatedAt = time.Now().UTC()
	t.rows[rt.TokenHash] = rt
	return rt, nil
}

func (t *tokensTx) FindActiveByHash(_ context.Context, hash string) (model.RefreshToken, error) {
	r, ok := t.rows[hash]
	if !ok || r.Revoked {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return r, nil
}

func (t *tokensTx) RevokeByHash(_ context.Context, hash string, at time.Time) (bool, error) {
	r, ok := t.rows[hash]
	if !ok || r.Revoked {
		return false, nil
	}
	r.Revoked, r.RevokedAt = true, &at
	t.rows[hash] = r
	return true, nil
}

func (t *tokensTx) RevokeAllForUser(_ context.Context, userID uint64, at time.Time) (int64, error) {
	var n int64
	for h, r := range t.rows {
		if r.UserID == userID && !r.Revoked {
			r.Revoked, r.RevokedAt = true, &at
			t.rows[h] = r
			n++
		}
	}
	return n, nil
}

func (t *tokensTx) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for h, r := range t.rows {
		if r.ExpiresAt.Before(before) || (r.Revoked && r.RevokedAt != nil && r.RevokedAt.Before(before)) {
			delete(t.rows, h)
			n++
		}
	}
	return n, nil
}

func (t *tokensTx) WithTx(_ context.Context, fn func(model.RefreshTokenStore) error) error {
	return fn(t)
}
