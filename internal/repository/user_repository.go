package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/blog-api/internal/model"
)

// UserRepo implements model.UserStore on MySQL.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

var _ model.UserStore = (*UserRepo)(nil)

const userColumns = "id, name, email, password_hash, role, is_active, created_at, updated_at"

// Create inserts u and returns the stored row.  The unique email index is
// the source of truth for uniqueness; a 1062 maps to ErrDuplicateEmail.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, is_active) VALUES (?,?,?,?,?)",
		u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.IsActive)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, model.ErrDuplicateEmail
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		model.NormalizeEmail(email))
	return scanUser(row)
}

// List returns one page of users, newest first, and the total count.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update writes name, email, role and is_active for u.ID.
func (r *UserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=?, is_active=? WHERE id=?",
		u.Name, model.NormalizeEmail(u.Email), string(u.Role), u.IsActive, u.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, model.ErrDuplicateEmail
		}
		return model.User{}, err
	}
	// MySQL reports 0 affected rows when nothing changed, so existence is
	// decided by the follow-up read.
	return r.GetByID(ctx, u.ID)
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes the user; refresh tokens, posts and comments cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanUser(s scanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}
