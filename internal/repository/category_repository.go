package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/blog-api/internal/model"
)

// CategoryRepo encapsulates queries on the categories table.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns every category ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, slug, description, created_at, updated_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, description, created_at, updated_at FROM categories WHERE id=?", id)
	return scanCategory(row)
}

// Create inserts c; a clashing slug yields ErrDuplicateSlug.
func (r *CategoryRepo) Create(ctx context.Context, c model.Category) (model.Category, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, slug, description) VALUES (?,?,?)",
		c.Name, c.Slug, c.Description)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Category{}, model.ErrDuplicateSlug
		}
		return model.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update rewrites name, slug and description.
func (r *CategoryRepo) Update(ctx context.Context, c model.Category) (model.Category, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name=?, slug=?, description=? WHERE id=?",
		c.Name, c.Slug, c.Description, c.ID); err != nil {
		if isDuplicateKey(err) {
			return model.Category{}, model.ErrDuplicateSlug
		}
		return model.Category{}, err
	}
	return r.GetByID(ctx, c.ID)
}

// Delete removes the category; posts keep existing with category_id NULL.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanCategory(s scanner) (model.Category, error) {
	var (
		c    model.Category
		desc sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, model.ErrNotFound
		}
		return model.Category{}, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	return c, nil
}
