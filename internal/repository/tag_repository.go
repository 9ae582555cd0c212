package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/blog-api/internal/model"
)

// TagRepo encapsulates queries on the tags table.
type TagRepo struct{ db *sql.DB }

func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

func (r *TagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM tags ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TagRepo) GetByID(ctx context.Context, id uint64) (model.Tag, error) {
	var t model.Tag
	err := r.db.QueryRowContext(ctx, "SELECT id, name, slug FROM tags WHERE id=?", id).
		Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tag{}, model.ErrNotFound
	}
	return t, err
}

func (r *TagRepo) Create(ctx context.Context, t model.Tag) (model.Tag, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO tags (name, slug) VALUES (?,?)", t.Name, t.Slug)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Tag{}, model.ErrDuplicateSlug
		}
		return model.Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tag{}, err
	}
	t.ID = uint64(id)
	return t, nil
}

func (r *TagRepo) Update(ctx context.Context, t model.Tag) (model.Tag, error) {
	if _, err := r.db.ExecContext(ctx, "UPDATE tags SET name=?, slug=? WHERE id=?", t.Name, t.Slug, t.ID); err != nil {
		if isDuplicateKey(err) {
			return model.Tag{}, model.ErrDuplicateSlug
		}
		return model.Tag{}, err
	}
	return r.GetByID(ctx, t.ID)
}

func (r *TagRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tags WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
