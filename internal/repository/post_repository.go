package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/blog-api/internal/model"
)

// PostQuery defines filters & pagination for listing posts.
type PostQuery struct {
	Status     string
	CategoryID uint64
	Page       int
	PageSize   int
}

// PostRepo encapsulates queries on posts and the post_tags join table.
type PostRepo struct{ db *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

var errUnknownCategory = model.NewValidationError("Validation failed", "categoryId", "Invalid category ID")

const postSelect = `SELECT
		p.id, p.user_id, p.category_id, p.title, p.slug, p.content, p.excerpt,
		p.status, p.published_at, p.view_count, p.created_at, p.updated_at,
		u.id, u.name, u.email
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// List returns one page of posts, newest first, with authors and tags.
func (r *PostRepo) List(ctx context.Context, q PostQuery) ([]model.Post, int64, error) {
	where := []string{}
	args := []any{}
	if q.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, q.Status)
	}
	if q.CategoryID != 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, q.CategoryID)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	argsData := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx,
		postSelect+" WHERE "+cond+" ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?", argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches a post with author and tags.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	return r.getOne(ctx, "p.id = ?", id)
}

// GetBySlug fetches a post with author and tags.
func (r *PostRepo) GetBySlug(ctx context.Context, slug string) (model.Post, error) {
	return r.getOne(ctx, "p.slug = ?", slug)
}

func (r *PostRepo) getOne(ctx context.Context, cond string, arg any) (model.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, postSelect+" WHERE "+cond+" LIMIT 1", arg))
	if err != nil {
		return model.Post{}, err
	}
	posts := []model.Post{p}
	if err := r.attachTags(ctx, posts); err != nil {
		return model.Post{}, err
	}
	return posts[0], nil
}

// OwnerOf returns the author id of a post.
func (r *PostRepo) OwnerOf(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM posts WHERE id=?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	return owner, err
}

// IncrementViews bumps the view counter.
func (r *PostRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE posts SET view_count = view_count + 1 WHERE id=?", id)
	return err
}

// Create inserts the post and its tag links in one transaction.
func (r *PostRepo) Create(ctx context.Context, p model.Post, tagIDs []uint64) (model.Post, error) {
	var id uint64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts (user_id, category_id, title, slug, content, excerpt, status, published_at)
			 VALUES (?,?,?,?,?,?,?,?)`,
			p.UserID, p.CategoryID, p.Title, p.Slug, p.Content, p.Excerpt, string(p.Status), p.PublishedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return model.ErrDuplicateSlug
			}
			if isMissingReference(err) {
				return errUnknownCategory
			}
			return err
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id = uint64(lastID)
		return setTags(ctx, tx, id, tagIDs)
	})
	if err != nil {
		return model.Post{}, err
	}
	return r.GetByID(ctx, id)
}

// Update rewrites the editable columns.  A nil tagIDs leaves the tag set
// untouched; an empty slice clears it.
func (r *PostRepo) Update(ctx context.Context, p model.Post, tagIDs []uint64) (model.Post, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET category_id=?, title=?, content=?, excerpt=?, status=?, published_at=? WHERE id=?`,
			p.CategoryID, p.Title, p.Content, p.Excerpt, string(p.Status), p.PublishedAt, p.ID); err != nil {
			if isMissingReference(err) {
				return errUnknownCategory
			}
			return err
		}
		if tagIDs == nil {
			return nil
		}
		return setTags(ctx, tx, p.ID, tagIDs)
	})
	if err != nil {
		return model.Post{}, err
	}
	return r.GetByID(ctx, p.ID)
}

// Delete removes a post; tag links and comments cascade.
func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *PostRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// setTags replaces the tag set of a post.  Unknown tag ids are ignored.
func setTags(ctx context.Context, tx *sql.Tx, postID uint64, tagIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id=?", postID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	ph := make([]string, len(tagIDs))
	args := make([]any, 0, len(tagIDs)+1)
	args = append(args, postID)
	for i, id := range tagIDs {
		ph[i] = "?"
		args = append(args, id)
	}
	q := fmt.Sprintf("INSERT IGNORE INTO post_tags (post_id, tag_id) SELECT ?, id FROM tags WHERE id IN (%s)",
		strings.Join(ph, ","))
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// attachTags loads tags for all posts with a single query.
func (r *PostRepo) attachTags(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(posts))
	ph := make([]string, len(posts))
	args := make([]any, len(posts))
	for i := range posts {
		posts[i].Tags = []model.Tag{}
		idx[posts[i].ID] = i
		ph[i] = "?"
		args[i] = posts[i].ID
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.name, t.slug
		   FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		  WHERE pt.post_id IN (`+strings.Join(ph, ",")+`)
		  ORDER BY t.name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			postID uint64
			t      model.Tag
		)
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return err
		}
		if i, ok := idx[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, t)
		}
	}
	return rows.Err()
}

func scanPost(s scanner) (model.Post, error) {
	var (
		p           model.Post
		categoryID  sql.NullInt64
		excerpt     sql.NullString
		status      string
		publishedAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.UserID, &categoryID, &p.Title, &p.Slug, &p.Content, &excerpt,
		&status, &publishedAt, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Name, &p.Author.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, model.ErrNotFound
		}
		return model.Post{}, err
	}
	p.Status = model.PostStatus(status)
	if categoryID.Valid {
		id := uint64(categoryID.Int64)
		p.CategoryID = &id
	}
	if excerpt.Valid {
		p.Excerpt = &excerpt.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time.In(time.UTC)
		p.PublishedAt = &t
	}
	return p, nil
}
