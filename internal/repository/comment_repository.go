package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/blog-api/internal/model"
)

// CommentRepo encapsulates queries on the comments table.
type CommentRepo struct{ db *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

const commentSelect = `SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.is_approved,
		c.created_at, c.updated_at, u.id, u.name
	FROM comments c
	JOIN users u ON u.id = c.user_id`

// ListByPost returns the top-level comments of a post, newest first, each
// with its direct replies oldest first.  approvedOnly hides comments still
// awaiting moderation.
func (r *CommentRepo) ListByPost(ctx context.Context, postID uint64, approvedOnly bool) ([]model.Comment, error) {
	q := commentSelect + " WHERE c.post_id = ?"
	if approvedOnly {
		q += " AND c.is_approved = 1"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY c.created_at ASC, c.id ASC", postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return thread(all), nil
}

// thread groups replies under their parents; only one level is kept.
func thread(all []model.Comment) []model.Comment {
	replies := make(map[uint64][]model.Comment)
	var top []model.Comment
	for _, c := range all {
		if c.ParentID == nil {
			top = append(top, c)
			continue
		}
		replies[*c.ParentID] = append(replies[*c.ParentID], c)
	}
	out := make([]model.Comment, 0, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		c := top[i]
		c.Replies = replies[c.ID]
		out = append(out, c)
	}
	return out
}

// GetByID fetches one comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	return scanComment(r.db.QueryRowContext(ctx, commentSelect+" WHERE c.id = ?", id))
}

// OwnerOf returns the author id of a comment.
func (r *CommentRepo) OwnerOf(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM comments WHERE id=?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	return owner, err
}

// Create inserts a comment and returns it with its author.
func (r *CommentRepo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (post_id, user_id, parent_id, content, is_approved) VALUES (?,?,?,?,?)",
		c.PostID, c.UserID, c.ParentID, c.Content, c.IsApproved)
	if err != nil {
		return model.Comment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Comment{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Approve marks a comment visible.
func (r *CommentRepo) Approve(ctx context.Context, id uint64) (model.Comment, error) {
	if _, err := r.db.ExecContext(ctx, "UPDATE comments SET is_approved=1 WHERE id=?", id); err != nil {
		return model.Comment{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a comment and, by cascade, its replies.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanComment(s scanner) (model.Comment, error) {
	var (
		c        model.Comment
		parentID sql.NullInt64
	)
	err := s.Scan(&c.ID, &c.PostID, &c.UserID, &parentID, &c.Content, &c.IsApproved,
		&c.CreatedAt, &c.UpdatedAt, &c.Author.ID, &c.Author.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, model.ErrNotFound
		}
		return model.Comment{}, err
	}
	if parentID.Valid {
		id := uint64(parentID.Int64)
		c.ParentID = &id
	}
	return c, nil
}
