package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

// CommentHandler serves /api/comments.
type CommentHandler struct {
	Comments *repository.CommentRepo
	Posts    *repository.PostRepo
}

func NewCommentHandler(c *repository.CommentRepo, p *repository.PostRepo) *CommentHandler {
	return &CommentHandler{Comments: c, Posts: p}
}

type createCommentReq struct {
	PostID   uint64  `json:"postId" validate:"required,gt=0"`
	ParentID *uint64 `json:"parentId" validate:"omitempty,gt=0"`
	Content  string  `json:"content" validate:"required,min=1,max=1000"`
}

var errCommentNotFound = echo.NewHTTPError(http.StatusNotFound, "Comment not found.")

// ListByPost returns all comments of a post as a one-level thread.
func (h *CommentHandler) ListByPost(c echo.Context) error {
	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	comments, err := h.Comments.ListByPost(ctx, postID, false)
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return ok(c, http.StatusOK, "Comments retrieved successfully.", echo.Map{"comments": comments})
}

// Create adds a comment.  A reply must point at a comment of the same
// post.  Comments by admins skip moderation.
func (h *CommentHandler) Create(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	var req createCommentReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return model.NewValidationError("Validation failed", "content", "Comment content is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Posts.OwnerOf(ctx, req.PostID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errPostNotFound
		}
		return err
	}
	if req.ParentID != nil {
		parent, err := h.Comments.GetByID(ctx, *req.ParentID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if err != nil || parent.PostID != req.PostID {
			return model.NewValidationError("Invalid parent comment.", "parentId", "must reference a comment on the same post")
		}
	}

	comment, err := h.Comments.Create(ctx, model.Comment{
		PostID:     req.PostID,
		UserID:     id.UserID,
		ParentID:   req.ParentID,
		Content:    content,
		IsApproved: id.Role.Satisfies(model.RoleAdmin),
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Comment created successfully.", echo.Map{"comment": comment})
}

// Approve is admin only (enforced by the router).
func (h *CommentHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	comment, err := h.Comments.Approve(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errCommentNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Comment approved successfully.", echo.Map{"comment": comment})
}

// Delete runs behind RequireOwnerOrRole.
func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Comments.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errCommentNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Comment deleted successfully.", nil)
}
