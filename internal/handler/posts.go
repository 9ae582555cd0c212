package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

// PostHandler serves /api/posts.  Ownership of update and delete is
// checked by middleware.RequireOwnerOrRole before these handlers run.
type PostHandler struct {
	Posts    *repository.PostRepo
	Comments *repository.CommentRepo
}

func NewPostHandler(p *repository.PostRepo, c *repository.CommentRepo) *PostHandler {
	return &PostHandler{Posts: p, Comments: c}
}

type createPostReq struct {
	Title      string   `json:"title" validate:"required,min=3,max=200"`
	Content    string   `json:"content" validate:"required"`
	Excerpt    *string  `json:"excerpt" validate:"omitempty,max=500"`
	CategoryID uint64   `json:"categoryId" validate:"required,gt=0"`
	Status     string   `json:"status" validate:"omitempty,oneof=draft published archived"`
	Tags       []uint64 `json:"tags"`
}

type updatePostReq struct {
	Title      *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Content    *string  `json:"content"`
	Excerpt    *string  `json:"excerpt" validate:"omitempty,max=500"`
	CategoryID *uint64  `json:"categoryId" validate:"omitempty,gt=0"`
	Status     *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	Tags       []uint64 `json:"tags"`
}

var errPostNotFound = echo.NewHTTPError(http.StatusNotFound, "Post not found.")

// List supports ?page, ?limit, ?status and ?categoryId.
func (h *PostHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	q := repository.PostQuery{Page: page, PageSize: limit}
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		st, err := model.ParsePostStatus(s)
		if err != nil {
			return model.NewValidationError("Validation failed", "status", "must be one of draft, published, archived")
		}
		q.Status = string(st)
	}
	if s := c.QueryParam("categoryId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return model.NewValidationError("Validation failed", "categoryId", "Invalid category ID")
		}
		q.CategoryID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	posts, total, err := h.Posts.List(ctx, q)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Posts retrieved successfully.", echo.Map{
		"posts":      posts,
		"pagination": newPagination(page, limit, int(total)),
	})
}

// GetBySlug returns the post with its approved comments and counts the view.
func (h *PostHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errPostNotFound
		}
		return err
	}
	comments, err := h.Comments.ListByPost(ctx, post.ID, true)
	if err != nil {
		return err
	}
	if err := h.Posts.IncrementViews(ctx, post.ID); err != nil {
		return err
	}
	post.ViewCount++
	if comments == nil {
		comments = []model.Comment{}
	}
	return ok(c, http.StatusOK, "Post retrieved successfully.", echo.Map{"post": post, "comments": comments})
}

func (h *PostHandler) Create(c echo.Context) error {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return model.ErrUnauthenticated
	}
	var req createPostReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	status, _ := model.ParsePostStatus(req.Status)

	p := model.Post{
		UserID:     id.UserID,
		CategoryID: &req.CategoryID,
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Status:     status,
	}
	p.Slug = model.Slugify(p.Title) + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	if status == model.PostPublished {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	post, err := h.Posts.Create(ctx, p, req.Tags)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Post created successfully.", echo.Map{"post": post})
}

func (h *PostHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updatePostReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errPostNotFound
		}
		return err
	}
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.Excerpt != nil {
		p.Excerpt = req.Excerpt
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.Status != nil {
		st, _ := model.ParsePostStatus(*req.Status)
		p.Status = st
		if st == model.PostPublished && p.PublishedAt == nil {
			now := time.Now().UTC()
			p.PublishedAt = &now
		}
	}

	post, err := h.Posts.Update(ctx, p, req.Tags)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Post updated successfully.", echo.Map{"post": post})
}

func (h *PostHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Posts.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errPostNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Post deleted successfully.", nil)
}
