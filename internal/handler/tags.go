package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
)

type tagReq struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}

var (
	errTagNotFound = echo.NewHTTPError(http.StatusNotFound, "Tag not found.")
	errTagExists   = model.NewValidationError("Tag with this name already exists.", "name", "already exists")
)

func (h *TaxonomyHandler) ListTags(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	tags, err := h.Tags.List(ctx)
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return ok(c, http.StatusOK, "Tags retrieved successfully.", echo.Map{"tags": tags})
}

func (h *TaxonomyHandler) GetTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	tag, err := h.Tags.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errTagNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Tag retrieved successfully.", echo.Map{"tag": tag})
}

func (h *TaxonomyHandler) CreateTag(c echo.Context) error {
	var req tagReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	name := strings.TrimSpace(req.Name)
	tag, err := h.Tags.Create(ctx, model.Tag{Name: name, Slug: model.Slugify(name)})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSlug) {
			return errTagExists
		}
		return err
	}
	return ok(c, http.StatusCreated, "Tag created successfully.", echo.Map{"tag": tag})
}

func (h *TaxonomyHandler) UpdateTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req tagReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	name := strings.TrimSpace(req.Name)
	tag, err := h.Tags.Update(ctx, model.Tag{ID: id, Name: name, Slug: model.Slugify(name)})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return errTagNotFound
		case errors.Is(err, model.ErrDuplicateSlug):
			return errTagExists
		}
		return err
	}
	return ok(c, http.StatusOK, "Tag updated successfully.", echo.Map{"tag": tag})
}

func (h *TaxonomyHandler) DeleteTag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Tags.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errTagNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Tag deleted successfully.", nil)
}
