package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

// TaxonomyHandler serves categories and tags.  Reads are public, writes
// are admin only (enforced by the router).
type TaxonomyHandler struct {
	Categories *repository.CategoryRepo
	Tags       *repository.TagRepo
}

func NewTaxonomyHandler(c *repository.CategoryRepo, t *repository.TagRepo) *TaxonomyHandler {
	return &TaxonomyHandler{Categories: c, Tags: t}
}

type categoryReq struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

var (
	errCategoryNotFound = echo.NewHTTPError(http.StatusNotFound, "Category not found.")
	errCategoryExists   = model.NewValidationError("Category with this name already exists.", "name", "already exists")
)

func (h *TaxonomyHandler) ListCategories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	cats, err := h.Categories.List(ctx)
	if err != nil {
		return err
	}
	if cats == nil {
		cats = []model.Category{}
	}
	return ok(c, http.StatusOK, "Categories retrieved successfully.", echo.Map{"categories": cats})
}

func (h *TaxonomyHandler) GetCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errCategoryNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Category retrieved successfully.", echo.Map{"category": cat})
}

func (h *TaxonomyHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	name := strings.TrimSpace(req.Name)
	cat, err := h.Categories.Create(ctx, model.Category{Name: name, Slug: model.Slugify(name), Description: req.Description})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSlug) {
			return errCategoryExists
		}
		return err
	}
	return ok(c, http.StatusCreated, "Category created successfully.", echo.Map{"category": cat})
}

func (h *TaxonomyHandler) UpdateCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req categoryReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cat, err := h.Categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errCategoryNotFound
		}
		return err
	}
	cat.Name = strings.TrimSpace(req.Name)
	cat.Slug = model.Slugify(cat.Name)
	if req.Description != nil {
		cat.Description = req.Description
	}
	cat, err = h.Categories.Update(ctx, cat)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSlug) {
			return errCategoryExists
		}
		return err
	}
	return ok(c, http.StatusOK, "Category updated successfully.", echo.Map{"category": cat})
}

func (h *TaxonomyHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Categories.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return errCategoryNotFound
		}
		return err
	}
	return ok(c, http.StatusOK, "Category deleted successfully.", nil)
}
