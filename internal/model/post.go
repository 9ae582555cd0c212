package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

// ParsePostStatus validates a status string.  Empty input yields draft.
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(strings.TrimSpace(s)) {
	case "", PostDraft:
		return PostDraft, nil
	case PostPublished:
		return PostPublished, nil
	case PostArchived:
		return PostArchived, nil
	}
	return "", fmt.Errorf("unknown post status %q", s)
}

// Author is the public projection of a user embedded in content.
type Author struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Post mirrors the `posts` table plus its author and tags.
type Post struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"userId"`
	CategoryID  *uint64    `json:"categoryId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Excerpt     *string    `json:"excerpt"`
	Status      PostStatus `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
	ViewCount   uint64     `json:"viewCount"`
	Author      Author     `json:"author"`
	Tags        []Tag      `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Comment mirrors the `comments` table.  Replies is filled only when a
// thread is assembled for display.
type Comment struct {
	ID         uint64    `json:"id"`
	PostID     uint64    `json:"postId"`
	UserID     uint64    `json:"userId"`
	ParentID   *uint64   `json:"parentId"`
	Content    string    `json:"content"`
	IsApproved bool      `json:"isApproved"`
	Author     Author    `json:"author"`
	Replies    []Comment `json:"replies,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Category mirrors the `categories` table.
type Category struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tag mirrors the `tags` table.
type Tag struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and collapses every run of non-alphanumerics to a
// single dash.
func Slugify(s string) string {
	return nonSlug.ReplaceAllString(strings.ToLower(s), "-")
}
