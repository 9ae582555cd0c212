package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("owner")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleSatisfies(t *testing.T) {
	assert.True(t, RoleAdmin.Satisfies(RoleAdmin))
	assert.True(t, RoleAdmin.Satisfies(RoleUser))
	assert.True(t, RoleUser.Satisfies(RoleUser))
	assert.False(t, RoleUser.Satisfies(RoleAdmin))
	assert.False(t, Role("root").Satisfies(RoleUser))
	assert.False(t, RoleAdmin.Satisfies(Role("")))
}

func TestIdentityCanActOn(t *testing.T) {
	owner := Identity{UserID: 1, Role: RoleUser}
	other := Identity{UserID: 2, Role: RoleUser}
	admin := Identity{UserID: 3, Role: RoleAdmin}
	anon := Identity{}

	assert.True(t, owner.CanActOn(1, RoleAdmin))
	assert.False(t, other.CanActOn(1, RoleAdmin))
	assert.True(t, admin.CanActOn(1, RoleAdmin))
	assert.False(t, anon.CanActOn(0, RoleAdmin))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestRefreshTokenExpired(t *testing.T) {
	now := time.Now()
	rt := RefreshToken{ExpiresAt: now}
	assert.False(t, rt.Expired(now))
	assert.True(t, rt.Expired(now.Add(time.Nanosecond)))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World"))
	assert.Equal(t, "go-1-24", Slugify("Go 1.24"))
	assert.Equal(t, "-edge-", Slugify(" edge "))
}

func TestParsePostStatus(t *testing.T) {
	s, err := ParsePostStatus("")
	require.NoError(t, err)
	assert.Equal(t, PostDraft, s)
	s, err = ParsePostStatus("published")
	require.NoError(t, err)
	assert.Equal(t, PostPublished, s)
	_, err = ParsePostStatus("deleted")
	assert.Error(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	ve := NewValidationError("Validation failed", "email", "Please provide a valid email")
	assert.Equal(t, "Validation failed (email: Please provide a valid email)", ve.Error())
	assert.Equal(t, "Nope", NewValidationError("Nope", "", "").Error())
	assert.ErrorIs(t, ErrRefreshTokenExpired, ErrInvalidRefreshToken)
}
