package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold.  It is stored in the
// `users.role` column and carried in the access token's role claim.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts a raw string (from the database, a token claim or a
// request body) into a Role.  Unknown values are rejected rather than
// silently mapped to a default.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// rank orders roles for the two-level hierarchy.  Zero means unknown.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	}
	return 0
}

// Satisfies reports whether a holder of r may access something that
// requires the role req: equal roles pass and admin outranks user.
func (r Role) Satisfies(req Role) bool {
	have, need := r.rank(), req.rank()
	return have > 0 && need > 0 && have >= need
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r.rank() > 0 }

// User represents an application user record as stored in the
// `users` table.  PasswordHash is never serialized; handlers map users
// to their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique, lower-cased email address.
//	PasswordHash – salted one-way hash (bcrypt or argon2id).
//	Role         – user or admin.
//	IsActive     – deactivated accounts cannot authenticate.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// NormalizeEmail trims and lower-cases an email so lookups and the unique
// index agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is the authenticated caller attached to a request by the JWT
// middleware.  It is derived from access-token claims only, no database
// lookup is involved.
type Identity struct {
	UserID uint64
	Email  string
	Role   Role
}

// CanActOn is the ownership decision: the caller owns the resource or
// holds a role that satisfies the override role.
func (i Identity) CanActOn(ownerID uint64, override Role) bool {
	if i.UserID != 0 && i.UserID == ownerID {
		return true
	}
	return i.Role.Satisfies(override)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA‑256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	Revoked   – set once the token is rotated, logged out or found expired.
//	RevokedAt – when the token was revoked (nil while active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	Revoked   bool       // refresh_tokens.revoked
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Expired reports whether the token's lifetime has elapsed at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
