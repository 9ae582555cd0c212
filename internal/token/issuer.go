// Package token mints and verifies access tokens and generates the opaque
// values used as refresh tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/blog-api/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// DefaultAccessTTL applies when the configured TTL is not positive.
const DefaultAccessTTL = 15 * time.Minute

// Claims is the access-token payload.  The registered claims carry
// sub, iat, exp and jti.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Identity converts verified claims into the request identity.
func (c Claims) Identity() model.Identity {
	return model.Identity{UserID: c.UserID, Email: c.Email, Role: model.Role(c.Role)}
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 access tokens.  It is built once at
// startup from configuration and is safe for concurrent use.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer returns an Issuer for secret.  The secret must be non-empty.
func NewIssuer(secret string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	i := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// TTL is the configured access-token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// IssueAccessToken builds and signs a token asserting the user's id,
// email and role.
func (i *Issuer) IssueAccessToken(u model.User) (AccessToken, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(u.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// VerifyAccessToken checks signature, algorithm and expiry.  Expired but
// otherwise valid tokens yield ErrExpiredToken; every other failure
// yields ErrInvalidToken.
func (i *Issuer) VerifyAccessToken(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !tok.Valid || claims.UserID == 0 || !model.Role(claims.Role).Valid() {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
