package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names accepted by PASSWORD_HASHER.
const (
	Bcrypt   = "bcrypt"
	Argon2id = "argon2id"
)

var ErrUnknownHash = errors.New("unrecognised password hash format")

// bcryptSHA256Prefix marks bcrypt hashes taken over the base64 SHA-256 of
// the password.  bcrypt reads at most 72 bytes, the policy allows 128
// runes, so every new bcrypt hash goes through the digest first.
const bcryptSHA256Prefix = "$bcrypt-sha256$"

func prehash(plain string) []byte {
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Hasher produces new hashes with the configured algorithm and verifies
// hashes of either supported format, so switching algorithms does not
// lock out existing users.
type Hasher struct {
	Algorithm  string
	BcryptCost int
	Argon      *argon2id.Params
}

// NewHasher validates the algorithm name and fills defaults.
func NewHasher(algorithm string, bcryptCost int) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = Bcrypt
	}
	if algorithm != Bcrypt && algorithm != Argon2id {
		return nil, fmt.Errorf("unsupported password hasher %q", algorithm)
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Hasher{Algorithm: algorithm, BcryptCost: bcryptCost, Argon: argon2id.DefaultParams}, nil
}

// Hash returns a salted hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if h.Algorithm == Argon2id {
		return argon2id.CreateHash(plain, h.Argon)
	}
	b, err := bcrypt.GenerateFromPassword(prehash(plain), h.BcryptCost)
	if err != nil {
		return "", err
	}
	return bcryptSHA256Prefix + string(b), nil
}

// Compare reports whether plain matches hash.  Both libraries compare in
// constant time.  Plain bcrypt hashes (no digest prefix) still verify.
func (h *Hasher) Compare(hash, plain string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return argon2id.ComparePasswordAndHash(plain, hash)
	case strings.HasPrefix(hash, bcryptSHA256Prefix):
		return compareBcrypt(strings.TrimPrefix(hash, bcryptSHA256Prefix), prehash(plain))
	case isBcrypt(hash):
		if len(plain) > 72 {
			return false, nil
		}
		return compareBcrypt(hash, []byte(plain))
	}
	return false, ErrUnknownHash
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func compareBcrypt(hash string, plain []byte) (bool, error) {
	if !isBcrypt(hash) {
		return false, ErrUnknownHash
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), plain)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return err == nil, err
}
