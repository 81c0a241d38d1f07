package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher derives salted bcrypt digests. Inputs are pre-hashed with
// SHA-256 so passwords longer than bcrypt's 72 byte ceiling are not truncated.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher with the configured cost, falling back to
// bcrypt.DefaultCost when the value is out of range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt work factor in use.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns a fresh salted digest of the plaintext. Two calls with the same
// input yield different strings.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest. Malformed
// digests simply fail to match.
func (h *PasswordHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), prehash(plaintext)) == nil
}

// prehash maps any input to 44 printable bytes. The base64 step keeps NUL
// bytes out of the bcrypt input.
func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
