package auth

import (
	"fmt"
	"strings"

	"github.com/spec-kit/auth-service/internal/domain"
)

const bearerScheme = "Bearer"

// TokenVerifier is the part of the token codec the gate depends on.
type TokenVerifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// Gate turns an Authorization header value into a verified principal. It
// keeps no session state, so any service holding the shared secret can run it.
type Gate struct {
	tokens TokenVerifier
}

// NewGate constructs a gate around a token verifier.
func NewGate(tokens TokenVerifier) *Gate {
	return &Gate{tokens: tokens}
}

// Authorize validates a raw "Bearer <token>" header. An absent header, a
// different scheme or an empty token yield ErrMissingCredential. Codec
// failures are wrapped so the result matches both ErrUnauthorized and the
// specific codec error.
func (g *Gate) Authorize(header string) (*domain.Principal, error) {
	claims, err := g.Verify(header)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

// Verify is Authorize but returns the full claims, including expiry.
func (g *Gate) Verify(header string) (*Claims, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingCredential
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}

// AuthorizeRole is Authorize followed by RequireRole.
func (g *Gate) AuthorizeRole(header string, allowed ...domain.Role) (*domain.Principal, error) {
	principal, err := g.Authorize(header)
	if err != nil {
		return nil, err
	}
	if err := RequireRole(principal, allowed...); err != nil {
		return nil, err
	}
	return principal, nil
}

// RequireRole fails with ErrForbidden unless the principal holds one of the
// allowed roles. With no roles given any principal passes.
func RequireRole(principal *domain.Principal, allowed ...domain.Role) error {
	if principal == nil {
		return ErrUnauthorized
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if principal.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireAdmin fails with ErrForbidden unless the principal is an admin.
func RequireAdmin(principal *domain.Principal) error {
	return RequireRole(principal, domain.RoleAdmin)
}

// BearerToken extracts the credential from a bearer header value. The scheme
// is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
