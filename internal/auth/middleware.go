package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	claimsKey    = "auth_claims"
)

// AuthMiddleware runs the gate before protected handlers and short-circuits
// the chain when it rejects the request.
type AuthMiddleware struct {
	gate   *Gate
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(gate *Gate, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{gate: gate, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	claims, err := m.gate.Verify(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		m.logger.Warn("authorization rejected",
			zap.String("path", c.Path()),
			zap.String("reason", rejectionReason(err)))
		return apperrors.NewUnauthorized(rejectionMessage(err))
	}

	c.Locals(claimsKey, claims)
	c.Locals(principalKey, claims.Principal())
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(*domain.Principal)
	return principal, ok && principal != nil
}

// ClaimsFromContext retrieves the verified token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing bearer token"
	case errors.Is(err, ErrExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrMissingSubject):
		return "missing_subject"
	default:
		return "malformed"
	}
}
