package handlers

import (
	"errors"

	"github.com/spec-kit/auth-service/internal/auth"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// mapAuthError collapses core outcomes into boundary errors. Unknown errors
// pass through and surface as internal.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return apperrors.NewConflict("email already registered", nil)
	case errors.Is(err, auth.ErrInvalidIdentity):
		return apperrors.NewValidationError("invalid email", map[string]any{"email": "format"})
	case errors.Is(err, auth.ErrInvalidRole):
		return apperrors.NewValidationError("invalid role", map[string]any{"role": "oneof"})
	case errors.Is(err, auth.ErrForbidden):
		return apperrors.NewForbidden("insufficient role")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrMissingCredential):
		return apperrors.NewUnauthorized("unauthorized")
	default:
		return err
	}
}
