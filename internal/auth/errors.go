package auth

import "errors"

// Credential outcomes. These are terminal for a single call and never retried.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("identity already registered")
	ErrInvalidIdentity    = errors.New("identity is not a valid address")
	ErrInvalidRole        = errors.New("unknown role")
)

// Token outcomes surfaced by the codec.
var (
	ErrMalformed      = errors.New("token is malformed")
	ErrBadSignature   = errors.New("token signature is invalid")
	ErrExpired        = errors.New("token is expired")
	ErrMissingSubject = errors.New("token has no subject")
)

// Gate outcomes.
var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)
