package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

const defaultAccessTokenTTL = 60 * time.Minute

// TokenManager issues and verifies HS256 tokens with a secret shared by every
// service in the deployment. It holds no mutable state and is safe for
// concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithIssuer stamps issued tokens with iss and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(tm *TokenManager) {
		tm.issuer = issuer
	}
}

// WithClock replaces time.Now, used by tests to move past expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager. A non-positive ttl selects the one
// hour default.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Claims describes the JWT payload. Role lives inside the signed payload and
// must never be read from anywhere else.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the identity asserted by the claims.
func (c *Claims) Principal() *domain.Principal {
	return &domain.Principal{Identity: c.Subject, Role: c.Role}
}

// TTL returns the default lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// GenerateToken issues a token with the configured TTL.
func (tm *TokenManager) GenerateToken(subject string, role domain.Role) (string, time.Time, error) {
	return tm.Issue(subject, role, tm.ttl)
}

// Issue builds and signs a token that expires ttl after now. A zero or
// negative ttl yields a token that is already expired. exp and iat are
// NumericDates truncated to whole seconds, so the token can lapse up to a
// second before now+ttl; the returned expiry is the truncated value.
func (tm *TokenManager) Issue(subject string, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if role == "" {
		role = domain.DefaultRole
	}

	now := tm.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry, returning the embedded claims.
// Failures are ErrMalformed, ErrBadSignature, ErrExpired or ErrMissingSubject.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	if err := checkSignatureEncoding(tokenStr); err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.Role == "" {
		claims.Role = domain.DefaultRole
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// checkSignatureEncoding reports ErrBadSignature for a token whose header and
// payload decode but whose signature segment is not strict base64url. The
// parser would call that malformed, hiding an edited signature. Anything else
// is left to the parser.
func checkSignatureEncoding(tokenStr string) error {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil
	}
	enc := base64.RawURLEncoding.Strict()
	for _, segment := range parts[:2] {
		if _, err := enc.DecodeString(segment); err != nil {
			return nil
		}
	}
	if _, err := enc.DecodeString(parts[2]); err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrBadSignature, err)
	}
	return nil
}
