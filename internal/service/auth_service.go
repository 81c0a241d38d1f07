package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// dummyPassword is hashed once at startup so that lookups for unknown
// identities spend the same bcrypt time as real comparisons.
const dummyPassword = "timing-equalisation-only"

// AuthService coordinates registration and login flows. Every method makes at
// most one UserDirectory call and never retries.
type AuthService struct {
	users     repository.UserDirectory
	hasher    *auth.PasswordHasher
	tokenMgr  *auth.TokenManager
	events    events.Dispatcher
	logger    *zap.Logger
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users  repository.UserDirectory
	Hasher *auth.PasswordHasher
	Tokens *auth.TokenManager
	Events events.Dispatcher
	Logger *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	if deps.Users == nil || deps.Hasher == nil || deps.Tokens == nil {
		return nil, errors.New("auth service requires users, hasher and tokens")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	dummyHash, err := deps.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		users:     deps.Users,
		hasher:    deps.Hasher,
		tokenMgr:  deps.Tokens,
		events:    deps.Events,
		logger:    deps.Logger,
		dummyHash: dummyHash,
	}, nil
}

// Register creates a self-service account with the default role.
func (s *AuthService) Register(ctx context.Context, identity, password string) (*domain.Principal, error) {
	cred, err := s.CreateUser(ctx, identity, password, domain.DefaultRole)
	if err != nil {
		return nil, err
	}
	return cred.Principal(), nil
}

// CreateUser validates the identity, hashes the password and persists the
// account. Uniqueness is enforced by the directory's atomic create.
func (s *AuthService) CreateUser(ctx context.Context, identity, password string, role domain.Role) (*domain.Credential, error) {
	identity = NormalizeIdentity(identity)
	if !ValidIdentity(identity) {
		return nil, auth.ErrInvalidIdentity
	}
	if !role.Valid() {
		return nil, auth.ErrInvalidRole
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred, err := s.users.Create(ctx, identity, hash, role)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, auth.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, cred.Identity, events.UserRegisteredPayload{
		UserID: cred.ID,
		Role:   cred.Role,
	}))
	return cred, nil
}

// Authenticate checks a login attempt. Unknown identities, wrong passwords and
// inactive accounts all yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, identity, password string) (*domain.Principal, error) {
	identity = NormalizeIdentity(identity)

	cred, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.loginFailed(ctx, identity, "unknown_identity")
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, cred.SecretHash) {
		s.loginFailed(ctx, identity, "password_mismatch")
		return nil, auth.ErrInvalidCredentials
	}
	if !cred.Active {
		s.loginFailed(ctx, identity, "inactive")
		return nil, auth.ErrInvalidCredentials
	}
	return cred.Principal(), nil
}

// Login authenticates and issues a bearer token for the principal.
func (s *AuthService) Login(ctx context.Context, identity, password string) (*domain.Principal, string, time.Time, error) {
	principal, err := s.Authenticate(ctx, identity, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(principal.Identity, principal.Role)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, principal.Identity, events.LoginSucceededPayload{
		Role:      principal.Role,
		ExpiresAt: exp,
	}))
	return principal, token, exp, nil
}

// Profile loads the stored record for an already verified identity. A token
// whose subject no longer exists is treated as unauthorized.
func (s *AuthService) Profile(ctx context.Context, identity string) (*domain.Credential, error) {
	cred, err := s.users.FindByIdentity(ctx, NormalizeIdentity(identity))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !cred.Active {
		return nil, auth.ErrUnauthorized
	}
	return cred, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, identity, password string) (bool, error) {
	_, err := s.CreateUser(ctx, identity, password, domain.RoleAdmin)
	switch {
	case err == nil:
		s.logger.Info("bootstrap admin created", zap.String("identity", NormalizeIdentity(identity)))
		return true, nil
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return false, nil
	default:
		return false, err
	}
}

func (s *AuthService) loginFailed(ctx context.Context, identity, reason string) {
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, identity, events.LoginFailedPayload{Reason: reason}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// NormalizeIdentity trims and lower-cases an email address.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ValidIdentity reports whether identity looks like an address: exactly one
// "@" with non-empty local and domain parts and no whitespace.
func ValidIdentity(identity string) bool {
	if strings.ContainsFunc(identity, isSpace) {
		return false
	}
	local, domainPart, found := strings.Cut(identity, "@")
	if !found || local == "" || domainPart == "" {
		return false
	}
	return !strings.Contains(domainPart, "@")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
