package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.Credential
}

// NewMemoryUserRepository returns a process-local directory. Records are lost
// on restart.
func NewMemoryUserRepository() UserDirectory {
	return &memoryUserRepository{users: make(map[string]domain.Credential)}
}

func (r *memoryUserRepository) Create(ctx context.Context, identity, secretHash string, role domain.Role) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[identity]; exists {
		return nil, ErrAlreadyExists
	}

	now := time.Now().UTC()
	cred := domain.Credential{
		ID:         uuid.NewString(),
		Identity:   identity,
		SecretHash: secretHash,
		Role:       role,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.users[identity] = cred
	return &cred, nil
}

func (r *memoryUserRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}
