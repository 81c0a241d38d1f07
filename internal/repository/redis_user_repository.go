package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

const userKeyPrefix = "auth:user:"

type redisUser struct {
	ID         string      `json:"id"`
	Identity   string      `json:"email"`
	SecretHash string      `json:"password_hash"`
	Role       domain.Role `json:"role"`
	Active     bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type redisUserRepository struct {
	client redis.UniversalClient
}

// NewRedisUserRepository stores one JSON document per identity. Create relies
// on SETNX for atomicity.
func NewRedisUserRepository(client redis.UniversalClient) UserDirectory {
	return &redisUserRepository{client: client}
}

func userKey(identity string) string {
	return userKeyPrefix + identity
}

func (r *redisUserRepository) Create(ctx context.Context, identity, secretHash string, role domain.Role) (*domain.Credential, error) {
	now := time.Now().UTC()
	record := redisUser{
		ID:         uuid.NewString(),
		Identity:   identity,
		SecretHash: secretHash,
		Role:       role,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	created, err := r.client.SetNX(ctx, userKey(identity), payload, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create user: %w", err)
	}
	if !created {
		return nil, ErrAlreadyExists
	}
	return record.credential(), nil
}

func (r *redisUserRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Credential, error) {
	payload, err := r.client.Get(ctx, userKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get user: %w", err)
	}

	var record redisUser
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", identity, err)
	}
	return record.credential(), nil
}

func (u redisUser) credential() *domain.Credential {
	return &domain.Credential{
		ID:         u.ID,
		Identity:   u.Identity,
		SecretHash: u.SecretHash,
		Role:       u.Role,
		Active:     u.Active,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
