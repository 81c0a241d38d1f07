package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func directories(t *testing.T) map[string]func(t *testing.T) UserDirectory {
	t.Helper()
	return map[string]func(t *testing.T) UserDirectory{
		"memory": func(*testing.T) UserDirectory {
			return NewMemoryUserRepository()
		},
		"redis": func(t *testing.T) UserDirectory {
			srv := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisUserRepository(client)
		},
	}
}

func TestDirectoryCreateAndFind(t *testing.T) {
	for name, build := range directories(t) {
		t.Run(name, func(t *testing.T) {
			dir := build(t)
			ctx := context.Background()

			created, err := dir.Create(ctx, "a@x.com", "$2a$hash", domain.RoleAdmin)
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.True(t, created.Active)

			found, err := dir.FindByIdentity(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, created.ID, found.ID)
			assert.Equal(t, "$2a$hash", found.SecretHash)
			assert.Equal(t, domain.RoleAdmin, found.Role)
		})
	}
}

func TestDirectoryNotFound(t *testing.T) {
	for name, build := range directories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := build(t).FindByIdentity(context.Background(), "ghost@x.com")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDirectoryDuplicate(t *testing.T) {
	for name, build := range directories(t) {
		t.Run(name, func(t *testing.T) {
			dir := build(t)
			ctx := context.Background()

			_, err := dir.Create(ctx, "a@x.com", "first", domain.RoleStudent)
			require.NoError(t, err)

			_, err = dir.Create(ctx, "a@x.com", "second", domain.RoleAdmin)
			assert.ErrorIs(t, err, ErrAlreadyExists)

			found, err := dir.FindByIdentity(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, "first", found.SecretHash)
		})
	}
}

func TestDirectoryConcurrentCreate(t *testing.T) {
	for name, build := range directories(t) {
		t.Run(name, func(t *testing.T) {
			dir := build(t)

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := dir.Create(context.Background(), "race@x.com", "h", domain.RoleStudent); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestMemoryDirectoryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := NewMemoryUserRepository()
	_, err := dir.Create(ctx, "a@x.com", "h", domain.RoleStudent)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = dir.FindByIdentity(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisDirectoryStoresUnderPrefixedKey(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	_, err := NewRedisUserRepository(client).Create(context.Background(), "a@x.com", "h", domain.RoleStudent)
	require.NoError(t, err)

	assert.True(t, srv.Exists("auth:user:a@x.com"))
	assert.NotContains(t, srv.Keys(), "a@x.com")
}

func TestRedisDirectoryCorruptRecord(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	require.NoError(t, srv.Set("auth:user:a@x.com", "{not json"))

	_, err := NewRedisUserRepository(client).FindByIdentity(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
