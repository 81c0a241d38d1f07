package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

var (
	// ErrNotFound is returned when no credential exists for an identity.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when Create hits an existing identity.
	ErrAlreadyExists = errors.New("user already exists")
)

const uniqueViolation = "23505"

// UserDirectory persists credentials. Create must be atomic with respect to
// the identity: of two concurrent creates for one identity exactly one wins.
type UserDirectory interface {
	FindByIdentity(ctx context.Context, identity string) (*domain.Credential, error)
	Create(ctx context.Context, identity, secretHash string, role domain.Role) (*domain.Credential, error)
}

// dbtx is the slice of pgxpool.Pool the directory needs.
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type userRepository struct {
	db dbtx
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserDirectory {
	return &userRepository{db: pool}
}

func (r *userRepository) Create(ctx context.Context, identity, secretHash string, role domain.Role) (*domain.Credential, error) {
	const query = `
        INSERT INTO users (email, password_hash, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO NOTHING
        RETURNING id, email, password_hash, role, is_active, created_at, updated_at`

	cred, err := scanCredential(r.db.QueryRow(ctx, query, identity, secretHash, role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return cred, nil
}

func (r *userRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Credential, error) {
	const query = `
        SELECT id, email, password_hash, role, is_active, created_at, updated_at
        FROM users WHERE email=$1`

	cred, err := scanCredential(r.db.QueryRow(ctx, query, identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cred, nil
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	if err := row.Scan(
		&cred.ID,
		&cred.Identity,
		&cred.SecretHash,
		&cred.Role,
		&cred.Active,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}
