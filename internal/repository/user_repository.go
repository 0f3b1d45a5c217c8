package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	// CreateUser returns ErrConflict when the email is already registered.
	CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error)
	// FindUserByEmail matches the email exactly as stored.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	const query = `
        INSERT INTO users (id, email, hashed_password)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, hashed_password, created_at
        FROM users WHERE email=$1`

	var user domain.User
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, email).Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.CreatedAt,
		)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}
