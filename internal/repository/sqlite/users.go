package sqlite

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
)

type userRow struct {
	ID             string `db:"id"`
	Email          string `db:"email"`
	HashedPassword string `db:"hashed_password"`
	CreatedAt      int64  `db:"created_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.HashedPassword,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

// CreateUser inserts an account; the unique index on email reports duplicates.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	row := userRow{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: passwordHash,
		CreatedAt:      s.timestamp(),
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (id, email, hashed_password, created_at)
			VALUES (:id, :email, :hashed_password, :created_at)`, row)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// FindUserByEmail looks up an account by its exact email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row,
			`SELECT id, email, hashed_password, created_at FROM users WHERE email = ?`, email)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return row.toDomain(), nil
}
