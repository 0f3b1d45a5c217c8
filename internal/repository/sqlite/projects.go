package sqlite

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

type projectRow struct {
	ID          string  `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	OwnerID     string  `db:"owner_id"`
	CreatedAt   int64   `db:"created_at"`
}

func (r projectRow) toDomain() domain.Project {
	return domain.Project{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

const selectProjects = `SELECT id, title, description, owner_id, created_at FROM projects`

// CreateProject stores a project owned by ownerID.
func (s *Store) CreateProject(ctx context.Context, title string, description *string, ownerID string) (*domain.Project, error) {
	row := projectRow{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   s.timestamp(),
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO projects (id, title, description, owner_id, created_at)
			VALUES (:id, :title, :description, :owner_id, :created_at)`, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	project := row.toDomain()
	return &project, nil
}

// ListProjects returns the projects owned by ownerID, oldest first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	var rows []projectRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, selectProjects+` WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	})
	if err != nil {
		return nil, err
	}
	projects := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, row.toDomain())
	}
	return projects, nil
}

// GetProject returns the project only when ownerID owns it.
func (s *Store) GetProject(ctx context.Context, projectID, ownerID string) (*domain.Project, error) {
	var row projectRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row, selectProjects+` WHERE id = ? AND owner_id = ?`, projectID, ownerID)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	project := row.toDomain()
	return &project, nil
}

// DeleteProject removes an owned project and its issues atomically.
func (s *Store) DeleteProject(ctx context.Context, projectID, ownerID string) (bool, error) {
	deleted := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM issues
			WHERE project_id IN (SELECT id FROM projects WHERE id = ? AND owner_id = ?)`,
			projectID, ownerID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, projectID, ownerID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
