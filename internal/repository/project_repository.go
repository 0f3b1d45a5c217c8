package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// ProjectRepository persists projects. Every read and delete is scoped to an owner.
type ProjectRepository interface {
	CreateProject(ctx context.Context, title string, description *string, ownerID string) (*domain.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error)
	// GetProject returns ErrNotFound both for missing projects and for projects of other owners.
	GetProject(ctx context.Context, projectID, ownerID string) (*domain.Project, error)
	// DeleteProject removes the project and all of its issues in one transaction.
	DeleteProject(ctx context.Context, projectID, ownerID string) (bool, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

const projectColumns = `id, title, description, owner_id, created_at`

func (r *projectRepository) CreateProject(ctx context.Context, title string, description *string, ownerID string) (*domain.Project, error) {
	const query = `
        INSERT INTO projects (id, title, description, owner_id)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	project := &domain.Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	}
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, project.ID, project.Title, project.Description, project.OwnerID).
			Scan(&project.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepository) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	const query = `SELECT ` + projectColumns + `
        FROM projects WHERE owner_id=$1
        ORDER BY created_at, id`

	var projects []domain.Project
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		projects, err = scanProjects(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepository) GetProject(ctx context.Context, projectID, ownerID string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + `
        FROM projects WHERE id=$1 AND owner_id=$2`

	var project domain.Project
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return scanProject(tx.QueryRow(ctx, query, projectID, ownerID), &project)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &project, nil
}

func (r *projectRepository) DeleteProject(ctx context.Context, projectID, ownerID string) (bool, error) {
	const deleteIssues = `
        DELETE FROM issues
        WHERE project_id IN (SELECT id FROM projects WHERE id=$1 AND owner_id=$2)`
	const deleteProject = `DELETE FROM projects WHERE id=$1 AND owner_id=$2`

	deleted := false
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteIssues, projectID, ownerID); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, deleteProject, projectID, ownerID)
		if err != nil {
			return err
		}
		deleted = cmd.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func scanProject(row pgx.Row, project *domain.Project) error {
	return row.Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.OwnerID,
		&project.CreatedAt,
	)
}

func scanProjects(rows pgx.Rows) ([]domain.Project, error) {
	result := []domain.Project{}
	for rows.Next() {
		var project domain.Project
		if err := scanProject(rows, &project); err != nil {
			return nil, err
		}
		result = append(result, project)
	}
	return result, rows.Err()
}
