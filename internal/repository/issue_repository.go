package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueRepository encapsulates issue persistence.
// Callers verify project ownership before listing or creating.
type IssueRepository interface {
	ListIssues(ctx context.Context, projectID string) ([]domain.Issue, error)
	CreateIssue(ctx context.Context, projectID string, fields domain.IssueFields) (*domain.Issue, error)
	// GetIssueWithProject loads an issue together with its parent project.
	GetIssueWithProject(ctx context.Context, issueID string) (*domain.Issue, *domain.Project, error)
	// UpdateIssue writes only the fields set in patch.
	UpdateIssue(ctx context.Context, issueID string, patch domain.IssuePatch) (*domain.Issue, error)
	DeleteIssue(ctx context.Context, issueID string) (bool, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, project_id, title, description, status, priority, assignee, created_at`

func (r *issueRepository) ListIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	const query = `SELECT ` + issueColumns + `
        FROM issues WHERE project_id=$1
        ORDER BY created_at, id`

	var issues []domain.Issue
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		issues, err = scanIssues(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *issueRepository) CreateIssue(ctx context.Context, projectID string, fields domain.IssueFields) (*domain.Issue, error) {
	const query = `
        INSERT INTO issues (id, project_id, title, description, status, priority, assignee)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`

	fields = fields.WithDefaults()
	issue := &domain.Issue{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      fields.Status,
		Priority:    fields.Priority,
		Assignee:    fields.Assignee,
	}
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			issue.ID,
			issue.ProjectID,
			issue.Title,
			issue.Description,
			issue.Status,
			issue.Priority,
			issue.Assignee,
		).Scan(&issue.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *issueRepository) GetIssueWithProject(ctx context.Context, issueID string) (*domain.Issue, *domain.Project, error) {
	const query = `
        SELECT i.id, i.project_id, i.title, i.description, i.status, i.priority, i.assignee, i.created_at,
               p.id, p.title, p.description, p.owner_id, p.created_at
        FROM issues i JOIN projects p ON p.id = i.project_id
        WHERE i.id=$1`

	var issue domain.Issue
	var project domain.Project
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, issueID).Scan(
			&issue.ID,
			&issue.ProjectID,
			&issue.Title,
			&issue.Description,
			&issue.Status,
			&issue.Priority,
			&issue.Assignee,
			&issue.CreatedAt,
			&project.ID,
			&project.Title,
			&project.Description,
			&project.OwnerID,
			&project.CreatedAt,
		)
	})
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	return &issue, &project, nil
}

func (r *issueRepository) UpdateIssue(ctx context.Context, issueID string, patch domain.IssuePatch) (*domain.Issue, error) {
	sets, args := patchAssignments(patch)

	var query string
	if len(sets) == 0 {
		query = `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	} else {
		query = fmt.Sprintf(`UPDATE issues SET %s WHERE id=$%d RETURNING %s`,
			strings.Join(sets, ", "), len(args)+1, issueColumns)
	}
	args = append(args, issueID)

	var issue domain.Issue
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return scanIssue(tx.QueryRow(ctx, query, args...), &issue)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &issue, nil
}

func (r *issueRepository) DeleteIssue(ctx context.Context, issueID string) (bool, error) {
	const query = `DELETE FROM issues WHERE id=$1`

	deleted := false
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query, issueID)
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

// patchAssignments builds numbered SET clauses for the fields present in patch.
func patchAssignments(patch domain.IssuePatch) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Title.Set {
		add("title", patch.Title.Value)
	}
	if patch.Description.Set {
		add("description", patch.Description.Value)
	}
	if patch.Status.Set {
		add("status", patch.Status.Value)
	}
	if patch.Priority.Set {
		add("priority", patch.Priority.Value)
	}
	if patch.Assignee.Set {
		add("assignee", patch.Assignee.Value)
	}
	return sets, args
}

func scanIssue(row pgx.Row, issue *domain.Issue) error {
	return row.Scan(
		&issue.ID,
		&issue.ProjectID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.Priority,
		&issue.Assignee,
		&issue.CreatedAt,
	)
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	result := []domain.Issue{}
	for rows.Next() {
		var issue domain.Issue
		if err := scanIssue(rows, &issue); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}
