package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

type issueRow struct {
	ID          string  `db:"id"`
	ProjectID   string  `db:"project_id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	Status      string  `db:"status"`
	Priority    string  `db:"priority"`
	Assignee    *string `db:"assignee"`
	CreatedAt   int64   `db:"created_at"`
}

func (r issueRow) toDomain() domain.Issue {
	return domain.Issue{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.IssueStatus(r.Status),
		Priority:    domain.IssuePriority(r.Priority),
		Assignee:    r.Assignee,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

type issueProjectRow struct {
	issueRow
	ProjectTitle       string  `db:"p_title"`
	ProjectDescription *string `db:"p_description"`
	ProjectOwnerID     string  `db:"p_owner_id"`
	ProjectCreatedAt   int64   `db:"p_created_at"`
}

const selectIssues = `SELECT id, project_id, title, description, status, priority, assignee, created_at FROM issues`

// ListIssues returns the issues of a project, oldest first.
func (s *Store) ListIssues(ctx context.Context, projectID string) ([]domain.Issue, error) {
	var rows []issueRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, selectIssues+` WHERE project_id = ? ORDER BY created_at, id`, projectID)
	})
	if err != nil {
		return nil, err
	}
	issues := make([]domain.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, row.toDomain())
	}
	return issues, nil
}

// CreateIssue stores an issue under projectID, defaulting status and priority.
func (s *Store) CreateIssue(ctx context.Context, projectID string, fields domain.IssueFields) (*domain.Issue, error) {
	fields = fields.WithDefaults()
	row := issueRow{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      string(fields.Status),
		Priority:    string(fields.Priority),
		Assignee:    fields.Assignee,
		CreatedAt:   s.timestamp(),
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO issues (id, project_id, title, description, status, priority, assignee, created_at)
			VALUES (:id, :project_id, :title, :description, :status, :priority, :assignee, :created_at)`, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	issue := row.toDomain()
	return &issue, nil
}

// GetIssueWithProject loads an issue and its parent project in one query.
func (s *Store) GetIssueWithProject(ctx context.Context, issueID string) (*domain.Issue, *domain.Project, error) {
	var row issueProjectRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &row, `
			SELECT i.id, i.project_id, i.title, i.description, i.status, i.priority, i.assignee, i.created_at,
			       p.title AS p_title, p.description AS p_description,
			       p.owner_id AS p_owner_id, p.created_at AS p_created_at
			FROM issues i JOIN projects p ON p.id = i.project_id
			WHERE i.id = ?`, issueID)
	})
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	issue := row.issueRow.toDomain()
	project := &domain.Project{
		ID:          row.ProjectID,
		Title:       row.ProjectTitle,
		Description: row.ProjectDescription,
		OwnerID:     row.ProjectOwnerID,
		CreatedAt:   fromMillis(row.ProjectCreatedAt),
	}
	return &issue, project, nil
}

// UpdateIssue writes the fields set in patch and returns the stored issue.
func (s *Store) UpdateIssue(ctx context.Context, issueID string, patch domain.IssuePatch) (*domain.Issue, error) {
	sets, args := patchAssignments(patch)

	var row issueRow
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if len(sets) > 0 {
			res, err := tx.ExecContext(ctx,
				`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
				append(args, issueID)...)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err != nil {
				return err
			} else if affected == 0 {
				return sql.ErrNoRows
			}
		}
		return tx.GetContext(ctx, &row, selectIssues+` WHERE id = ?`, issueID)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	issue := row.toDomain()
	return &issue, nil
}

// DeleteIssue removes a single issue.
func (s *Store) DeleteIssue(ctx context.Context, issueID string) (bool, error) {
	deleted := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, issueID)
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

func patchAssignments(patch domain.IssuePatch) ([]string, []any) {
	var sets []string
	var args []any
	if patch.Title.Set {
		sets = append(sets, "title = ?")
		args = append(args, patch.Title.Value)
	}
	if patch.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, patch.Description.Value)
	}
	if patch.Status.Set {
		sets = append(sets, "status = ?")
		args = append(args, string(patch.Status.Value))
	}
	if patch.Priority.Set {
		sets = append(sets, "priority = ?")
		args = append(args, string(patch.Priority.Value))
	}
	if patch.Assignee.Set {
		sets = append(sets, "assignee = ?")
		args = append(args, patch.Assignee.Value)
	}
	return sets, args
}
