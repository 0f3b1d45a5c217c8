package service

import (
	"context"
	"errors"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// IssueService resolves issue ownership through the parent project on every call.
type IssueService struct {
	projects repository.ProjectRepository
	issues   repository.IssueRepository
}

// IssueDependencies bundles repositories for issue service.
type IssueDependencies struct {
	ProjectRepo repository.ProjectRepository
	IssueRepo   repository.IssueRepository
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{projects: deps.ProjectRepo, issues: deps.IssueRepo}
}

// ListIssues returns the issues of a project owned by the caller.
func (s *IssueService) ListIssues(ctx context.Context, caller *domain.User, projectID string) ([]domain.Issue, error) {
	if _, err := s.projects.GetProject(ctx, projectID, caller.ID); err != nil {
		return nil, projectLookupError(err)
	}
	issues, err := s.issues.ListIssues(ctx, projectID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return issues, nil
}

// CreateIssue adds an issue to a project owned by the caller.
func (s *IssueService) CreateIssue(ctx context.Context, caller *domain.User, projectID string, fields domain.IssueFields) (*domain.Issue, error) {
	title, err := validateTitle(fields.Title)
	if err != nil {
		return nil, err
	}
	fields.Title = title
	if err := validateIssueFields(fields.Status, fields.Priority, fields.Assignee); err != nil {
		return nil, err
	}

	if _, err := s.projects.GetProject(ctx, projectID, caller.ID); err != nil {
		return nil, projectLookupError(err)
	}
	issue, err := s.issues.CreateIssue(ctx, projectID, fields.WithDefaults())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return issue, nil
}

// UpdateIssue applies patch to an issue whose project the caller owns.
func (s *IssueService) UpdateIssue(ctx context.Context, caller *domain.User, issueID string, patch domain.IssuePatch) (*domain.Issue, error) {
	if patch.Title.Set {
		title, err := validateTitle(patch.Title.Value)
		if err != nil {
			return nil, err
		}
		patch.Title.Value = title
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(patch.Status.Value)})
	}
	if patch.Priority.Set && !patch.Priority.Value.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(patch.Priority.Value)})
	}
	if patch.Assignee.Set {
		if err := validateIssueFields("", "", patch.Assignee.Value); err != nil {
			return nil, err
		}
	}

	if err := s.authorizeIssue(ctx, caller, issueID); err != nil {
		return nil, err
	}
	issue, err := s.issues.UpdateIssue(ctx, issueID, patch)
	if err != nil {
		return nil, issueLookupError(err)
	}
	return issue, nil
}

// DeleteIssue removes an issue whose project the caller owns.
func (s *IssueService) DeleteIssue(ctx context.Context, caller *domain.User, issueID string) error {
	if err := s.authorizeIssue(ctx, caller, issueID); err != nil {
		return err
	}
	deleted, err := s.issues.DeleteIssue(ctx, issueID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("Issue")
	}
	return nil
}

// authorizeIssue reports NotFound for missing issues and for issues in other users' projects alike.
func (s *IssueService) authorizeIssue(ctx context.Context, caller *domain.User, issueID string) error {
	_, project, err := s.issues.GetIssueWithProject(ctx, issueID)
	if err != nil {
		return issueLookupError(err)
	}
	if !project.OwnedBy(caller.ID) {
		return apperrors.NewNotFound("Issue")
	}
	return nil
}

func issueLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Issue")
	}
	return apperrors.NewInternalError(err)
}

// validateIssueFields accepts zero status/priority as "not supplied".
func validateIssueFields(status domain.IssueStatus, priority domain.IssuePriority, assignee *string) error {
	if status != "" && !status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": string(status)})
	}
	if priority != "" && !priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(priority)})
	}
	if assignee != nil && tooLong(*assignee) {
		return apperrors.NewValidationError("assignee too long", map[string]any{"max_length": maxTextLength})
	}
	return nil
}
