package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// CreateIssueRequest payload. Status and priority default when omitted.
type CreateIssueRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Assignee    *string `json:"assignee"`
}

// UpdateIssueRequest payload. Only fields present in the body are changed.
type UpdateIssueRequest struct {
	Title       Nullable[string] `json:"title"`
	Description Nullable[string] `json:"description"`
	Status      Nullable[string] `json:"status"`
	Priority    Nullable[string] `json:"priority"`
	Assignee    Nullable[string] `json:"assignee"`
}

// IssueResponse represents an issue.
type IssueResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	Status      domain.IssueStatus   `json:"status"`
	Priority    domain.IssuePriority `json:"priority"`
	Assignee    *string              `json:"assignee"`
	ProjectID   string               `json:"project_id"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Fields converts the request into domain values, rejecting unknown labels.
func (r CreateIssueRequest) Fields() (domain.IssueFields, error) {
	fields := domain.IssueFields{
		Title:       r.Title,
		Description: r.Description,
		Assignee:    r.Assignee,
	}
	if r.Status != nil {
		status, err := domain.ParseIssueStatus(*r.Status)
		if err != nil {
			return fields, invalidField("status", err)
		}
		fields.Status = status
	}
	if r.Priority != nil {
		priority, err := domain.ParseIssuePriority(*r.Priority)
		if err != nil {
			return fields, invalidField("priority", err)
		}
		fields.Priority = priority
	}
	return fields.WithDefaults(), nil
}

// Patch converts the request into a domain patch. Title, status and priority cannot be null.
func (r UpdateIssueRequest) Patch() (domain.IssuePatch, error) {
	var patch domain.IssuePatch

	if r.Title.Present {
		if r.Title.Null {
			return patch, nullField("title")
		}
		patch.Title = domain.Some(r.Title.Value)
	}
	if r.Description.Present {
		patch.Description = domain.Some(r.Description.Ptr())
	}
	if r.Status.Present {
		if r.Status.Null {
			return patch, nullField("status")
		}
		status, err := domain.ParseIssueStatus(r.Status.Value)
		if err != nil {
			return patch, invalidField("status", err)
		}
		patch.Status = domain.Some(status)
	}
	if r.Priority.Present {
		if r.Priority.Null {
			return patch, nullField("priority")
		}
		priority, err := domain.ParseIssuePriority(r.Priority.Value)
		if err != nil {
			return patch, invalidField("priority", err)
		}
		patch.Priority = domain.Some(priority)
	}
	if r.Assignee.Present {
		patch.Assignee = domain.Some(r.Assignee.Ptr())
	}
	return patch, nil
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      issue.Status,
		Priority:    issue.Priority,
		Assignee:    issue.Assignee,
		ProjectID:   issue.ProjectID,
		CreatedAt:   issue.CreatedAt,
	}
}

// NewIssueList maps issues, returning an empty slice rather than nil.
func NewIssueList(issues []domain.Issue) []IssueResponse {
	items := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		items = append(items, NewIssueResponse(&issues[i]))
	}
	return items
}

func invalidField(field string, err error) error {
	return apperrors.NewValidationError(err.Error(), map[string]any{"field": field})
}

func nullField(field string) error {
	return apperrors.NewValidationError(field+" cannot be null", map[string]any{"field": field})
}
