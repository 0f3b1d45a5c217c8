package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// maxTextLength bounds single-line text columns, counted in characters.
const maxTextLength = 255

// ProjectCreateInput describes project creation payload. Ownership always comes from the caller.
type ProjectCreateInput struct {
	Title       string
	Description *string
}

// ProjectService applies owner scoping to every project operation.
type ProjectService struct {
	projects repository.ProjectRepository
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// ListProjects returns the caller's projects.
func (s *ProjectService) ListProjects(ctx context.Context, caller *domain.User) ([]domain.Project, error) {
	projects, err := s.projects.ListProjects(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return projects, nil
}

// CreateProject stores a project owned by the caller.
func (s *ProjectService) CreateProject(ctx context.Context, caller *domain.User, input ProjectCreateInput) (*domain.Project, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.CreateProject(ctx, title, input.Description, caller.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return project, nil
}

// GetProject returns a project owned by the caller.
func (s *ProjectService) GetProject(ctx context.Context, caller *domain.User, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID, caller.ID)
	if err != nil {
		return nil, projectLookupError(err)
	}
	return project, nil
}

// DeleteProject removes a project owned by the caller together with its issues.
func (s *ProjectService) DeleteProject(ctx context.Context, caller *domain.User, projectID string) error {
	deleted, err := s.projects.DeleteProject(ctx, projectID, caller.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("Project")
	}
	return nil
}

func projectLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("Project")
	}
	return apperrors.NewInternalError(err)
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.NewValidationError("title required", nil)
	}
	if tooLong(title) {
		return "", apperrors.NewValidationError("title too long", map[string]any{"max_length": maxTextLength})
	}
	return title, nil
}

func tooLong(value string) bool {
	return utf8.RuneCountInString(value) > maxTextLength
}
