package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// CreateProjectRequest payload.
type CreateProjectRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// ProjectResponse represents a project.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProjectResponse maps a domain project.
func NewProjectResponse(project *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		CreatedAt:   project.CreatedAt,
	}
}

// NewProjectList maps projects, returning an empty slice rather than nil.
func NewProjectList(projects []domain.Project) []ProjectResponse {
	items := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, NewProjectResponse(&projects[i]))
	}
	return items
}
