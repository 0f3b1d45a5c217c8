package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/service"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// ProjectsHandler manages the caller's projects.
type ProjectsHandler struct {
	service *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projectService *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{service: projectService}
}

// ListProjects GET /projects.
func (h *ProjectsHandler) ListProjects(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	projects, err := h.service.ListProjects(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProjectList(projects))
}

// CreateProject POST /projects.
func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	project, err := h.service.CreateProject(c.UserContext(), user, service.ProjectCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProjectResponse(project))
}

// GetProject GET /projects/:id.
func (h *ProjectsHandler) GetProject(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "id", "Project")
	if err != nil {
		return err
	}
	project, err := h.service.GetProject(c.UserContext(), user, projectID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewProjectResponse(project))
}

// DeleteProject DELETE /projects/:id.
func (h *ProjectsHandler) DeleteProject(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "id", "Project")
	if err != nil {
		return err
	}
	if err := h.service.DeleteProject(c.UserContext(), user, projectID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Project deleted successfully"})
}
