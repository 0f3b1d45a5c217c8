package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/service"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// IssuesHandler manages issues inside the caller's projects.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// ListIssues GET /projects/:id/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "id", "Project")
	if err != nil {
		return err
	}
	issues, err := h.service.ListIssues(c.UserContext(), user, projectID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIssueList(issues))
}

// CreateIssue POST /projects/:id/issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "id", "Project")
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fields, err := req.Fields()
	if err != nil {
		return err
	}

	issue, err := h.service.CreateIssue(c.UserContext(), user, projectID, fields)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIssueResponse(issue))
}

// UpdateIssue PUT /issues/:id.
func (h *IssuesHandler) UpdateIssue(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	issueID, err := pathID(c, "id", "Issue")
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch, err := req.Patch()
	if err != nil {
		return err
	}

	issue, err := h.service.UpdateIssue(c.UserContext(), user, issueID, patch)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIssueResponse(issue))
}

// DeleteIssue DELETE /issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	issueID, err := pathID(c, "id", "Issue")
	if err != nil {
		return err
	}
	if err := h.service.DeleteIssue(c.UserContext(), user, issueID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Issue deleted successfully"})
}
