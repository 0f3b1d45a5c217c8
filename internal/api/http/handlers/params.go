package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// pathID reads a UUID path parameter. Anything unparseable cannot name a row, so it is NotFound.
func pathID(c *fiber.Ctx, name, resource string) (string, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return "", apperrors.NewNotFound(resource)
	}
	return id.String(), nil
}

func caller(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("Not authenticated")
	}
	return user, nil
}
