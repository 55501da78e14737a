package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/golmok/internal/services"
)

// writeServiceError maps a business error to its HTTP status while
// keeping the machine-readable code in the payload; the UI copy for
// "already used" differs from "not found" and must stay
// distinguishable.
func writeServiceError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return err
	}

	var status int
	switch svcErr.Code {
	case services.CodeInvalidInput:
		status = fiber.StatusBadRequest
	case services.CodeNotFound:
		status = fiber.StatusNotFound
	case services.CodeAlreadyUsed, services.CodeExpired, services.CodeConflict:
		status = fiber.StatusConflict
	case services.CodePreconditionFailed:
		status = fiber.StatusUnprocessableEntity
	default:
		return err
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   string(svcErr.Code),
		"message": svcErr.Message,
	})
}
