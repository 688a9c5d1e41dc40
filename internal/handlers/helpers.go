package handlers

import (
	"strings"

	"github.com/fotodepo/backend/internal/apperrors"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/fotodepo/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// respondError maps a tagged service error to its HTTP status. Untagged
// errors and infrastructure failures come back as 500 and get logged here so
// handlers do not have to.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)

	status := fiber.StatusInternalServerError
	switch kind {
	case apperrors.KindValidation:
		status = fiber.StatusBadRequest
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
	case apperrors.KindConflict:
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		logger.Error("request_failed", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		if kind == "" {
			kind = apperrors.KindIO
		}
	}

	return utils.Fail(c, status, string(kind), apperrors.MessageOf(err))
}
