package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/registry/internal/middleware"
	"github.com/example/registry/internal/services"
	"github.com/example/registry/internal/utils"
)

// ErrorHandler converts handler errors into JSON responses. Only client faults
// carry their message to the caller; everything else is logged and reported as 500.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			fiberErr *fiber.Error
			valErr   *utils.ValidationError
			svcErr   *services.Error
		)

		switch {
		case errors.As(err, &valErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": valErr.Fields})
		case errors.As(err, &svcErr):
			return c.Status(statusFor(svcErr.Kind)).JSON(fiber.Map{"error": svcErr.Message})
		case errors.As(err, &fiberErr):
			if fiberErr.Code >= fiber.StatusInternalServerError {
				log.Error().Str("method", c.Method()).Str("path", c.Path()).Msg(fiberErr.Message)
			}
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Record already exists"})
		}

		event := log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path())
		if id, ok := middleware.CurrentIdentity(c); ok {
			event = event.Uint("user_id", id.ID)
		}
		event.Msg("request failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(kind, services.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(kind, services.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusBadRequest
	}
}

// parseBody decodes the JSON body into out and runs its validation rules.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return utils.Validate(out)
}

type idRequest struct {
	ID uint `json:"id" validate:"required"`
}

func parseID(c *fiber.Ctx) (uint, error) {
	var req idRequest
	if err := parseBody(c, &req); err != nil {
		return 0, err
	}
	return req.ID, nil
}

func currentUser(c *fiber.Ctx) (*middleware.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Not Authenticated.")
	}
	return id, nil
}
