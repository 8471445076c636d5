package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"agrimarket/internal/domain"
	applog "agrimarket/internal/log"
)

var kindStatus = map[string]int{
	"validation":           fiber.StatusBadRequest,
	"not_found":            fiber.StatusNotFound,
	"invalid_transition":   fiber.StatusConflict,
	"insufficient_stock":   fiber.StatusBadRequest,
	"upstream_unavailable": fiber.StatusBadGateway,
}

// fail writes err as a JSON error body. Unclassified errors are logged and
// replaced by a generic message.
func fail(c *fiber.Ctx, action string, err error) error {
	kind := domain.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
			"kind":  kind,
		})
	}
	if kind == "validation" {
		applog.Security(c, "validation.fail", map[string]any{"action": action, "err": err.Error()})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind})
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "kind": "validation"})
}

// ErrorHandler is the app-wide fallback. fiber errors keep their status; the
// rest become an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		kind := "validation"
		if fe.Code == fiber.StatusNotFound {
			kind = "not_found"
		}
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "kind": kind})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Something went wrong. Please try again.",
		"kind":  "internal",
	})
}
