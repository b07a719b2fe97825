package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type setPropertyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetProperties returns the document's properties in first-write order.
//
// @Summary Get document properties
// @Tags properties
// @Produce json
// @Param id path string true "document id"
// @Success 200 {array} model.Property
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/properties [get]
func GetProperties(svc service.PropertyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return invalidID(c)
		}
		props, err := svc.Properties(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(props)
	}
}

// SetProperty upserts one property.
//
// @Summary Set a document property
// @Tags properties
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param body body setPropertyRequest true "key and value"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/properties [post]
func SetProperty(svc service.PropertyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return invalidID(c)
		}
		var req setPropertyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "malformed request body")
		}
		if err := svc.SetProperty(c.UserContext(), id, req.Key, req.Value); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"status": "success"})
	}
}
