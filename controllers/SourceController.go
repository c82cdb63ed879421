package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/models"
)

func (h *Handler) GetSources(c *fiber.Ctx) error {
	return c.JSON(h.Engine.Sources())
}

func (h *Handler) SaveSource(c *fiber.Ctx) error {
	var src models.SourceDescriptor
	if err := c.BodyParser(&src); err != nil {
		return failWith(c, fiber.StatusBadRequest, "Invalid source", err)
	}
	if err := h.Engine.UpsertSource(src); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.AfterSaveSource(src); err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error saving source", err)
	}
	return c.JSON(src)
}

func (h *Handler) DeleteSource(c *fiber.Ctx) error {
	id := c.Params("id")
	found := false
	for _, src := range h.Engine.Sources() {
		if src.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fail(c, fiber.StatusNotFound, "Source not found")
	}
	h.Engine.RemoveSource(id)
	if err := h.AfterDeleteSource(id); err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error deleting source", err)
	}
	return c.JSON(fiber.Map{"status": "success", "id": id})
}
