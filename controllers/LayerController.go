package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/maplayer"
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
)

func (h *Handler) GetLayers(c *fiber.Ctx) error {
	return c.JSON(h.Engine.States())
}

func (h *Handler) GetLayer(c *fiber.Ctx) error {
	id := c.Params("id")
	d, ok := h.Engine.Descriptor(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Layer not found")
	}
	return c.JSON(models.LayerState{Layer: d.Props(), Status: string(h.Engine.Status(id))})
}

func (h *Handler) CreateLayer(c *fiber.Ctx) error {
	var props models.LayerProps
	if err := c.BodyParser(&props); err != nil {
		return failWith(c, fiber.StatusBadRequest, "Invalid layer", err)
	}
	d, err := maplayer.Describe(props)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if _, exists := h.Engine.Descriptor(d.ID); exists {
		return fail(c, fiber.StatusConflict, "Layer already exists")
	}
	if err := h.Engine.Mount(d); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.AfterSaveLayer("", d); err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error saving layer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.LayerState{Layer: d.Props(), Status: string(h.Engine.Status(d.ID))})
}

// UpdateLayer replaces the declaration of :id. A different id in the body
// renames the layer, which recreates it.
func (h *Handler) UpdateLayer(c *fiber.Ctx) error {
	id := c.Params("id")
	old, ok := h.Engine.Descriptor(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Layer not found")
	}

	var props models.LayerProps
	if err := c.BodyParser(&props); err != nil {
		return failWith(c, fiber.StatusBadRequest, "Invalid layer", err)
	}
	if props.ID == "" {
		props.ID = id
	}
	next, err := maplayer.Describe(props)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	if next.ID != id {
		if _, exists := h.Engine.Descriptor(next.ID); exists {
			return fail(c, fiber.StatusConflict, "Layer already exists")
		}
	}
	if err := h.Engine.Update(old, next); err != nil {
		if errors.Is(err, style.ErrStructural) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return failWith(c, fiber.StatusInternalServerError, "Error updating layer", err)
	}
	if err := h.AfterSaveLayer(old.ID, next); err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error saving layer", err)
	}
	return c.JSON(models.LayerState{Layer: next.Props(), Status: string(h.Engine.Status(next.ID))})
}

func (h *Handler) DeleteLayer(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.Engine.Descriptor(id); !ok {
		return fail(c, fiber.StatusNotFound, "Layer not found")
	}
	h.Engine.Unmount(id)
	if err := h.AfterDeleteLayer(id); err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error deleting layer", err)
	}
	return c.JSON(fiber.Map{"status": "success", "id": id})
}
