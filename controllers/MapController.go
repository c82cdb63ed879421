package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/models"
)

// GetStyle renders the backend's current sources and layers as a style
// document.
func (h *Handler) GetStyle(c *fiber.Ctx) error {
	if !h.Style.Loaded() {
		return fail(c, fiber.StatusServiceUnavailable, "Style is not loaded")
	}

	doc := models.StyleDocument{
		Version: 8,
		Name:    h.MapID,
		Sources: map[string]models.SourceDocument{},
		Sprite:  c.BaseURL() + strings.TrimSuffix(c.Path(), "/style") + "/sprite",
	}
	for _, src := range h.Style.Sources() {
		doc.Sources[src.ID] = models.SourceDocument{
			Type:  src.Type,
			URL:   src.URL,
			Tiles: src.Tiles,
			Data:  src.Data,
		}
	}
	for _, l := range h.Style.Layers() {
		layer := models.LayerDocument{
			ID:          l.ID,
			Type:        l.Type,
			Source:      l.Source,
			SourceLayer: l.SourceLayer,
			MinZoom:     l.MinZoom,
			MaxZoom:     l.MaxZoom,
		}
		if l.Filter != nil {
			layer.Filter = l.Filter.Tree
		}
		if len(l.Paint) > 0 {
			layer.Paint = l.Paint
		}
		if len(l.Layout) > 0 {
			layer.Layout = l.Layout
		}
		doc.Layers = append(doc.Layers, layer)
	}
	if doc.Layers == nil {
		doc.Layers = []models.LayerDocument{}
	}

	return c.JSON(doc)
}

// Load and Unload drive the in-process style's lifecycle, the way a
// renderer reloading its style would.
func (h *Handler) Load(c *fiber.Ctx) error {
	h.Style.Load()
	return c.JSON(fiber.Map{"status": "success", "loaded": h.Style.Loaded()})
}

func (h *Handler) Unload(c *fiber.Ctx) error {
	h.Style.Unload()
	return c.JSON(fiber.Map{"status": "success", "loaded": h.Style.Loaded()})
}
