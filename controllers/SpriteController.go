package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/sprite"
)

// GetSpriteIndex and GetSpriteImage serve the icons of the declared symbol
// layers. ?ratio=2 renders the high density sheet.
func (h *Handler) GetSpriteIndex(c *fiber.Ctx) error {
	sheet, err := h.sprite(c)
	if err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error building sprite", err)
	}
	return c.JSON(sheet.Index)
}

func (h *Handler) GetSpriteImage(c *fiber.Ctx) error {
	sheet, err := h.sprite(c)
	if err != nil {
		return failWith(c, fiber.StatusInternalServerError, "Error building sprite", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(sheet.PNG)
}

// maxSpriteRatio caps ?ratio=. Icons are rasterized at ratio times their
// size on each side.
const maxSpriteRatio = 4

func (h *Handler) sprite(c *fiber.Ctx) (sprite.Sheet, error) {
	names := sprite.IconNames(h.Engine.Descriptors())
	ratio := min(max(c.QueryInt("ratio", 1), 1), maxSpriteRatio)
	sheet, err := sprite.Build(h.IconDir, names, ratio)
	if err != nil {
		return sprite.Sheet{}, err
	}
	if len(sheet.Missing) > 0 {
		h.Log.Warn().Strs("icons", sheet.Missing).Str("dir", h.IconDir).Msg("icons missing from sprite")
	}
	return sheet, nil
}
