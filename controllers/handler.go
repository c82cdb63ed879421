package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/catalog"
	"github.com/khankhulgun/khanstyle/reconcile"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/rs/zerolog"
)

// Handler serves the style of one map. Store and Snapshot are optional.
type Handler struct {
	Engine *reconcile.Engine
	Style  *style.Memory
	Store  *catalog.Store
	Log    zerolog.Logger

	MapID    string
	IconDir  string
	Snapshot string
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

func failWith(c *fiber.Ctx, status int, message string, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"error":   err.Error(),
	})
}
