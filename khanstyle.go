// Package khanstyle serves a map style that is declared layer by layer and
// reconciled onto a backend style.
package khanstyle

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/catalog"
	"github.com/khankhulgun/khanstyle/controllers"
	"github.com/khankhulgun/khanstyle/maplayer"
	"github.com/khankhulgun/khanstyle/reconcile"
)

func Set(app *fiber.App, h *controllers.Handler) {
	a := app.Group("/style/api")
	a.Get("/style", h.GetStyle)
	a.Post("/load", h.Load)
	a.Post("/unload", h.Unload)

	a.Get("/layers", h.GetLayers)
	a.Get("/layers/:id", h.GetLayer)
	a.Post("/layers", h.CreateLayer)
	a.Put("/layers/:id", h.UpdateLayer)
	a.Delete("/layers/:id", h.DeleteLayer)

	a.Get("/sources", h.GetSources)
	a.Post("/sources", h.SaveSource)
	a.Delete("/sources/:id", h.DeleteSource)

	a.Get("/sprite.json", h.GetSpriteIndex)
	a.Get("/sprite.png", h.GetSpriteImage)
}

// Mount declares every source and layer of doc on e, sources first. Layers
// that fail validation are skipped and returned together.
func Mount(e *reconcile.Engine, doc catalog.Document) error {
	var errs []error
	for _, src := range doc.Sources {
		if err := e.UpsertSource(src); err != nil {
			errs = append(errs, err)
		}
	}
	for _, props := range doc.Layers {
		d, err := maplayer.Describe(props)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.Mount(d); err != nil {
			errs = append(errs, fmt.Errorf("mount %s: %w", d.ID, err))
		}
	}
	return errors.Join(errs...)
}
