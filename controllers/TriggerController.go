package controllers

import (
	"errors"

	"github.com/khankhulgun/khanstyle/catalog"
	"github.com/khankhulgun/khanstyle/models"
)

// AfterSaveLayer persists a mounted or updated layer. oldID is the id the
// layer had before, when it was renamed.
func (h *Handler) AfterSaveLayer(oldID string, d models.LayerDescriptor) error {
	if h.Store != nil {
		if oldID != "" && oldID != d.ID {
			if err := h.Store.DeleteLayer(h.MapID, oldID); err != nil && !errors.Is(err, catalog.ErrNotFound) {
				return err
			}
		}
		if err := h.Store.SaveLayer(h.MapID, d.Props()); err != nil {
			return err
		}
	}
	h.GenerateSnapshot()
	return nil
}

func (h *Handler) AfterDeleteLayer(id string) error {
	if h.Store != nil {
		if err := h.Store.DeleteLayer(h.MapID, id); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
	}
	h.GenerateSnapshot()
	return nil
}

func (h *Handler) AfterSaveSource(src models.SourceDescriptor) error {
	if h.Store != nil {
		if err := h.Store.SaveSource(h.MapID, src); err != nil {
			return err
		}
	}
	h.GenerateSnapshot()
	return nil
}

func (h *Handler) AfterDeleteSource(id string) error {
	if h.Store != nil {
		if err := h.Store.DeleteSource(h.MapID, id); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
	}
	h.GenerateSnapshot()
	return nil
}

// GenerateSnapshot writes the current declarations to the snapshot file, if
// one is configured. Failures are logged only.
func (h *Handler) GenerateSnapshot() {
	if h.Snapshot == "" {
		return
	}
	doc := catalog.Document{Sources: h.Engine.Sources()}
	for _, d := range h.Engine.Descriptors() {
		doc.Layers = append(doc.Layers, d.Props())
	}
	if err := catalog.WriteFile(h.Snapshot, doc); err != nil {
		h.Log.Error().Err(err).Str("file", h.Snapshot).Msg("style snapshot failed")
		return
	}
	h.Log.Debug().Str("file", h.Snapshot).Int("layers", len(doc.Layers)).Msg("style snapshot written")
}
