package maplayer

import (
	"strings"

	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
)

// Describe converts wire props into a validated descriptor.
func Describe(p models.LayerProps) (models.LayerDescriptor, error) {
	id := strings.TrimSpace(p.ID)
	pos, err := models.NewPosition(strings.TrimSpace(p.AboveLayerID), strings.TrimSpace(p.BelowLayerID), p.LayerIndex)
	if err != nil {
		return models.LayerDescriptor{}, &style.StructuralError{LayerID: id, Field: "position", Reason: err.Error()}
	}
	d := models.LayerDescriptor{
		ID:            id,
		Kind:          models.Kind(p.Type),
		SourceID:      p.Source,
		SourceLayerID: p.SourceLayer,
		Filter:        p.Filter,
		MinZoom:       p.MinZoom,
		MaxZoom:       p.MaxZoom,
		Paint:         p.Paint,
		Layout:        p.Layout,
		Position:      pos,
	}
	if err := Validate(d); err != nil {
		return models.LayerDescriptor{}, err
	}
	return d, nil
}

// Validate rejects descriptors that can never reach a backend.
func Validate(d models.LayerDescriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return &style.StructuralError{Field: "id", Reason: "required"}
	}
	if _, ok := variantOf(d.Kind); !ok {
		return &style.StructuralError{LayerID: d.ID, Field: "type", Reason: "unknown layer type " + string(d.Kind)}
	}
	switch d.Position.Kind {
	case models.PositionAbove, models.PositionBelow:
		if d.Position.Ref == "" {
			return &style.StructuralError{LayerID: d.ID, Field: "position", Reason: "missing reference layer"}
		}
		if d.Position.Ref == d.ID {
			return &style.StructuralError{LayerID: d.ID, Field: "position", Reason: "layer cannot be placed relative to itself"}
		}
	case models.PositionAt:
		if d.Position.Index < 0 {
			return &style.StructuralError{LayerID: d.ID, Field: "position", Reason: "negative layer index"}
		}
	}
	if d.MinZoom != nil && d.MaxZoom != nil && *d.MinZoom > *d.MaxZoom {
		return &style.StructuralError{LayerID: d.ID, Field: "zoom", Reason: "minZoom above maxZoom"}
	}
	return nil
}
