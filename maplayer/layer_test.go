package maplayer

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
)

func TestDescribe(t *testing.T) {
	idx := 2
	d, err := Describe(models.LayerProps{ID: "roads", Type: "line", Source: "osm", SourceLayer: "transport", LayerIndex: &idx})
	assert.Equal(t, nil, err)
	assert.Equal(t, models.KindLine, d.Kind)
	assert.Equal(t, models.At(2), d.Position)
	assert.Equal(t, "transport", d.SourceLayerID)

	props := d.Props()
	assert.Equal(t, 2, *props.LayerIndex)
	assert.Equal(t, "", props.AboveLayerID)
}

func TestDescribeTrimsIDs(t *testing.T) {
	d, err := Describe(models.LayerProps{ID: " roads ", Type: "line", AboveLayerID: " water\t"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "roads", d.ID)
	assert.Equal(t, models.Above("water"), d.Position)

	idx := 0
	_, err = Describe(models.LayerProps{ID: " roads ", Type: "line", BelowLayerID: "water", LayerIndex: &idx})
	var se *style.StructuralError
	assert.Equal(t, true, errors.As(err, &se))
	assert.Equal(t, "roads", se.LayerID)

	_, err = Describe(models.LayerProps{ID: "roads", Type: "line", BelowLayerID: "  "})
	assert.Equal(t, true, errors.As(err, &se))
	assert.Equal(t, "position", se.Field)
}

func TestDescribeRejects(t *testing.T) {
	idx, neg := 1, -1
	lo, hi := 10.0, 2.0
	cases := map[string]struct {
		props models.LayerProps
		field string
	}{
		"missing id":    {models.LayerProps{Type: "fill"}, "id"},
		"unknown type":  {models.LayerProps{ID: "a", Type: "polygon"}, "type"},
		"ambiguous":     {models.LayerProps{ID: "a", Type: "fill", AboveLayerID: "b", LayerIndex: &idx}, "position"},
		"self relative": {models.LayerProps{ID: "a", Type: "fill", BelowLayerID: "a"}, "position"},
		"negative":      {models.LayerProps{ID: "a", Type: "fill", LayerIndex: &neg}, "position"},
		"zoom range":    {models.LayerProps{ID: "a", Type: "fill", MinZoom: &lo, MaxZoom: &hi}, "zoom"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Describe(tc.props)
			var se *style.StructuralError
			assert.Equal(t, true, errors.As(err, &se))
			assert.Equal(t, tc.field, se.Field)
			assert.Equal(t, true, errors.Is(err, style.ErrStructural))
		})
	}
}

func TestResolve(t *testing.T) {
	at, awaited := Resolve(models.DefaultPosition())
	assert.Equal(t, style.PlaceTop, at.Placement)
	assert.Equal(t, "", awaited)

	at, awaited = Resolve(models.Below("water"))
	assert.Equal(t, style.Instruction{Placement: style.PlaceBelow, Ref: "water"}, at)
	assert.Equal(t, "water", awaited)

	at, awaited = Resolve(models.At(3))
	assert.Equal(t, 3, at.Index)
	assert.Equal(t, "", awaited)
}

func TestKindVariants(t *testing.T) {
	v, ok := variantOf(models.KindRaster)
	assert.Equal(t, true, ok)
	assert.Equal(t, true, v.usesSource)
	assert.Equal(t, false, v.usesFilter)

	v, _ = variantOf(models.KindBackground)
	assert.Equal(t, false, v.usesSource)

	_, ok = variantOf("polygon")
	assert.Equal(t, false, ok)
}
