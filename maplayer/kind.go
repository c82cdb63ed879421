package maplayer

import (
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
)

// variant is what a layer kind knows: how to construct its default backend
// value and which declared options it takes.
type variant struct {
	kind            models.Kind
	usesSource      bool
	usesSourceLayer bool
	usesFilter      bool
}

func variantOf(k models.Kind) (variant, bool) {
	switch k {
	case models.KindFill, models.KindLine, models.KindCircle, models.KindSymbol,
		models.KindFillExtrusion, models.KindHeatmap:
		return variant{kind: k, usesSource: true, usesSourceLayer: true, usesFilter: true}, true
	case models.KindRaster, models.KindHillshade:
		return variant{kind: k, usesSource: true}, true
	case models.KindBackground, models.KindSky:
		return variant{kind: k}, true
	}
	return variant{}, false
}

func (v variant) construct(gw style.Gateway, id string) (*style.Layer, error) {
	return gw.CreateLayer(string(v.kind), id)
}

// apply writes the declared options onto a layer value that is not in the
// style yet. Properties that do not belong to the kind are left out; the
// second pass through the gateway reports them.
func (v variant) apply(layer *style.Layer, d models.LayerDescriptor, filter *style.Expression) {
	if v.usesSource {
		layer.Source = d.SourceID
	}
	if v.usesSourceLayer {
		layer.SourceLayer = d.SourceLayerID
	}
	if v.usesFilter {
		layer.Filter = filter
	}
	layer.MinZoom, layer.MaxZoom = d.MinZoom, d.MaxZoom

	if layer.Paint == nil {
		layer.Paint = map[string]any{}
	}
	if layer.Layout == nil {
		layer.Layout = map[string]any{}
	}
	for name, value := range d.Paint {
		if style.ValidPaint(layer.Type, name) {
			layer.Paint[name] = value
		}
	}
	for name, value := range d.Layout {
		if style.ValidLayout(layer.Type, name) {
			layer.Layout[name] = value
		}
	}
}
