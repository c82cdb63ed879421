// Package style is the mutation surface of a rendering backend's live style:
// the Gateway the reconciler talks to, the native layer and source values it
// hands over, and an in-memory backend implementing both.
package style

import "strings"

// Placement selects where InsertLayer puts a layer in the stack.
type Placement int

const (
	PlaceTop Placement = iota
	PlaceAbove
	PlaceBelow
	PlaceAt
)

func (p Placement) String() string {
	switch p {
	case PlaceAbove:
		return "above"
	case PlaceBelow:
		return "below"
	case PlaceAt:
		return "at"
	default:
		return "top"
	}
}

// Instruction is a concrete insertion request. Ref is used by PlaceAbove and
// PlaceBelow, Index by PlaceAt.
type Instruction struct {
	Placement Placement
	Ref       string
	Index     int
}

// Expression is a compiled filter in the backend's native form.
type Expression struct {
	// JSON is the canonical serialization handed to the backend.
	JSON []byte
	// Tree is the validated literal the JSON was produced from.
	Tree []any
}

func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return string(e.JSON)
}

// Layer is the backend's layer value. Before InsertLayer it is a plain
// in-memory value the caller may fill in; once inserted it is a handle that
// must only be changed through the Gateway.
type Layer struct {
	ID          string
	Type        string
	Source      string
	SourceLayer string
	Filter      *Expression
	MinZoom     *float64
	MaxZoom     *float64
	Paint       map[string]any
	Layout      map[string]any
}

// Clone returns a deep enough copy for snapshots: maps are copied, values are
// shared.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Paint = cloneProps(l.Paint)
	c.Layout = cloneProps(l.Layout)
	return &c
}

func cloneProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Source is a data source as the backend sees it.
type Source struct {
	ID    string
	Type  string
	URL   string
	Tiles []string
	Data  any
}

// Gateway is the minimal capability surface over a backend style.
type Gateway interface {
	LayerExists(id string) bool
	// LayerIndex is the position of id in the stack, 0 being the bottom, or
	// -1 when it is not in the style.
	LayerIndex(id string) int
	SourceExists(id string) bool
	FindLayer(id string) (*Layer, error)
	// CreateLayer constructs a default layer value of the given type. It is
	// not part of the style until InsertLayer.
	CreateLayer(layerType, id string) (*Layer, error)
	InsertLayer(layer *Layer, at Instruction) error
	RemoveLayer(id string) error
	SetPaintProperty(layer *Layer, name string, value any) error
	SetLayoutProperty(layer *Layer, name string, value any) error
	// SetFilter with a nil expression clears the filter.
	SetFilter(layer *Layer, filter *Expression) error
	SetZoomRange(layer *Layer, min, max *float64) error
	AddSource(src Source) error
	RemoveSource(id string) error
	// OnLayerAppeared runs fn once, the first time a layer with id is in the
	// style. If it already is, fn runs right away.
	OnLayerAppeared(id string, fn func())
}

// Lifecycle delivers the backend's style-loaded and style-unloaded signals.
type Lifecycle interface {
	OnStyleLoaded(fn func(Gateway))
	OnStyleUnloaded(fn func())
}

var paintPrefixes = map[string][]string{
	"fill":           {"fill-"},
	"line":           {"line-"},
	"circle":         {"circle-"},
	"symbol":         {"icon-", "text-"},
	"fill-extrusion": {"fill-extrusion-"},
	"heatmap":        {"heatmap-"},
	"raster":         {"raster-"},
	"hillshade":      {"hillshade-"},
	"background":     {"background-"},
	"sky":            {"sky-"},
}

var layoutPrefixes = map[string][]string{
	"fill":   {"fill-"},
	"line":   {"line-"},
	"circle": {"circle-"},
	"symbol": {"icon-", "text-", "symbol-"},
}

// KnownType reports whether layerType is a layer type the style understands.
func KnownType(layerType string) bool {
	_, ok := paintPrefixes[layerType]
	return ok
}

// ValidPaint reports whether name is a paint property of layerType.
func ValidPaint(layerType, name string) bool {
	return hasPrefix(paintPrefixes[layerType], name)
}

// ValidLayout reports whether name is a layout property of layerType.
// "visibility" is accepted for every type.
func ValidLayout(layerType, name string) bool {
	if name == "visibility" {
		return true
	}
	return hasPrefix(layoutPrefixes[layerType], name)
}

func hasPrefix(prefixes []string, name string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			return true
		}
	}
	return false
}
