package models

import (
	"errors"
	"fmt"
)

// Kind is a visual layer type.
type Kind string

const (
	KindFill          Kind = "fill"
	KindLine          Kind = "line"
	KindCircle        Kind = "circle"
	KindSymbol        Kind = "symbol"
	KindFillExtrusion Kind = "fill-extrusion"
	KindHeatmap       Kind = "heatmap"
	KindRaster        Kind = "raster"
	KindHillshade     Kind = "hillshade"
	KindBackground    Kind = "background"
	KindSky           Kind = "sky"
)

// PositionKind tags a Position.
type PositionKind int

const (
	PositionDefault PositionKind = iota
	PositionAbove
	PositionBelow
	PositionAt
)

// Position is where a layer goes in the stack: on top (default), directly
// above or below another layer, or at a numeric index.
type Position struct {
	Kind  PositionKind
	Ref   string
	Index int
}

func DefaultPosition() Position    { return Position{} }
func Above(id string) Position     { return Position{Kind: PositionAbove, Ref: id} }
func Below(id string) Position     { return Position{Kind: PositionBelow, Ref: id} }
func At(index int) Position        { return Position{Kind: PositionAt, Index: index} }
func (p Position) IsDefault() bool { return p.Kind == PositionDefault }

func (p Position) String() string {
	switch p.Kind {
	case PositionAbove:
		return "above(" + p.Ref + ")"
	case PositionBelow:
		return "below(" + p.Ref + ")"
	case PositionAt:
		return fmt.Sprintf("at(%d)", p.Index)
	default:
		return "default"
	}
}

// ErrAmbiguousPosition is returned when more than one of above, below and
// index is set.
var ErrAmbiguousPosition = errors.New("only one of aboveLayerID, belowLayerID and layerIndex may be set")

// NewPosition builds a Position from the three optional ordering props.
func NewPosition(above, below string, index *int) (Position, error) {
	set := 0
	if above != "" {
		set++
	}
	if below != "" {
		set++
	}
	if index != nil {
		set++
	}
	switch {
	case set > 1:
		return Position{}, ErrAmbiguousPosition
	case above != "":
		return Above(above), nil
	case below != "":
		return Below(below), nil
	case index != nil:
		return At(*index), nil
	}
	return DefaultPosition(), nil
}

// LayerDescriptor is the declared state of one layer.
type LayerDescriptor struct {
	ID            string
	Kind          Kind
	SourceID      string
	SourceLayerID string
	Filter        []any
	MinZoom       *float64
	MaxZoom       *float64
	Paint         map[string]any
	Layout        map[string]any
	Position      Position
}

// Clone copies d so that later changes to the caller's maps and slices do
// not reach it.
func (d LayerDescriptor) Clone() LayerDescriptor {
	c := d
	c.Filter = append([]any(nil), d.Filter...)
	c.Paint = cloneMap(d.Paint)
	c.Layout = cloneMap(d.Layout)
	if d.MinZoom != nil {
		v := *d.MinZoom
		c.MinZoom = &v
	}
	if d.MaxZoom != nil {
		v := *d.MaxZoom
		c.MaxZoom = &v
	}
	return c
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// LayerProps is the wire shape of a layer as declarative code sends it.
type LayerProps struct {
	ID           string         `json:"id" yaml:"id" toml:"id"`
	Type         string         `json:"type" yaml:"type" toml:"type"`
	Source       string         `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	SourceLayer  string         `json:"sourceLayer,omitempty" yaml:"sourceLayer,omitempty" toml:"sourceLayer,omitempty"`
	Filter       []any          `json:"filter,omitempty" yaml:"filter,omitempty" toml:"filter,omitempty"`
	MinZoom      *float64       `json:"minZoom,omitempty" yaml:"minZoom,omitempty" toml:"minZoom,omitempty"`
	MaxZoom      *float64       `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty" toml:"maxZoom,omitempty"`
	Paint        map[string]any `json:"paint,omitempty" yaml:"paint,omitempty" toml:"paint,omitempty"`
	Layout       map[string]any `json:"layout,omitempty" yaml:"layout,omitempty" toml:"layout,omitempty"`
	AboveLayerID string         `json:"aboveLayerID,omitempty" yaml:"aboveLayerID,omitempty" toml:"aboveLayerID,omitempty"`
	BelowLayerID string         `json:"belowLayerID,omitempty" yaml:"belowLayerID,omitempty" toml:"belowLayerID,omitempty"`
	LayerIndex   *int           `json:"layerIndex,omitempty" yaml:"layerIndex,omitempty" toml:"layerIndex,omitempty"`
}

// Props converts a descriptor back to its wire shape.
func (d LayerDescriptor) Props() LayerProps {
	p := LayerProps{
		ID:          d.ID,
		Type:        string(d.Kind),
		Source:      d.SourceID,
		SourceLayer: d.SourceLayerID,
		Filter:      d.Filter,
		MinZoom:     d.MinZoom,
		MaxZoom:     d.MaxZoom,
		Paint:       d.Paint,
		Layout:      d.Layout,
	}
	switch d.Position.Kind {
	case PositionAbove:
		p.AboveLayerID = d.Position.Ref
	case PositionBelow:
		p.BelowLayerID = d.Position.Ref
	case PositionAt:
		idx := d.Position.Index
		p.LayerIndex = &idx
	}
	return p
}

// SourceDescriptor declares a data source layers refer to by id.
type SourceDescriptor struct {
	ID    string   `json:"id" yaml:"id" toml:"id"`
	Type  string   `json:"type" yaml:"type" toml:"type"`
	URL   string   `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	Tiles []string `json:"tiles,omitempty" yaml:"tiles,omitempty" toml:"tiles,omitempty"`
	Data  any      `json:"data,omitempty" yaml:"data,omitempty" toml:"data,omitempty"`
}
