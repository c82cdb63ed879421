package models

// StyleDocument is the rendered style as a backend would serialize it.
type StyleDocument struct {
	Version int                       `json:"version"`
	Name    string                    `json:"name,omitempty"`
	Sources map[string]SourceDocument `json:"sources"`
	Sprite  string                    `json:"sprite,omitempty"`
	Layers  []LayerDocument           `json:"layers"`
}

type SourceDocument struct {
	Type  string   `json:"type"`
	URL   string   `json:"url,omitempty"`
	Tiles []string `json:"tiles,omitempty"`
	Data  any      `json:"data,omitempty"`
}

// LayerDocument is one entry of StyleDocument.Layers.
type LayerDocument struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Filter      []any          `json:"filter,omitempty"`
	MinZoom     *float64       `json:"minzoom,omitempty"`
	MaxZoom     *float64       `json:"maxzoom,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

// LayerState is a declared layer together with where it is in its lifecycle.
type LayerState struct {
	Layer  LayerProps `json:"layer"`
	Status string     `json:"status"`
}
