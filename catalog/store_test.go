package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/khankhulgun/khanstyle/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, Migrate(db))

	s, err := NewStore(db)
	assert.Equal(t, nil, err)
	t.Cleanup(s.Close)
	return s
}

func layerIDs(doc Document) []string {
	ids := make([]string, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestSeedAndLoad(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, nil, Seed(s.db, "default"))
	assert.Equal(t, nil, Seed(s.db, "default"))

	doc, err := s.Load("default")
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"background", "water", "roads", "place-labels"}, layerIDs(doc))
	assert.Equal(t, 2, len(doc.Sources))
	assert.Equal(t, "osm", doc.Sources[0].ID)
	assert.Equal(t, "mbtiles://osm", doc.Sources[0].URL)

	roads := doc.Layers[2]
	assert.Equal(t, "water", roads.AboveLayerID)
	assert.Equal(t, "transportation", roads.SourceLayer)
	assert.Equal(t, 5.0, *roads.MinZoom)
	assert.Equal(t, []any{"in", "class", "primary", "secondary", "tertiary"}, roads.Filter)
}

func TestLoadUnknownMap(t *testing.T) {
	s := newStore(t)
	_, err := s.Load("nowhere")
	assert.Equal(t, true, errors.Is(err, ErrNotFound))
}

func TestSaveLayerKeepsOrder(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, nil, s.SaveLayer("m", models.LayerProps{ID: id, Type: "line"}))
	}
	doc, err := s.Load("m")
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"a", "b", "c"}, layerIDs(doc))

	idx := 0
	err = s.SaveLayer("m", models.LayerProps{
		ID:         "a",
		Type:       "line",
		Paint:      map[string]any{"line-color": "#f00"},
		LayerIndex: &idx,
	})
	assert.Equal(t, nil, err)

	doc, err = s.Load("m")
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"a", "b", "c"}, layerIDs(doc))
	assert.Equal(t, "#f00", doc.Layers[0].Paint["line-color"])
	assert.Equal(t, 0, *doc.Layers[0].LayerIndex)
}

func TestDeleteLayer(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, nil, s.SaveLayer("m", models.LayerProps{ID: "a", Type: "fill"}))
	assert.Equal(t, nil, s.SaveLayer("m", models.LayerProps{ID: "b", Type: "fill"}))
	_, err := s.Load("m")
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, s.DeleteLayer("m", "a"))
	doc, err := s.Load("m")
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"b"}, layerIDs(doc))

	err = s.DeleteLayer("m", "a")
	assert.Equal(t, true, errors.Is(err, ErrNotFound))
}

func TestSources(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, nil, s.SaveSource("m", models.SourceDescriptor{ID: "osm", Type: "vector", Tiles: []string{"https://t/{z}/{x}/{y}.pbf"}}))
	assert.Equal(t, nil, s.SaveSource("m", models.SourceDescriptor{ID: "pts", Type: "geojson", Data: "pts.json"}))
	assert.Equal(t, nil, s.SaveSource("m", models.SourceDescriptor{ID: "osm", Type: "vector", URL: "mbtiles://osm"}))

	doc, err := s.Load("m")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(doc.Sources))
	assert.Equal(t, "osm", doc.Sources[0].ID)
	assert.Equal(t, "mbtiles://osm", doc.Sources[0].URL)
	assert.Equal(t, 0, len(doc.Sources[0].Tiles))
	assert.Equal(t, "pts.json", doc.Sources[1].Data)

	assert.Equal(t, nil, s.DeleteSource("m", "pts"))
	assert.Equal(t, true, errors.Is(s.DeleteSource("m", "pts"), ErrNotFound))
}

func TestIsPostgres(t *testing.T) {
	assert.Equal(t, true, isPostgres("postgres://u:p@localhost/db"))
	assert.Equal(t, true, isPostgres("host=localhost user=u dbname=db"))
	assert.Equal(t, false, isPostgres("catalog.db"))
	assert.Equal(t, false, isPostgres("file::memory:"))
}
