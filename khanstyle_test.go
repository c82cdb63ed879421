package khanstyle

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle/catalog"
	"github.com/khankhulgun/khanstyle/controllers"
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/reconcile"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/rs/zerolog"
)

type server struct {
	app     *fiber.App
	mem     *style.Memory
	engine  *reconcile.Engine
	handler *controllers.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	engine, err := reconcile.New()
	assert.Equal(t, nil, err)
	t.Cleanup(engine.Close)

	mem := style.NewMemory()
	engine.Bind(mem)
	mem.Load()

	h := &controllers.Handler{
		Engine:  engine,
		Style:   mem,
		Log:     zerolog.Nop(),
		MapID:   "test",
		IconDir: t.TempDir(),
	}
	app := fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal})
	Set(app, h)
	return &server{app: app, mem: mem, engine: engine, handler: h}
}

func (s *server) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	assert.Equal(t, nil, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	assert.Equal(t, nil, err)
	return resp.StatusCode, out
}

func TestLayerRoutes(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodPost, "/style/api/layers", `{"id":"water","type":"fill","paint":{"fill-color":"#00f"}}`)
	assert.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodPost, "/style/api/layers", `{"id":"roads","type":"line","aboveLayerID":"water"}`)
	assert.Equal(t, http.StatusCreated, code)
	var state models.LayerState
	assert.Equal(t, nil, json.Unmarshal(body, &state))
	assert.Equal(t, "live", state.Status)
	assert.Equal(t, "water", state.Layer.AboveLayerID)

	code, _ = s.do(t, http.MethodPost, "/style/api/layers", `{"id":"water","type":"fill"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/style/api/layers", `{"id":"x","type":"fill","aboveLayerID":"water","layerIndex":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	var failure map[string]any
	assert.Equal(t, nil, json.Unmarshal(body, &failure))
	assert.Equal(t, "error", failure["status"])

	assert.Equal(t, []string{"water", "roads"}, s.mem.LayerIDs())

	code, _ = s.do(t, http.MethodPut, "/style/api/layers/roads", `{"type":"line","belowLayerID":"water"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"roads", "water"}, s.mem.LayerIDs())

	code, body = s.do(t, http.MethodGet, "/style/api/layers", "")
	assert.Equal(t, http.StatusOK, code)
	var states []models.LayerState
	assert.Equal(t, nil, json.Unmarshal(body, &states))
	assert.Equal(t, 2, len(states))

	code, _ = s.do(t, http.MethodPut, "/style/api/layers/roads", `{"id":"water","type":"fill"}`)
	assert.Equal(t, http.StatusConflict, code)
	d, _ := s.engine.Descriptor("water")
	assert.Equal(t, "#00f", d.Paint["fill-color"])
	assert.Equal(t, []string{"roads", "water"}, s.mem.LayerIDs())

	code, _ = s.do(t, http.MethodDelete, "/style/api/layers/roads", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/style/api/layers/roads", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodDelete, "/style/api/layers/roads", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, []string{"water"}, s.mem.LayerIDs())
}

func TestStyleDocument(t *testing.T) {
	s := newServer(t)
	code, _ := s.do(t, http.MethodPost, "/style/api/sources", `{"id":"pts","type":"geojson","data":"pts.json"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/style/api/layers",
		`{"id":"dots","type":"circle","source":"pts","filter":["==","kind","shop"],"minZoom":4,"paint":{"circle-radius":3}}`)
	assert.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodGet, "/style/api/style", "")
	assert.Equal(t, http.StatusOK, code)

	var doc models.StyleDocument
	assert.Equal(t, nil, json.Unmarshal(body, &doc))
	assert.Equal(t, 8, doc.Version)
	assert.Equal(t, "geojson", doc.Sources["pts"].Type)
	assert.Equal(t, 1, len(doc.Layers))
	assert.Equal(t, "pts", doc.Layers[0].Source)
	assert.Equal(t, []any{"==", "kind", "shop"}, doc.Layers[0].Filter)
	assert.Equal(t, 4.0, *doc.Layers[0].MinZoom)
	assert.Equal(t, true, strings.HasSuffix(doc.Sprite, "/style/api/sprite"))
}

func TestSourceRoutes(t *testing.T) {
	s := newServer(t)
	code, _ := s.do(t, http.MethodPost, "/style/api/sources", `{"type":"vector"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/style/api/sources", `{"id":"osm","type":"vector","url":"mbtiles://osm"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/style/api/layers", `{"id":"roads","type":"line","source":"osm"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodDelete, "/style/api/sources/osm", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, len(s.mem.LayerIDs()))
	assert.Equal(t, "blocked", string(s.engine.Status("roads")))

	code, _ = s.do(t, http.MethodDelete, "/style/api/sources/osm", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReloadReplaysLayers(t *testing.T) {
	s := newServer(t)
	for _, body := range []string{
		`{"id":"a","type":"background"}`,
		`{"id":"b","type":"fill"}`,
		`{"id":"c","type":"line","belowLayerID":"b"}`,
	} {
		code, _ := s.do(t, http.MethodPost, "/style/api/layers", body)
		assert.Equal(t, http.StatusCreated, code)
	}
	assert.Equal(t, []string{"a", "c", "b"}, s.mem.LayerIDs())

	code, _ := s.do(t, http.MethodPost, "/style/api/unload", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/style/api/style", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = s.do(t, http.MethodPost, "/style/api/load", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"a", "c", "b"}, s.mem.LayerIDs())
}

func TestSpriteRoutes(t *testing.T) {
	s := newServer(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4" viewBox="0 0 4 4"><rect width="4" height="4" fill="#0a0"/></svg>`
	assert.Equal(t, nil, os.WriteFile(filepath.Join(s.handler.IconDir, "pin.svg"), []byte(svg), 0o644))

	code, _ := s.do(t, http.MethodPost, "/style/api/layers", `{"id":"pins","type":"symbol","layout":{"icon-image":"pin"}}`)
	assert.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodGet, "/style/api/sprite.json?ratio=2", "")
	assert.Equal(t, http.StatusOK, code)
	var index map[string]map[string]int
	assert.Equal(t, nil, json.Unmarshal(body, &index))
	assert.Equal(t, 8, index["pin"]["width"])
	assert.Equal(t, 2, index["pin"]["pixelRatio"])

	code, body = s.do(t, http.MethodGet, "/style/api/sprite.json?ratio=1000", "")
	assert.Equal(t, http.StatusOK, code)
	index = nil
	assert.Equal(t, nil, json.Unmarshal(body, &index))
	assert.Equal(t, 16, index["pin"]["width"])
	assert.Equal(t, 4, index["pin"]["pixelRatio"])

	code, body = s.do(t, http.MethodGet, "/style/api/sprite.png", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "\x89PNG", string(body[:4]))
}

func TestCatalogPersistence(t *testing.T) {
	s := newServer(t)
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, catalog.Migrate(db))
	store, err := catalog.NewStore(db)
	assert.Equal(t, nil, err)
	defer store.Close()
	s.handler.Store = store
	s.handler.Snapshot = filepath.Join(t.TempDir(), "snapshot.toml")

	code, _ := s.do(t, http.MethodPost, "/style/api/layers", `{"id":"a","type":"fill"}`)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPut, "/style/api/layers/a", `{"id":"b","type":"fill"}`)
	assert.Equal(t, http.StatusOK, code)

	doc, err := store.Load("test")
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(doc.Layers))
	assert.Equal(t, "b", doc.Layers[0].ID)

	snap, err := catalog.LoadFile(s.handler.Snapshot)
	assert.Equal(t, nil, err)
	assert.Equal(t, "b", snap.Layers[0].ID)
}

func TestMountDocument(t *testing.T) {
	s := newServer(t)
	idx := 0
	doc := catalog.Document{
		Sources: []models.SourceDescriptor{{ID: "osm", Type: "vector"}},
		Layers: []models.LayerProps{
			{ID: "roads", Type: "line", Source: "osm"},
			{ID: "", Type: "line"},
			{ID: "base", Type: "background", LayerIndex: &idx},
		},
	}
	err := Mount(s.engine, doc)
	assert.Equal(t, true, err != nil)
	assert.Equal(t, []string{"base", "roads"}, s.mem.LayerIDs())
}
