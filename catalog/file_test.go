package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

const yamlStyle = `
sources:
  - id: pts
    type: geojson
    data: pts.json
layers:
  - id: dots
    type: circle
    source: pts
    filter: ["==", "kind", "shop"]
    paint:
      circle-radius: 4
  - id: halo
    type: circle
    source: pts
    belowLayerID: dots
`

const tomlStyle = `
[[sources]]
id = "pts"
type = "geojson"
data = "pts.json"

[[layers]]
id = "dots"
type = "circle"
source = "pts"
filter = ["==", "kind", "shop"]
minZoom = 3.0

[layers.paint]
circle-radius = 4

[[layers]]
id = "halo"
type = "circle"
source = "pts"
layerIndex = 0
`

const jsonStyle = `{
  "sources": [{"id": "pts", "type": "geojson", "data": "pts.json"}],
  "layers": [
    {"id": "dots", "type": "circle", "source": "pts", "filter": ["==", "kind", "shop"], "paint": {"circle-radius": 4}},
    {"id": "halo", "type": "circle", "source": "pts", "aboveLayerID": "dots"}
  ]
}`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.Equal(t, nil, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	files := map[string]string{
		"style.yaml": yamlStyle,
		"style.toml": tomlStyle,
		"style.json": jsonStyle,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			doc, err := LoadFile(write(t, name, content))
			assert.Equal(t, nil, err)
			assert.Equal(t, 1, len(doc.Sources))
			assert.Equal(t, "pts.json", doc.Sources[0].Data)
			assert.Equal(t, []string{"dots", "halo"}, layerIDs(doc))

			dots := doc.Layers[0]
			assert.Equal(t, "circle", dots.Type)
			assert.Equal(t, 3, len(dots.Filter))
			assert.Equal(t, "kind", dots.Filter[1])
			assert.NotEqual(t, nil, dots.Paint["circle-radius"])
		})
	}
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	_, err := LoadFile(write(t, "style.xml", "<style/>"))
	assert.NotEqual(t, nil, err)
}

func TestDecodeReportsFormat(t *testing.T) {
	_, err := Decode(strings.NewReader("{"), FormatJSON)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, strings.Contains(err.Error(), "decode json style"))
}

func TestWriteFileRoundTrip(t *testing.T) {
	doc, err := LoadFile(write(t, "style.yaml", yamlStyle))
	assert.Equal(t, nil, err)

	for _, name := range []string{"snapshot.toml", "snapshot.yaml", "snapshot.json"} {
		path := filepath.Join(t.TempDir(), name)
		assert.Equal(t, nil, WriteFile(path, doc))

		again, err := LoadFile(path)
		assert.Equal(t, nil, err)
		assert.Equal(t, layerIDs(doc), layerIDs(again))
		assert.Equal(t, "dots", again.Layers[1].BelowLayerID)
	}
}
