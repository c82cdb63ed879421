package style

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func insert(t *testing.T, m *Memory, id string, at Instruction) {
	t.Helper()
	l, err := m.CreateLayer("circle", id)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, m.InsertLayer(l, at))
}

func TestMemoryRejectsWhileUnloaded(t *testing.T) {
	m := NewMemory()
	l, err := m.CreateLayer("line", "roads")
	assert.Equal(t, nil, err)

	err = m.InsertLayer(l, Instruction{})
	assert.Equal(t, true, errors.Is(err, ErrRejected))
	assert.Equal(t, true, errors.Is(err, ErrStyleNotLoaded))
	assert.Equal(t, 0, len(m.Journal()))
}

func TestMemoryPlacement(t *testing.T) {
	m := NewMemory()
	m.Load()

	insert(t, m, "a", Instruction{})
	insert(t, m, "b", Instruction{Placement: PlaceBelow, Ref: "a"})
	insert(t, m, "c", Instruction{Placement: PlaceAt, Index: 0})
	insert(t, m, "d", Instruction{Placement: PlaceAbove, Ref: "b"})
	insert(t, m, "e", Instruction{Placement: PlaceAt, Index: 99})

	assert.Equal(t, []string{"c", "b", "d", "a", "e"}, m.LayerIDs())

	l, _ := m.CreateLayer("circle", "f")
	err := m.InsertLayer(l, Instruction{Placement: PlaceAbove, Ref: "missing"})
	assert.Equal(t, true, errors.Is(err, ErrNotFound))

	l, _ = m.CreateLayer("circle", "a")
	err = m.InsertLayer(l, Instruction{})
	assert.Equal(t, true, errors.Is(err, ErrRejected))
}

func TestMemoryLayerAppeared(t *testing.T) {
	m := NewMemory()
	m.Load()

	fired := 0
	m.OnLayerAppeared("a", func() { fired++ })
	m.OnLayerAppeared("a", func() { fired++ })
	assert.Equal(t, 0, fired)

	insert(t, m, "a", Instruction{})
	assert.Equal(t, 2, fired)

	assert.Equal(t, nil, m.RemoveLayer("a"))
	insert(t, m, "a", Instruction{})
	assert.Equal(t, 2, fired)

	m.OnLayerAppeared("a", func() { fired++ })
	assert.Equal(t, 3, fired)
}

func TestMemoryProperties(t *testing.T) {
	m := NewMemory()
	m.Load()
	insert(t, m, "dots", Instruction{})

	h, err := m.FindLayer("dots")
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, m.SetPaintProperty(h, "circle-color", "#ff0000"))
	err = m.SetPaintProperty(h, "line-width", 2)
	assert.Equal(t, true, errors.Is(err, ErrRejected))

	m.Reject("dots", "circle-radius", errors.New("bad radius"))
	err = m.SetPaintProperty(h, "circle-radius", -1)
	var rejected *BackendRejectedError
	assert.Equal(t, true, errors.As(err, &rejected))
	assert.Equal(t, "circle-radius", rejected.Property)

	lo, hi := 10.0, 2.0
	err = m.SetZoomRange(h, &lo, &hi)
	assert.Equal(t, true, errors.Is(err, ErrRejected))

	got, ok := m.Layer("dots")
	assert.Equal(t, true, ok)
	assert.Equal(t, map[string]any{"circle-color": "#ff0000"}, got.Paint)

	assert.Equal(t, nil, m.SetPaintProperty(h, "circle-color", nil))
	got, _ = m.Layer("dots")
	assert.Equal(t, 0, len(got.Paint))
}

func TestMemoryStaleHandle(t *testing.T) {
	m := NewMemory()
	m.Load()
	insert(t, m, "dots", Instruction{})
	h, _ := m.FindLayer("dots")

	assert.Equal(t, nil, m.RemoveLayer("dots"))
	insert(t, m, "dots", Instruction{})

	err := m.SetPaintProperty(h, "circle-color", "#000")
	assert.Equal(t, true, errors.Is(err, ErrNotFound))
}

func TestMemorySources(t *testing.T) {
	m := NewMemory()
	m.Load()

	assert.Equal(t, nil, m.AddSource(Source{ID: "parcels", Type: "vector"}))
	assert.Equal(t, true, m.SourceExists("parcels"))

	l, _ := m.CreateLayer("fill", "parcel-fill")
	l.Source = "parcels"
	assert.Equal(t, nil, m.InsertLayer(l, Instruction{}))

	err := m.RemoveSource("parcels")
	assert.Equal(t, true, errors.Is(err, ErrRejected))

	l, _ = m.CreateLayer("fill", "orphan")
	l.Source = "missing"
	err = m.InsertLayer(l, Instruction{})
	assert.Equal(t, true, errors.Is(err, ErrNotFound))

	assert.Equal(t, nil, m.RemoveLayer("parcel-fill"))
	assert.Equal(t, nil, m.RemoveSource("parcels"))
	assert.Equal(t, false, m.SourceExists("parcels"))
}

func TestMemoryLifecycle(t *testing.T) {
	m := NewMemory()
	loads, unloads := 0, 0
	m.OnStyleLoaded(func(gw Gateway) {
		loads++
		assert.Equal(t, true, gw == Gateway(m))
	})
	m.OnStyleUnloaded(func() { unloads++ })

	m.Load()
	m.Load()
	insert(t, m, "a", Instruction{})
	m.Unload()

	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, unloads)
	assert.Equal(t, 0, len(m.LayerIDs()))
	assert.Equal(t, false, m.Loaded())
}
