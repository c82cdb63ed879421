package style

import (
	"errors"
	"fmt"
	"sync"
)

// Op names a recorded backend mutation.
type Op string

const (
	OpAddLayer     Op = "add-layer"
	OpRemoveLayer  Op = "remove-layer"
	OpSetPaint     Op = "set-paint"
	OpSetLayout    Op = "set-layout"
	OpSetFilter    Op = "set-filter"
	OpSetZoom      Op = "set-zoom"
	OpAddSource    Op = "add-source"
	OpRemoveSource Op = "remove-source"
)

// Mutation is one journal entry of a Memory style.
type Mutation struct {
	Op    Op
	ID    string
	Name  string
	Value any
}

var (
	errDuplicateLayer  = errors.New("layer already exists")
	errDuplicateSource = errors.New("source already exists")
	errSourceInUse     = errors.New("source is used by a layer")
	errUnknownType     = errors.New("unknown layer type")
	errUnknownProperty = errors.New("unknown property")
)

// Memory is an in-process backend style. It keeps layers in stacking order
// (index 0 is the bottom), refuses mutations while unloaded and records every
// mutation it accepts.
type Memory struct {
	mu sync.Mutex

	loaded  bool
	layers  []*Layer
	sources []Source
	waiters map[string][]func()
	journal []Mutation
	rejects map[string]error

	loadedFns   []func(Gateway)
	unloadedFns []func()
}

// NewMemory returns an unloaded style; call Load to make it accept mutations.
func NewMemory() *Memory {
	return &Memory{
		waiters: make(map[string][]func()),
		rejects: make(map[string]error),
	}
}

func (m *Memory) OnStyleLoaded(fn func(Gateway)) {
	m.mu.Lock()
	m.loadedFns = append(m.loadedFns, fn)
	m.mu.Unlock()
}

func (m *Memory) OnStyleUnloaded(fn func()) {
	m.mu.Lock()
	m.unloadedFns = append(m.unloadedFns, fn)
	m.mu.Unlock()
}

// Load marks the style loaded and notifies listeners.
func (m *Memory) Load() {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return
	}
	m.loaded = true
	fns := append([]func(Gateway){}, m.loadedFns...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

// Unload tears the style down: every layer, source and pending waiter is
// dropped, as on a style reload.
func (m *Memory) Unload() {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return
	}
	m.loaded = false
	m.layers = nil
	m.sources = nil
	m.waiters = make(map[string][]func())
	fns := append([]func(){}, m.unloadedFns...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (m *Memory) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Reject makes every later mutation of property on layer id fail with err.
// An empty property rejects inserting and removing the layer itself.
func (m *Memory) Reject(id, property string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.rejects, id+"/"+property)
		return
	}
	m.rejects[id+"/"+property] = err
}

// LayerIDs returns the ids in the style from bottom to top.
func (m *Memory) LayerIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.layers))
	for i, l := range m.layers {
		ids[i] = l.ID
	}
	return ids
}

// Layers returns copies of the live layers from bottom to top.
func (m *Memory) Layers() []*Layer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Layer, len(m.layers))
	for i, l := range m.layers {
		out[i] = l.Clone()
	}
	return out
}

// Layer returns a copy of the live layer id.
func (m *Memory) Layer(id string) (*Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		return m.layers[i].Clone(), true
	}
	return nil, false
}

func (m *Memory) Sources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Source{}, m.sources...)
}

func (m *Memory) Journal() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mutation{}, m.journal...)
}

func (m *Memory) ResetJournal() {
	m.mu.Lock()
	m.journal = nil
	m.mu.Unlock()
}

func (m *Memory) LayerExists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(id) >= 0
}

func (m *Memory) LayerIndex(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(id)
}

func (m *Memory) SourceExists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceIndex(id) >= 0
}

func (m *Memory) FindLayer(id string) (*Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, &NotFoundError{LayerID: id, Op: "find layer", Ref: id}
	}
	return m.layers[i], nil
}

func (m *Memory) CreateLayer(layerType, id string) (*Layer, error) {
	if !KnownType(layerType) {
		return nil, &BackendRejectedError{LayerID: id, Op: "create layer", Property: layerType, Err: errUnknownType}
	}
	return &Layer{
		ID:     id,
		Type:   layerType,
		Paint:  map[string]any{},
		Layout: map[string]any{},
	}, nil
}

func (m *Memory) InsertLayer(layer *Layer, at Instruction) error {
	m.mu.Lock()
	if err := m.check(layer.ID, "add layer", ""); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.indexOf(layer.ID) >= 0 {
		m.mu.Unlock()
		return &BackendRejectedError{LayerID: layer.ID, Op: "add layer", Err: errDuplicateLayer}
	}
	if layer.Source != "" && m.sourceIndex(layer.Source) < 0 {
		m.mu.Unlock()
		return &NotFoundError{LayerID: layer.ID, Op: "add layer", Ref: layer.Source}
	}

	var idx int
	switch at.Placement {
	case PlaceAbove, PlaceBelow:
		ref := m.indexOf(at.Ref)
		if ref < 0 {
			m.mu.Unlock()
			return &NotFoundError{LayerID: layer.ID, Op: "add layer " + at.Placement.String(), Ref: at.Ref}
		}
		idx = ref
		if at.Placement == PlaceAbove {
			idx++
		}
	case PlaceAt:
		idx = min(max(at.Index, 0), len(m.layers))
	default:
		idx = len(m.layers)
	}

	if layer.Paint == nil {
		layer.Paint = map[string]any{}
	}
	if layer.Layout == nil {
		layer.Layout = map[string]any{}
	}
	m.layers = append(m.layers, nil)
	copy(m.layers[idx+1:], m.layers[idx:])
	m.layers[idx] = layer
	m.record(Mutation{Op: OpAddLayer, ID: layer.ID, Name: at.Placement.String(), Value: idx})

	waiters := m.waiters[layer.ID]
	delete(m.waiters, layer.ID)
	m.mu.Unlock()

	for _, fn := range waiters {
		fn()
	}
	return nil
}

func (m *Memory) RemoveLayer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id, "remove layer", ""); err != nil {
		return err
	}
	i := m.indexOf(id)
	if i < 0 {
		return &NotFoundError{LayerID: id, Op: "remove layer", Ref: id}
	}
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	m.record(Mutation{Op: OpRemoveLayer, ID: id})
	return nil
}

func (m *Memory) SetPaintProperty(layer *Layer, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	live, err := m.live(layer, "set paint property", name)
	if err != nil {
		return err
	}
	if !ValidPaint(live.Type, name) {
		return &BackendRejectedError{LayerID: live.ID, Op: "set paint property", Property: name, Err: errUnknownProperty}
	}
	setProp(live.Paint, name, value)
	m.record(Mutation{Op: OpSetPaint, ID: live.ID, Name: name, Value: value})
	return nil
}

func (m *Memory) SetLayoutProperty(layer *Layer, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	live, err := m.live(layer, "set layout property", name)
	if err != nil {
		return err
	}
	if !ValidLayout(live.Type, name) {
		return &BackendRejectedError{LayerID: live.ID, Op: "set layout property", Property: name, Err: errUnknownProperty}
	}
	setProp(live.Layout, name, value)
	m.record(Mutation{Op: OpSetLayout, ID: live.ID, Name: name, Value: value})
	return nil
}

func (m *Memory) SetFilter(layer *Layer, filter *Expression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	live, err := m.live(layer, "set filter", "filter")
	if err != nil {
		return err
	}
	live.Filter = filter
	m.record(Mutation{Op: OpSetFilter, ID: live.ID, Name: "filter", Value: filter.String()})
	return nil
}

func (m *Memory) SetZoomRange(layer *Layer, minZoom, maxZoom *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	live, err := m.live(layer, "set zoom range", "zoom")
	if err != nil {
		return err
	}
	if minZoom != nil && maxZoom != nil && *minZoom > *maxZoom {
		return &BackendRejectedError{LayerID: live.ID, Op: "set zoom range", Property: "zoom",
			Err: fmt.Errorf("minzoom %v above maxzoom %v", *minZoom, *maxZoom)}
	}
	live.MinZoom, live.MaxZoom = minZoom, maxZoom
	m.record(Mutation{Op: OpSetZoom, ID: live.ID, Name: "zoom", Value: [2]*float64{minZoom, maxZoom}})
	return nil
}

func (m *Memory) AddSource(src Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return &BackendRejectedError{Op: "add source", Property: src.ID, Err: ErrStyleNotLoaded}
	}
	if m.sourceIndex(src.ID) >= 0 {
		return &BackendRejectedError{Op: "add source", Property: src.ID, Err: errDuplicateSource}
	}
	m.sources = append(m.sources, src)
	m.record(Mutation{Op: OpAddSource, ID: src.ID})
	return nil
}

func (m *Memory) RemoveSource(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return &BackendRejectedError{Op: "remove source", Property: id, Err: ErrStyleNotLoaded}
	}
	i := m.sourceIndex(id)
	if i < 0 {
		return &NotFoundError{Op: "remove source", Ref: id}
	}
	for _, l := range m.layers {
		if l.Source == id {
			return &BackendRejectedError{LayerID: l.ID, Op: "remove source", Property: id, Err: errSourceInUse}
		}
	}
	m.sources = append(m.sources[:i], m.sources[i+1:]...)
	m.record(Mutation{Op: OpRemoveSource, ID: id})
	return nil
}

func (m *Memory) OnLayerAppeared(id string, fn func()) {
	m.mu.Lock()
	if m.indexOf(id) >= 0 {
		m.mu.Unlock()
		fn()
		return
	}
	m.waiters[id] = append(m.waiters[id], fn)
	m.mu.Unlock()
}

// check must be called with mu held.
func (m *Memory) check(id, op, property string) error {
	if !m.loaded {
		return &BackendRejectedError{LayerID: id, Op: op, Property: property, Err: ErrStyleNotLoaded}
	}
	if err, ok := m.rejects[id+"/"+property]; ok {
		return &BackendRejectedError{LayerID: id, Op: op, Property: property, Err: err}
	}
	return nil
}

// live resolves a handle to the layer currently in the style. Handles of
// removed or never inserted layers are not found.
func (m *Memory) live(layer *Layer, op, property string) (*Layer, error) {
	if layer == nil {
		return nil, &NotFoundError{Op: op, Ref: ""}
	}
	if err := m.check(layer.ID, op, property); err != nil {
		return nil, err
	}
	i := m.indexOf(layer.ID)
	if i < 0 || m.layers[i] != layer {
		return nil, &NotFoundError{LayerID: layer.ID, Op: op, Ref: layer.ID}
	}
	return m.layers[i], nil
}

func (m *Memory) record(mu Mutation) {
	m.journal = append(m.journal, mu)
}

func (m *Memory) indexOf(id string) int {
	for i, l := range m.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) sourceIndex(id string) int {
	for i, s := range m.sources {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func setProp(props map[string]any, name string, value any) {
	if value == nil {
		delete(props, name)
		return
	}
	props[name] = value
}
