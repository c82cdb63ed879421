// Package reconcile keeps a backend style in step with a set of declared
// layers and sources. Declarations may arrive at any time, also before the
// backend style has loaded; every change to the style goes through one
// mutation queue per engine.
package reconcile

import (
	"sync"

	"github.com/khankhulgun/khanstyle/maplayer"
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// StatusUnknown is the status of an id no layer was declared with.
const StatusUnknown maplayer.Status = "unknown"

type Option func(*Engine)

// WithLogger sets the engine's diagnostic sink. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithErrorHandler receives every non-fatal failure, after it was logged.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithLayerAdded is called with the backend layer after each successful
// insertion.
func WithLayerAdded(fn func(*style.Layer)) Option {
	return func(e *Engine) { e.onAdded = fn }
}

// WithFilterCompiler shares a compiler between engines. The engine does not
// close it.
func WithFilterCompiler(fc *maplayer.FilterCompiler) Option {
	return func(e *Engine) { e.filters = fc }
}

// Engine owns the backend style for the duration of an attach session.
type Engine struct {
	log         zerolog.Logger
	filters     *maplayer.FilterCompiler
	ownsFilters bool
	onError     func(error)
	onAdded     func(*style.Layer)

	q queue

	// mu guards everything below. Queued operations hold it while they run;
	// notifications to the caller run as separate queue entries without it.
	mu       sync.Mutex
	gw       style.Gateway
	session  ulid.ULID
	order    []string
	layers   map[string]*maplayer.Controller
	srcOrder []string
	sources  map[string]models.SourceDescriptor
	pending  pending
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		log:     zerolog.Nop(),
		layers:  make(map[string]*maplayer.Controller),
		sources: make(map[string]models.SourceDescriptor),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.filters == nil {
		fc, err := maplayer.NewFilterCompiler(0)
		if err != nil {
			return nil, err
		}
		e.filters = fc
		e.ownsFilters = true
	}
	e.q.log = e.log
	return e, nil
}

// Close releases the engine's filter cache.
func (e *Engine) Close() {
	if e.ownsFilters {
		e.filters.Close()
	}
}

// Bind drives Attach and Detach from the backend's style lifecycle. A style
// that reports itself loaded already is attached right away.
func (e *Engine) Bind(lc style.Lifecycle) {
	lc.OnStyleLoaded(e.Attach)
	lc.OnStyleUnloaded(e.Detach)
	if l, ok := lc.(interface {
		style.Gateway
		Loaded() bool
	}); ok && l.Loaded() {
		e.Attach(l)
	}
}

// Upsert declares a layer or replaces its declaration. Structural errors are
// returned and the descriptor is dropped; everything else is applied through
// the mutation queue and reported through the error handler.
func (e *Engine) Upsert(desc models.LayerDescriptor) error {
	if err := maplayer.Validate(desc); err != nil {
		e.log.Warn().Err(err).Str("layer", desc.ID).Msg("descriptor rejected")
		return err
	}
	desc = desc.Clone()
	e.exec(func() {
		c, ok := e.layers[desc.ID]
		if !ok {
			c = maplayer.NewController(desc, e.deps())
			e.layers[desc.ID] = c
			e.order = append(e.order, desc.ID)
		}
		c.Sync(desc, e.gw)
	})
	return nil
}

// Remove takes the layer out of the style and forgets its declaration.
// Insertions waiting for it are dropped without error.
func (e *Engine) Remove(id string) {
	e.exec(func() {
		c, ok := e.layers[id]
		if !ok {
			e.log.Debug().Str("layer", id).Msg("remove of unknown layer ignored")
			return
		}
		c.Remove(e.gw)
		delete(e.layers, id)
		for i, other := range e.order {
			if other == id {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
		e.abandonDependents(id)
	})
}

// Mount is Upsert under the name declarative code uses.
func (e *Engine) Mount(desc models.LayerDescriptor) error { return e.Upsert(desc) }

// Update replaces old with next. A changed id is a removal of the old layer
// and the creation of a new one, never a rename.
func (e *Engine) Update(old, next models.LayerDescriptor) error {
	if err := maplayer.Validate(next); err != nil {
		e.log.Warn().Err(err).Str("layer", next.ID).Msg("descriptor rejected")
		return err
	}
	if old.ID != "" && old.ID != next.ID {
		e.Remove(old.ID)
	}
	return e.Upsert(next)
}

func (e *Engine) Unmount(id string) { e.Remove(id) }

// Attach starts a session on gw: sources are added first, then every declared
// layer is synced in declaration order.
func (e *Engine) Attach(gw style.Gateway) {
	e.exec(func() {
		if e.gw != nil {
			e.forgetAll()
		}
		e.gw = gw
		e.session = ulid.Make()
		e.log.Info().Str("session", e.session.String()).Int("sources", len(e.srcOrder)).Int("layers", len(e.order)).Msg("style attached")

		for _, id := range e.srcOrder {
			e.addSource(e.sources[id])
		}
		for _, id := range e.order {
			c := e.layers[id]
			c.Sync(c.Descriptor(), gw)
		}
	})
}

// Detach ends the session. Backend handles and parked insertions are
// dropped; declarations are kept for the next Attach.
func (e *Engine) Detach() {
	e.exec(func() {
		if e.gw == nil {
			return
		}
		e.log.Info().Str("session", e.session.String()).Int("pending", e.pending.len()).Msg("style detached")
		e.forgetAll()
		e.gw = nil
		e.session = ulid.ULID{}
	})
}

// Attached reports whether a backend style is attached.
func (e *Engine) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gw != nil
}

func (e *Engine) Status(id string) maplayer.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.layers[id]
	if !ok {
		return StatusUnknown
	}
	return c.Status()
}

// Descriptor returns the declaration of id.
func (e *Engine) Descriptor(id string) (models.LayerDescriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.layers[id]
	if !ok {
		return models.LayerDescriptor{}, false
	}
	return c.Descriptor().Clone(), true
}

// Descriptors returns every declared layer in declaration order.
func (e *Engine) Descriptors() []models.LayerDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.LayerDescriptor, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.layers[id].Descriptor().Clone())
	}
	return out
}

// States pairs every declared layer with its status.
func (e *Engine) States() []models.LayerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.LayerState, 0, len(e.order))
	for _, id := range e.order {
		c := e.layers[id]
		out = append(out, models.LayerState{Layer: c.Descriptor().Props(), Status: string(c.Status())})
	}
	return out
}

// Await implements maplayer.Scheduler on top of the backend's readiness
// callbacks. It is only called from queued operations.
func (e *Engine) Await(awaited, dependent string, fn func()) func() {
	gw := e.gw
	if gw == nil {
		return nil
	}
	if gw.LayerExists(awaited) {
		fn()
		return nil
	}

	t := &ticket{
		id:        ulid.Make(),
		session:   e.session,
		awaited:   awaited,
		dependent: dependent,
		fn:        fn,
	}
	e.pending.add(t)
	e.log.Debug().Str("ticket", t.id.String()).Str("layer", dependent).Str("awaiting", awaited).Msg("insertion parked")

	gw.OnLayerAppeared(awaited, func() {
		e.exec(func() { e.fire(t) })
	})
	return func() { e.pending.drop(t) }
}

func (e *Engine) fire(t *ticket) {
	if t.done || t.session != e.session {
		return
	}
	e.pending.drop(t)
	e.log.Debug().Str("ticket", t.id.String()).Str("layer", t.dependent).Msg("insertion resumed")
	t.fn()
}

// abandonDependents drops insertions waiting for a layer that was removed.
// They can never be satisfied; removal is a legitimate end state, so this is
// not reported as an error.
func (e *Engine) abandonDependents(id string) {
	for _, t := range e.pending.take(id) {
		if c, ok := e.layers[t.dependent]; ok {
			c.Abandon()
		}
		e.log.Debug().Str("layer", t.dependent).Str("removed", id).Msg("dependent insertion abandoned")
	}
}

func (e *Engine) forgetAll() {
	e.pending.clear()
	for _, id := range e.order {
		e.layers[id].Forget()
	}
}

func (e *Engine) deps() maplayer.Deps {
	return maplayer.Deps{
		Filters:  e.filters,
		Schedule: e,
		Log:      e.log,
		Report:   e.report,
		Added: func(l *style.Layer) {
			if e.onAdded != nil {
				e.q.run(func() { e.onAdded(l) })
			}
		},
	}
}

// report hands err to the error handler outside the current operation.
func (e *Engine) report(err error) {
	if e.onError != nil {
		e.q.run(func() { e.onError(err) })
	}
}

// exec queues op to run with the engine state locked.
func (e *Engine) exec(op func()) {
	e.q.run(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		op()
	})
}
