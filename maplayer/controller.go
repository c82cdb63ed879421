package maplayer

import (
	"errors"

	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/rs/zerolog"
)

// Scheduler parks an insertion until a referenced layer is in the style.
type Scheduler interface {
	// Await runs fn once awaited appears. The returned cancel drops the
	// wait; it is nil when fn has already run.
	Await(awaited, dependent string, fn func()) (cancel func())
}

// Deps are the collaborators a Controller reports to.
type Deps struct {
	Filters  *FilterCompiler
	Schedule Scheduler
	Log      zerolog.Logger
	// Report receives every non-fatal failure of the layer.
	Report func(error)
	// Added is called after the layer has been inserted into the style.
	Added func(*style.Layer)
}

// Status is where a controller is in its lifecycle.
type Status string

const (
	StatusDetached Status = "detached"
	StatusPending  Status = "pending"
	StatusBlocked  Status = "blocked"
	StatusLive     Status = "live"
)

type wait struct {
	pos    models.Position
	cancel func()
}

// Controller owns one declared layer and the backend handle created or found
// for it. It is not safe for concurrent use; the engine serializes calls.
type Controller struct {
	deps Deps
	log  zerolog.Logger

	desc    models.LayerDescriptor
	applied *models.LayerDescriptor
	handle  *style.Layer
	waiting *wait
	blocked string
}

func NewController(desc models.LayerDescriptor, deps Deps) *Controller {
	return &Controller{
		deps: deps,
		log:  deps.Log.With().Str("layer", desc.ID).Logger(),
		desc: desc,
	}
}

func (c *Controller) ID() string                         { return c.desc.ID }
func (c *Controller) Descriptor() models.LayerDescriptor { return c.desc }
func (c *Controller) Handle() *style.Layer               { return c.handle }

// BlockedOn returns the source id the layer is waiting for, if any.
func (c *Controller) BlockedOn() string { return c.blocked }

func (c *Controller) Status() Status {
	switch {
	case c.waiting != nil:
		return StatusPending
	case c.handle != nil:
		return StatusLive
	case c.blocked != "":
		return StatusBlocked
	default:
		return StatusDetached
	}
}

// Sync makes the backend match desc. With a nil gateway it only records the
// descriptor for a later Sync.
func (c *Controller) Sync(desc models.LayerDescriptor, gw style.Gateway) {
	c.desc = desc
	if gw == nil {
		return
	}

	if c.waiting != nil {
		if c.waiting.pos == desc.Position {
			// the parked insertion builds from the latest descriptor
			c.updateParked(gw, desc)
			return
		}
		c.cancelWait()
	}

	if c.handle != nil {
		if c.applied == nil || structuralChange(*c.applied, desc) || c.handle.Type != string(desc.Kind) {
			c.place(gw)
			if c.waiting != nil {
				c.updateParked(gw, desc)
			}
			return
		}
		c.update(gw, c.handle, c.applied, desc)
		return
	}

	if gw.LayerExists(desc.ID) {
		h, err := gw.FindLayer(desc.ID)
		if err != nil {
			c.report(err)
			return
		}
		c.handle = h
		if h.Type != string(desc.Kind) {
			c.log.Warn().Str("found", h.Type).Str("declared", string(desc.Kind)).Msg("existing layer has another type, recreating")
			c.place(gw)
			return
		}
		c.log.Debug().Msg("layer already in style, updating in place")
		c.update(gw, h, nil, desc)
		return
	}

	c.place(gw)
}

// Remove takes the layer out of the style and drops any parked insertion.
func (c *Controller) Remove(gw style.Gateway) {
	c.cancelWait()
	if c.handle != nil && gw != nil {
		if err := gw.RemoveLayer(c.desc.ID); err != nil && !errors.Is(err, style.ErrNotFound) {
			c.report(err)
		}
	}
	c.handle = nil
	c.applied = nil
	c.blocked = ""
}

// Forget drops the backend handle without touching the backend, for when
// the style itself went away.
func (c *Controller) Forget() {
	c.cancelWait()
	c.handle = nil
	c.applied = nil
	c.blocked = ""
}

// Abandon drops a parked insertion whose reference was removed. It can never
// be satisfied, so this is not an error.
func (c *Controller) Abandon() {
	if c.waiting == nil {
		return
	}
	c.log.Debug().Str("position", c.waiting.pos.String()).Msg("reference layer removed, insertion dropped")
	c.waiting = nil
}

// place inserts the layer at the declared position, now or once the
// referenced layer appears. A live layer is only removed in the same step
// its replacement goes in.
func (c *Controller) place(gw style.Gateway) {
	if !c.sourceReady(gw, c.desc) {
		return
	}
	_, awaited := Resolve(c.desc.Position)
	if awaited == "" {
		c.insert(gw)
		return
	}

	w := &wait{pos: c.desc.Position}
	c.waiting = w
	c.log.Debug().Str("awaiting", awaited).Msg("insertion parked")
	cancel := c.deps.Schedule.Await(awaited, c.desc.ID, func() {
		if c.waiting != w {
			return
		}
		c.waiting = nil
		c.insert(gw)
	})
	if c.waiting == w {
		w.cancel = cancel
	}
}

// Restore puts a layer taken out by Remove back at stack index idx, where
// it was before, instead of at its declared position.
func (c *Controller) Restore(gw style.Gateway, idx int) {
	c.insertAt(gw, style.Instruction{Placement: style.PlaceAt, Index: idx})
}

func (c *Controller) insert(gw style.Gateway) {
	at, _ := Resolve(c.desc.Position)
	c.insertAt(gw, at)
}

func (c *Controller) insertAt(gw style.Gateway, at style.Instruction) {
	desc := c.desc
	v, _ := variantOf(desc.Kind)
	if !c.sourceReady(gw, desc) {
		return
	}

	layer, err := v.construct(gw, desc.ID)
	if err != nil {
		c.report(err)
		return
	}
	var filter *style.Expression
	if v.usesFilter {
		if filter, err = c.deps.Filters.Compile(desc.ID, desc.Filter); err != nil {
			c.report(err)
		}
	}
	v.apply(layer, desc, filter)

	if c.handle != nil {
		if err := gw.RemoveLayer(desc.ID); err != nil && !errors.Is(err, style.ErrNotFound) {
			c.report(err)
			return
		}
		c.handle = nil
		c.applied = nil
	}
	if err := gw.InsertLayer(layer, at); err != nil {
		c.report(err)
		return
	}
	c.handle = layer

	// Some backends ignore options given at construction time, so the same
	// options go through the gateway once more.
	c.reapply(gw, v, layer, desc, filter)
	applied := desc.Clone()
	c.applied = &applied

	c.log.Debug().Str("position", desc.Position.String()).Str("placement", at.Placement.String()).Msg("layer added")
	if c.deps.Added != nil {
		c.deps.Added(layer)
	}
}

func (c *Controller) reapply(gw style.Gateway, v variant, h *style.Layer, d models.LayerDescriptor, filter *style.Expression) {
	if v.usesFilter && filter != nil {
		c.check(gw.SetFilter(h, filter))
	}
	if d.MinZoom != nil || d.MaxZoom != nil {
		c.check(gw.SetZoomRange(h, d.MinZoom, d.MaxZoom))
	}
	for _, ch := range diffProps(nil, d.Paint) {
		c.check(gw.SetPaintProperty(h, ch.Name, ch.Value))
	}
	for _, ch := range diffProps(nil, d.Layout) {
		c.check(gw.SetLayoutProperty(h, ch.Name, ch.Value))
	}
}

// update writes the fields of next that differ from prev onto a live layer.
// A nil prev writes everything. Failed writes are reported and the attempted
// value is still recorded, so the same bad value is not retried on every
// sync.
func (c *Controller) update(gw style.Gateway, h *style.Layer, prev *models.LayerDescriptor, next models.LayerDescriptor) {
	v, _ := variantOf(next.Kind)
	var old models.LayerDescriptor
	if prev != nil {
		old = *prev
	}

	if v.usesFilter && (prev == nil || !sameValue(old.Filter, next.Filter)) {
		filter, err := c.deps.Filters.Compile(next.ID, next.Filter)
		if err != nil {
			c.report(err)
		} else {
			c.check(gw.SetFilter(h, filter))
		}
	}
	if (prev == nil && (next.MinZoom != nil || next.MaxZoom != nil)) ||
		(prev != nil && (!sameZoom(old.MinZoom, next.MinZoom) || !sameZoom(old.MaxZoom, next.MaxZoom))) {
		c.check(gw.SetZoomRange(h, next.MinZoom, next.MaxZoom))
	}
	for _, ch := range diffProps(old.Paint, next.Paint) {
		c.check(gw.SetPaintProperty(h, ch.Name, ch.Value))
	}
	for _, ch := range diffProps(old.Layout, next.Layout) {
		c.check(gw.SetLayoutProperty(h, ch.Name, ch.Value))
	}

	applied := next.Clone()
	c.applied = &applied
}

// updateParked writes in-place changes onto the layer that stays in the
// style while its move waits for a reference. Only a pure position change
// qualifies; the applied position is kept so the move still happens.
func (c *Controller) updateParked(gw style.Gateway, desc models.LayerDescriptor) {
	if c.handle == nil || c.applied == nil || c.handle.Type != string(desc.Kind) {
		return
	}
	next := desc
	next.Position = c.applied.Position
	if structuralChange(*c.applied, next) {
		return
	}
	c.update(gw, c.handle, c.applied, next)
}

func (c *Controller) sourceReady(gw style.Gateway, d models.LayerDescriptor) bool {
	v, _ := variantOf(d.Kind)
	if !v.usesSource || d.SourceID == "" || gw.SourceExists(d.SourceID) {
		c.blocked = ""
		return true
	}
	c.blocked = d.SourceID
	c.report(&style.NotFoundError{LayerID: d.ID, Op: "bind source", Ref: d.SourceID})
	return false
}

func (c *Controller) cancelWait() {
	if c.waiting == nil {
		return
	}
	if c.waiting.cancel != nil {
		c.waiting.cancel()
	}
	c.waiting = nil
}

func (c *Controller) check(err error) {
	if err != nil {
		c.report(err)
	}
}

func (c *Controller) report(err error) {
	c.log.Error().Err(err).Msg("layer sync failed")
	if c.deps.Report != nil {
		c.deps.Report(err)
	}
}
