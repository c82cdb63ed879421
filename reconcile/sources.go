package reconcile

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/khankhulgun/khanstyle/maplayer"
	"github.com/khankhulgun/khanstyle/models"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/rs/zerolog"
)

// UpsertSource declares a data source. Sources go into the style before any
// layer; layers that were blocked on this source are synced once it is in.
// Changing a source that is in the style recreates it along with the layers
// bound to it.
func (e *Engine) UpsertSource(src models.SourceDescriptor) error {
	if strings.TrimSpace(src.ID) == "" {
		return &style.StructuralError{Field: "source", Reason: "id required"}
	}
	if strings.TrimSpace(src.Type) == "" {
		return &style.StructuralError{Field: "source", Reason: "type required for source " + src.ID}
	}
	e.exec(func() {
		prev, known := e.sources[src.ID]
		if !known {
			e.srcOrder = append(e.srcOrder, src.ID)
		}
		e.sources[src.ID] = src
		if e.gw == nil {
			return
		}

		if known && e.gw.SourceExists(src.ID) {
			if reflect.DeepEqual(prev, src) {
				return
			}
			e.log.Info().Str("source", src.ID).Msg("source changed, recreating")
			unbound := e.unbindLayers(src.ID)
			if err := e.gw.RemoveSource(src.ID); err != nil {
				e.fail("remove source", src.ID, err)
			}
			e.addSource(src)
			e.rebind(unbound)
			return
		}

		e.addSource(src)
		e.resync(e.bound(src.ID))
	})
	return nil
}

// RemoveSource forgets a source. Layers bound to it are taken out of the
// style first; their declarations stay and they wait, blocked, for the source
// to come back.
func (e *Engine) RemoveSource(id string) {
	e.exec(func() {
		if _, ok := e.sources[id]; !ok {
			e.log.Debug().Str("source", id).Msg("remove of unknown source ignored")
			return
		}
		delete(e.sources, id)
		for i, other := range e.srcOrder {
			if other == id {
				e.srcOrder = append(e.srcOrder[:i], e.srcOrder[i+1:]...)
				break
			}
		}
		if e.gw == nil {
			return
		}

		unbound := e.unbindLayers(id)
		if e.gw.SourceExists(id) {
			if err := e.gw.RemoveSource(id); err != nil {
				e.fail("remove source", id, err)
			}
		}
		e.rebind(unbound)
	})
}

// Sources returns the declared sources in declaration order.
func (e *Engine) Sources() []models.SourceDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.SourceDescriptor, 0, len(e.srcOrder))
	for _, id := range e.srcOrder {
		out = append(out, e.sources[id])
	}
	return out
}

func (e *Engine) addSource(src models.SourceDescriptor) {
	if e.gw.SourceExists(src.ID) {
		return
	}
	err := e.gw.AddSource(style.Source{
		ID:    src.ID,
		Type:  src.Type,
		URL:   src.URL,
		Tiles: src.Tiles,
		Data:  src.Data,
	})
	if err != nil {
		e.fail("add source", src.ID, err)
	}
}

// bound lists the layers declared on source id, in declaration order.
func (e *Engine) bound(id string) []*maplayer.Controller {
	var out []*maplayer.Controller
	for _, layerID := range e.order {
		c := e.layers[layerID]
		if c.Descriptor().SourceID == id {
			out = append(out, c)
		}
	}
	return out
}

// unbound is a layer taken out of the style with its source. idx is its
// stack index before, -1 if it was not live.
type unbound struct {
	c   *maplayer.Controller
	idx int
}

// unbindLayers removes the layers on source id from the style. Every index
// is read before the first removal.
func (e *Engine) unbindLayers(id string) []unbound {
	list := e.bound(id)
	out := make([]unbound, 0, len(list))
	for _, c := range list {
		idx := -1
		if c.Status() == maplayer.StatusLive {
			idx = e.gw.LayerIndex(c.ID())
		}
		out = append(out, unbound{c: c, idx: idx})
	}
	for _, u := range out {
		u.c.Remove(e.gw)
	}
	return out
}

// rebind brings unbound layers back. Live ones return to their old stack
// index, lowest first, so the layers of other sources keep their relative
// order; the rest sync from their declaration afterwards.
func (e *Engine) rebind(list []unbound) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].idx < list[j].idx })
	for _, u := range list {
		if u.idx >= 0 {
			u.c.Restore(e.gw, u.idx)
		}
	}
	for _, u := range list {
		if u.idx < 0 {
			u.c.Sync(u.c.Descriptor(), e.gw)
		}
	}
}

func (e *Engine) resync(list []*maplayer.Controller) {
	for _, c := range list {
		c.Sync(c.Descriptor(), e.gw)
	}
}

func (e *Engine) fail(op, source string, err error) {
	level := zerolog.ErrorLevel
	if errors.Is(err, style.ErrRejected) {
		level = zerolog.WarnLevel
	}
	e.log.WithLevel(level).Err(err).Str("source", source).Str("op", op).Msg("source mutation failed")
	e.report(err)
}
