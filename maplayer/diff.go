package maplayer

import (
	"bytes"
	"reflect"
	"sort"

	"github.com/goccy/go-json"
	"github.com/khankhulgun/khanstyle/models"
)

// sameValue compares declared values. Decoders disagree on number types
// (YAML gives int, JSON float64), so values that are not deeply equal are
// compared by their JSON encoding.
func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

func sameZoom(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// propChange is one property that has to be written; a nil Value resets the
// property to the backend default.
type propChange struct {
	Name  string
	Value any
}

// diffProps lists the properties of next that differ from prev, plus the
// ones prev had and next dropped, ordered by name.
func diffProps(prev, next map[string]any) []propChange {
	var changes []propChange
	for name, value := range next {
		if old, ok := prev[name]; ok && sameValue(old, value) {
			continue
		}
		changes = append(changes, propChange{Name: name, Value: value})
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			changes = append(changes, propChange{Name: name})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

// structuralChange reports whether going from prev to next needs the layer
// to be removed and inserted again.
func structuralChange(prev, next models.LayerDescriptor) bool {
	return prev.Kind != next.Kind ||
		prev.SourceID != next.SourceID ||
		prev.SourceLayerID != next.SourceLayerID ||
		prev.Position != next.Position
}
