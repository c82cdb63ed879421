package style

import (
	"errors"
	"fmt"
)

// Sentinel kinds, matched with errors.Is against the typed errors below.
var (
	ErrNotFound   = errors.New("not found")
	ErrRejected   = errors.New("backend rejected")
	ErrFilter     = errors.New("filter compile")
	ErrStructural = errors.New("structural")

	// ErrStyleNotLoaded is wrapped by BackendRejectedError when the style is
	// between an unload and the next load.
	ErrStyleNotLoaded = errors.New("style not loaded")
)

// NotFoundError reports a source or sibling layer that did not exist when an
// operation needed it.
type NotFoundError struct {
	LayerID string
	Op      string
	Ref     string
}

func (e *NotFoundError) Error() string {
	if e.LayerID == "" {
		return fmt.Sprintf("%s: %q not found", e.Op, e.Ref)
	}
	return fmt.Sprintf("layer %q: %s: %q not found", e.LayerID, e.Op, e.Ref)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// BackendRejectedError reports a mutation the backend refused. The previous
// backend state is left as it was.
type BackendRejectedError struct {
	LayerID  string
	Op       string
	Property string
	Err      error
}

func (e *BackendRejectedError) Error() string {
	msg := fmt.Sprintf("layer %q: %s", e.LayerID, e.Op)
	if e.Property != "" {
		msg += fmt.Sprintf(" %q", e.Property)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendRejectedError) Is(target error) bool { return target == ErrRejected }

func (e *BackendRejectedError) Unwrap() error { return e.Err }

// FilterCompileError reports a malformed filter literal.
type FilterCompileError struct {
	LayerID string
	Raw     any
	Reason  string
}

func (e *FilterCompileError) Error() string {
	return fmt.Sprintf("layer %q: invalid filter %v: %s", e.LayerID, e.Raw, e.Reason)
}

func (e *FilterCompileError) Is(target error) bool { return target == ErrFilter }

// StructuralError rejects a descriptor before it reaches any backend.
type StructuralError struct {
	LayerID string
	Field   string
	Reason  string
}

func (e *StructuralError) Error() string {
	if e.LayerID == "" {
		return fmt.Sprintf("descriptor: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("descriptor %q: %s: %s", e.LayerID, e.Field, e.Reason)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }
