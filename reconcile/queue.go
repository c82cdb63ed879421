package reconcile

import (
	"sync"

	"github.com/rs/zerolog"
)

// queue serializes style mutations. Whoever finds it idle drains it; callers
// arriving while it drains only append, so operations never nest and a
// callback fired by the backend in the middle of an operation runs after it.
type queue struct {
	log zerolog.Logger

	mu       sync.Mutex
	ops      []func()
	draining bool
}

// run appends op and, unless another call is already draining, runs every
// queued operation before returning.
func (q *queue) run(op func()) {
	q.mu.Lock()
	q.ops = append(q.ops, op)
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for len(q.ops) > 0 {
		next := q.ops[0]
		q.ops[0] = nil
		q.ops = q.ops[1:]
		q.mu.Unlock()

		q.call(next)

		q.mu.Lock()
	}
	q.ops = nil
	q.draining = false
	q.mu.Unlock()
}

func (q *queue) call(op func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Msg("style mutation panicked, continuing with the next one")
		}
	}()
	op()
}
