package reconcile

import (
	"github.com/oklog/ulid/v2"
)

// ticket is a parked insertion: dependent goes in once awaited is in the
// style. It belongs to the attach session that created it.
type ticket struct {
	id        ulid.ULID
	session   ulid.ULID
	awaited   string
	dependent string
	fn        func()
	done      bool
}

// pending indexes parked insertions by the layer id they wait for.
type pending struct {
	byAwaited map[string][]*ticket
}

func (p *pending) add(t *ticket) {
	if p.byAwaited == nil {
		p.byAwaited = make(map[string][]*ticket)
	}
	p.byAwaited[t.awaited] = append(p.byAwaited[t.awaited], t)
}

// drop retires t; a retired ticket never fires.
func (p *pending) drop(t *ticket) {
	t.done = true
	list := p.byAwaited[t.awaited]
	for i, other := range list {
		if other == t {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(p.byAwaited, t.awaited)
		return
	}
	p.byAwaited[t.awaited] = list
}

// take retires and returns every ticket waiting for awaited.
func (p *pending) take(awaited string) []*ticket {
	list := p.byAwaited[awaited]
	delete(p.byAwaited, awaited)
	for _, t := range list {
		t.done = true
	}
	return list
}

func (p *pending) clear() {
	for _, list := range p.byAwaited {
		for _, t := range list {
			t.done = true
		}
	}
	p.byAwaited = nil
}

func (p *pending) len() int {
	n := 0
	for _, list := range p.byAwaited {
		n += len(list)
	}
	return n
}
