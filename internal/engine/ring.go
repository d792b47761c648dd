package engine

import (
	"sync"

	"maker_go/internal/event"
)

// eventRing is a fixed-capacity FIFO with an explicit overwrite-oldest
// policy. When the consumer falls behind, the producer sheds the oldest
// queued event to admit the newest: bounded staleness is preferred over
// blocking the network thread or growing without bound. This is a
// deliberate lossy-backpressure contract, not an implementation accident.
type eventRing struct {
	mu    sync.Mutex
	buf   []event.Event
	head  int // next pop position
	count int
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		panic("engine: ring capacity must be positive")
	}
	return &eventRing{buf: make([]event.Event, capacity)}
}

// push appends ev, dropping the oldest entry when full. Returns true when an
// event was shed.
func (r *eventRing) push(ev event.Event) (dropped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == len(r.buf) {
		// overwrite-oldest: advance head past the shed event
		r.buf[(r.head+r.count)%len(r.buf)] = ev
		r.head = (r.head + 1) % len(r.buf)
		return true
	}
	r.buf[(r.head+r.count)%len(r.buf)] = ev
	r.count++
	return false
}

// pop removes the oldest event, if any.
func (r *eventRing) pop() (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil, false
	}
	ev := r.buf[r.head]
	r.buf[r.head] = nil
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return ev, true
}

func (r *eventRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
