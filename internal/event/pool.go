package event

import "sync"

// Pools for hotpath events. Depth snapshots dominate inbound traffic and
// carry two level slices each, so they are recycled instead of reallocated.

const defaultDepthCap = 10

var domPool = sync.Pool{
	New: func() any {
		return &DomSnapshot{
			Bids: make([]Level, 0, defaultDepthCap),
			Asks: make([]Level, 0, defaultDepthCap),
		}
	},
}

var tickPool = sync.Pool{
	New: func() any { return &TickEvent{} },
}

// AcquireDomSnapshot returns a reset snapshot from the pool.
func AcquireDomSnapshot() *DomSnapshot {
	return domPool.Get().(*DomSnapshot)
}

// ReleaseDomSnapshot resets and returns a snapshot to the pool.
func ReleaseDomSnapshot(e *DomSnapshot) {
	e.BaseEvent = BaseEvent{}
	e.BestBid = 0
	e.BestAsk = 0
	e.Bids = e.Bids[:0]
	e.Asks = e.Asks[:0]
	domPool.Put(e)
}

// AcquireTickEvent returns a reset tick from the pool.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent resets and returns a tick to the pool.
func ReleaseTickEvent(e *TickEvent) {
	*e = TickEvent{}
	tickPool.Put(e)
}

// Warmup pre-populates the pools so the first bursts do not allocate.
func Warmup() {
	doms := make([]*DomSnapshot, 0, 64)
	ticks := make([]*TickEvent, 0, 64)
	for i := 0; i < 64; i++ {
		doms = append(doms, AcquireDomSnapshot())
		ticks = append(ticks, AcquireTickEvent())
	}
	for i := range doms {
		ReleaseDomSnapshot(doms[i])
		ReleaseTickEvent(ticks[i])
	}
}
