package engine

import (
	"testing"

	"maker_go/internal/event"
	"maker_go/pkg/quant"
)

func mkTick(seq uint64) event.TickEvent {
	return event.TickEvent{BaseEvent: event.BaseEvent{Seq: seq, Ts: quant.TimeStamp(seq)}, Primary: 6800}
}

func TestRingFIFO(t *testing.T) {
	r := newEventRing(4)

	for seq := uint64(1); seq <= 3; seq++ {
		if dropped := r.push(mkTick(seq)); dropped {
			t.Fatalf("push %d dropped with spare capacity", seq)
		}
	}
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}

	for seq := uint64(1); seq <= 3; seq++ {
		ev, ok := r.pop()
		if !ok {
			t.Fatalf("pop %d: empty", seq)
		}
		if ev.GetSeq() != seq {
			t.Errorf("pop order: got seq %d, want %d", ev.GetSeq(), seq)
		}
	}
	if _, ok := r.pop(); ok {
		t.Error("pop on empty ring should report false")
	}
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := newEventRing(3)

	r.push(mkTick(1))
	r.push(mkTick(2))
	r.push(mkTick(3))

	// Fourth push must shed seq 1, not block and not grow.
	if dropped := r.push(mkTick(4)); !dropped {
		t.Fatal("push on full ring should report a shed event")
	}
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}

	want := []uint64{2, 3, 4}
	for _, seq := range want {
		ev, ok := r.pop()
		if !ok {
			t.Fatalf("pop: empty before seq %d", seq)
		}
		if ev.GetSeq() != seq {
			t.Errorf("got seq %d, want %d", ev.GetSeq(), seq)
		}
	}
}

func TestRingWraparound(t *testing.T) {
	r := newEventRing(2)

	for seq := uint64(1); seq <= 10; seq++ {
		r.push(mkTick(seq))
		if seq%2 == 0 {
			if ev, ok := r.pop(); !ok || ev.GetSeq() != seq-1 {
				t.Fatalf("at seq %d: pop = %v, %v", seq, ev, ok)
			}
			if ev, ok := r.pop(); !ok || ev.GetSeq() != seq {
				t.Fatalf("at seq %d: second pop = %v, %v", seq, ev, ok)
			}
		}
	}
}

func TestRingPanicsOnBadCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero capacity")
		}
	}()
	newEventRing(0)
}
