package handles

import (
	"testing"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

type fakeElement struct{ alive bool }

func (f *fakeElement) Alive() bool { return f.alive }

func TestStoreMintsMonotonicIDs(t *testing.T) {
	r := New(protocol.HandleTuning{TTLMs: int64(time.Minute / time.Millisecond), CleanupIntervalMs: int64(time.Hour / time.Millisecond)})
	defer r.Close()

	id1 := r.Store(&fakeElement{alive: true})
	id2 := r.Store(&fakeElement{alive: true})
	if id1 != "el_1" || id2 != "el_2" {
		t.Fatalf("expected el_1/el_2, got %s/%s", id1, id2)
	}
}

func TestGetUnknownHandleNotFound(t *testing.T) {
	r := New(protocol.HandleTuning{TTLMs: 60000, CleanupIntervalMs: 60000})
	defer r.Close()

	_, err := r.Get("el_999")
	if !protocol.IsCode(err, protocol.CodeHandleNotFound) {
		t.Fatalf("expected handle-not-found, got %v", err)
	}
}

func TestGetDeadElementHandleGCd(t *testing.T) {
	r := New(protocol.HandleTuning{TTLMs: 60000, CleanupIntervalMs: 60000})
	defer r.Close()

	el := &fakeElement{alive: true}
	id := r.Store(el)
	el.alive = false

	_, err := r.Get(id)
	if !protocol.IsCode(err, protocol.CodeHandleGCd) {
		t.Fatalf("expected handle-gc'd, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected dead handle evicted from registry, len=%d", r.Len())
	}
}

func TestSweepEvictsStaleHandles(t *testing.T) {
	r := New(protocol.HandleTuning{TTLMs: 1, CleanupIntervalMs: 1})
	defer r.Close()

	fixed := time.Unix(0, 0)
	r.now = func() time.Time { return fixed }
	id := r.Store(&fakeElement{alive: true})

	r.now = func() time.Time { return fixed.Add(time.Hour) }
	r.sweep()

	if _, err := r.Get(id); !protocol.IsCode(err, protocol.CodeHandleNotFound) {
		t.Fatalf("expected handle evicted by sweep, got %v", err)
	}
}

func TestReconfigureRestartsSweeper(t *testing.T) {
	r := New(protocol.HandleTuning{TTLMs: 60000, CleanupIntervalMs: 60000})
	defer r.Close()

	r.Reconfigure(protocol.HandleTuning{TTLMs: 120000, CleanupIntervalMs: 30000})
	if r.ttl != 120000*time.Millisecond {
		t.Fatalf("expected ttl updated, got %v", r.ttl)
	}
	if r.cleanup != 30000*time.Millisecond {
		t.Fatalf("expected cleanup interval updated, got %v", r.cleanup)
	}
}
