// Purpose: Owns the per-tab element handle registry — minting, lookup, and
// the TTL/GC sweep described in spec §4.3.
package handles

import (
	"strconv"
	"sync"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// Element is anything storable behind a handle. In production this wraps a
// reference back into the content script's DOM; in this repository it is
// satisfied by engine/enginetest's fake elements. Alive reports whether the
// underlying weak reference still resolves (spec: "handle-gc'd" when the
// weak reference is empty).
type Element interface {
	Alive() bool
}

type entry struct {
	el         Element
	lastAccess time.Time
}

// Registry mints and tracks el_<n> handles for a single content-script
// instance (spec: "monotonically increasing within this content-script
// instance" — never shared across tabs).
type Registry struct {
	mu      sync.Mutex
	next    uint64
	entries map[string]*entry

	ttl     time.Duration
	cleanup time.Duration

	stopSweep chan struct{}
	sweepDone chan struct{}

	now func() time.Time
}

// New builds a registry using the given tuning and starts its sweeper.
func New(tuning protocol.HandleTuning) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		ttl:     time.Duration(tuning.TTLMs) * time.Millisecond,
		cleanup: time.Duration(tuning.CleanupIntervalMs) * time.Millisecond,
		now:     time.Now,
	}
	r.startSweeper()
	return r
}

// Store mints a new handle for el and returns its id.
func (r *Registry) Store(el Element) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := handleID(r.next)
	r.entries[id] = &entry{el: el, lastAccess: r.now()}
	return id
}

// Get resolves id to its element, applying the handle-not-found /
// handle-gc'd distinction from spec §7.
func (r *Registry) Get(id string) (Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, protocol.NewError(protocol.CodeHandleNotFound, "handle not registered or already evicted: "+id)
	}
	if !e.el.Alive() {
		delete(r.entries, id)
		return nil, protocol.NewError(protocol.CodeHandleGCd, "handle's element is no longer retained by the DOM: "+id)
	}
	e.lastAccess = r.now()
	return e.el, nil
}

// Reconfigure updates ttl/cleanupInterval and restarts the sweeper, per
// spec: "Config changes to ttlMs or cleanupIntervalMs take effect by
// restarting the sweeper."
func (r *Registry) Reconfigure(tuning protocol.HandleTuning) {
	r.stopSweeper()
	r.mu.Lock()
	r.ttl = time.Duration(tuning.TTLMs) * time.Millisecond
	r.cleanup = time.Duration(tuning.CleanupIntervalMs) * time.Millisecond
	r.mu.Unlock()
	r.startSweeper()
}

// Close stops the sweeper goroutine.
func (r *Registry) Close() {
	r.stopSweeper()
}

// Len reports the current handle count, for tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) startSweeper() {
	r.mu.Lock()
	interval := r.cleanup
	r.mu.Unlock()
	if interval <= 0 {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stopSweep = stop
	r.sweepDone = done
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) stopSweeper() {
	if r.stopSweep == nil {
		return
	}
	close(r.stopSweep)
	<-r.sweepDone
	r.stopSweep = nil
	r.sweepDone = nil
}

// sweep evicts handles that are stale (unused longer than ttl) or whose
// weak reference has gone empty.
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.entries {
		if !e.el.Alive() || e.lastAccess.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}

func handleID(n uint64) string {
	// el_<n> per spec §4.3.
	return "el_" + strconv.FormatUint(n, 10)
}
