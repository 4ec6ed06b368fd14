// Purpose: Owns engine.go, the per-tab interaction engine: wires the handle
// registry, a Driver, cursor state, and runtime tuning into the dispatch
// surface for dom.* and human.* actions (spec §4.3).
package engine

import (
	"context"
	"sync"

	"github.com/hugopalma17/human-browser/internal/handles"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

// Engine is a single tab's content-script instance. A new instance starts
// empty after every navigation (spec §3 "Ownership and lifecycle").
type Engine struct {
	mu      sync.Mutex
	driver  Driver
	handles *handles.Registry
	cursor  Point
	debug   bool
	mods    ModifierState
	rnd     *rng
	tuning  protocol.RuntimeTuning
}

// New builds an engine bound to driver with the given initial tuning.
func New(driver Driver, tuning protocol.RuntimeTuning) *Engine {
	return &Engine{
		driver:  driver,
		handles: handles.New(tuning.Handles),
		debug:   tuning.Debug.Cursor,
		rnd:     newRNG(),
		tuning:  tuning,
	}
}

// Close releases the engine's background resources (the handle sweeper).
func (e *Engine) Close() {
	e.handles.Close()
}

// Reconfigure merges patch onto the engine's current tuning, restarting the
// handle sweeper if ttlMs/cleanupIntervalMs changed (spec §4.3), and stores
// the merged record so framework.getConfig can read it back (spec §8:
// "framework.setConfig(X) followed by framework.getConfig() returns a
// record equal to X merged into the current tuning").
func (e *Engine) Reconfigure(patch protocol.RuntimeTuning) {
	e.mu.Lock()
	e.tuning = e.tuning.Merge(patch)
	merged := e.tuning
	e.debug = merged.Debug.Cursor
	e.mu.Unlock()
	e.handles.Reconfigure(merged.Handles)
}

// Tuning returns the engine's current merged tuning record, for
// framework.getConfig.
func (e *Engine) Tuning() protocol.RuntimeTuning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tuning
}

// StoreHandle mints a handle for el, satisfying spec's storeHandle(el).
func (e *Engine) StoreHandle(el ElementHandle) string {
	return e.handles.Store(el)
}

// GetHandle resolves id back to an ElementHandle.
func (e *Engine) GetHandle(id string) (ElementHandle, error) {
	el, err := e.handles.Get(id)
	if err != nil {
		return nil, err
	}
	return el.(ElementHandle), nil
}

// resolveTarget implements the "handleId wins over selector" rule from
// spec §4.3 "Selector/handle resolution".
func (e *Engine) resolveTarget(ctx context.Context, handleID, selector string) (ElementHandle, error) {
	if handleID != "" {
		return e.GetHandle(handleID)
	}
	el, ok, err := e.driver.QuerySelector(ctx, selector, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protocol.NewError(protocol.CodeElementNotFound, "no element matches selector: "+selector)
	}
	return el, nil
}

// CursorPosition returns the engine's last-known cursor position.
func (e *Engine) CursorPosition() Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// SetCursorPosition seeds the engine's cursor, used when a new content
// script instance resumes from the page-bridge's cached position (spec
// §4.2 "Cursor persistence").
func (e *Engine) SetCursorPosition(p Point) {
	e.mu.Lock()
	e.cursor = p
	e.mu.Unlock()
}

// Modifiers returns the current tracked modifier-key state.
func (e *Engine) Modifiers() ModifierState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mods
}
