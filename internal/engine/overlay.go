// Purpose: Owns overlay.go, the optional frame visibility debug overlay
// toggle (spec §4.4). Has no effect on event semantics.
package engine

import "context"

// SetDebug toggles the cursor overlay at runtime via dom.setDebug.
func (e *Engine) SetDebug(ctx context.Context, on bool) error {
	e.mu.Lock()
	e.debug = on
	e.mu.Unlock()
	return e.driver.SetCursorOverlay(ctx, on)
}

// DebugEnabled reports the current overlay state.
func (e *Engine) DebugEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}
