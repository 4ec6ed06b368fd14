// Purpose: Owns clear.go, the human-clearInput pipeline (spec §4.3
// "Human-clearInput"): focus, select-all via triple-click, then Backspace.
package engine

import (
	"context"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// ClearParams carries the per-request options for human.clearInput.
type ClearParams struct {
	HandleID string
	Selector string
	Avoid    protocol.AvoidRuleset
	Click    protocol.ClickTuning
}

// ClearInput focuses the target with a human click, triple-clicks to select
// all text, pauses, then sends Backspace.
func (e *Engine) ClearInput(ctx context.Context, avoidGlobal protocol.AvoidRuleset, p ClearParams) (protocol.ClearResult, error) {
	res, err := e.Click(ctx, avoidGlobal, ClickParams{
		HandleID:   p.HandleID,
		Selector:   p.Selector,
		ClickCount: 3,
		Avoid:      p.Avoid,
		Tuning:     p.Click,
	})
	if err != nil {
		return protocol.ClearResult{}, err
	}
	if !res.Clicked {
		return protocol.ClearResult{Cleared: false, Reason: res.Reason}, nil
	}

	sleep(ctx, 150*time.Millisecond)

	el, err := e.resolveTarget(ctx, p.HandleID, p.Selector)
	if err != nil {
		return protocol.ClearResult{}, err
	}
	if err := e.clearSelectedValue(ctx, el); err != nil {
		return protocol.ClearResult{}, err
	}

	return protocol.ClearResult{Cleared: true}, nil
}

// clearSelectedValue removes the whole value after a select-all, rather than
// the single trailing character applyBackspace removes. The triple-click
// above leaves the entire text selected, and a real Backspace keypress
// deletes a selection in full, not one character.
func (e *Engine) clearSelectedValue(ctx context.Context, el ElementHandle) error {
	mods := e.Modifiers()
	down := KeyEvent{Type: KeyDown, Key: "Backspace", Modifiers: mods}
	if err := e.driver.DispatchKeyEvent(ctx, el, down); err != nil {
		return err
	}
	if err := e.driver.SetNativeValue(ctx, el, ""); err != nil {
		return err
	}
	if err := e.driver.DispatchInputEvent(ctx, el); err != nil {
		return err
	}
	up := KeyEvent{Type: KeyUp, Key: "Backspace", Modifiers: mods}
	return e.driver.DispatchKeyEvent(ctx, el, up)
}
