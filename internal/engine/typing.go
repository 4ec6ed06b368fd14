// Purpose: Owns typing.go, the human-type pipeline: tokenisation of special
// keys, per-token timing, and the explicit effect handlers for Backspace,
// Delete, and select-all; arrow/Enter on <select> only dispatch a change
// event (spec §4.3 "Human-type pipeline").
package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

// TypeParams carries the per-request options for human.type.
type TypeParams struct {
	HandleID string
	Selector string
	Text     string
	Avoid    protocol.AvoidRuleset
	Click    protocol.ClickTuning
	Tuning   protocol.TypeTuning
}

var specialKeyPattern = regexp.MustCompile(`\{[A-Za-z0-9]+\}`)

// token is either a literal character or a named special key (e.g. "Enter").
type token struct {
	special bool
	value   string
}

// tokenize splits text into literal-character and {KeyName} tokens.
func tokenize(text string) []token {
	var tokens []token
	rest := text
	for {
		loc := specialKeyPattern.FindStringIndex(rest)
		if loc == nil {
			for _, r := range rest {
				tokens = append(tokens, token{value: string(r)})
			}
			break
		}
		for _, r := range rest[:loc[0]] {
			tokens = append(tokens, token{value: string(r)})
		}
		tokens = append(tokens, token{special: true, value: strings.Trim(rest[loc[0]:loc[1]], "{}")})
		rest = rest[loc[1]:]
	}
	return tokens
}

// Type runs the human-type pipeline against the resolved target.
func (e *Engine) Type(ctx context.Context, avoidGlobal protocol.AvoidRuleset, p TypeParams) (protocol.TypeResult, error) {
	el, err := e.resolveTarget(ctx, p.HandleID, p.Selector)
	if err != nil {
		return protocol.TypeResult{}, err
	}

	merged := avoidGlobal.Union(p.Avoid)
	if avoided, err := matchesAvoid(ctx, e.driver, el, merged); err != nil {
		return protocol.TypeResult{}, err
	} else if avoided {
		return protocol.TypeResult{Typed: false, Reason: protocol.ReasonAvoided}, nil
	}

	clickRes, err := e.Click(ctx, avoidGlobal, ClickParams{HandleID: p.HandleID, Selector: p.Selector, ClickCount: 1, Avoid: p.Avoid, Tuning: p.Click})
	if err != nil {
		return protocol.TypeResult{}, err
	}
	if !clickRes.Clicked {
		return protocol.TypeResult{Typed: false, Reason: clickRes.Reason}, nil
	}

	tuning := p.Tuning
	if tuning.BaseDelayMaxMs == 0 {
		tuning = protocol.DefaultTuning().Type
	}

	for _, tok := range tokenize(p.Text) {
		if err := e.typeToken(ctx, el, tok); err != nil {
			return protocol.TypeResult{}, err
		}

		delay := tuning.BaseDelayMinMs + e.rnd.IntRange(0, tuning.BaseDelayMaxMs-tuning.BaseDelayMinMs)
		variance := e.rnd.IntRange(-tuning.VarianceMs, tuning.VarianceMs)
		d := delay + variance
		if d < 50 {
			d = 50
		}
		sleep(ctx, time.Duration(d)*time.Millisecond)

		if e.rnd.Bool(tuning.PauseChance) {
			sleep(ctx, time.Duration(e.rnd.IntRange(tuning.PauseMinMs, tuning.PauseMaxMs))*time.Millisecond)
		}
	}

	return protocol.TypeResult{Typed: true}, nil
}

// typeToken dispatches the keydown/keypress/value-mutation/input/keyup
// sequence for a single token, including the explicit effect handlers.
func (e *Engine) typeToken(ctx context.Context, el ElementHandle, tok token) error {
	mods := e.Modifiers()

	if tok.special {
		return e.dispatchSpecialKey(ctx, el, tok.value, mods)
	}

	keyEvt := KeyEvent{Type: KeyDown, Key: tok.value, Modifiers: mods}
	if err := e.driver.DispatchKeyEvent(ctx, el, keyEvt); err != nil {
		return err
	}
	keyEvt.Type = KeyPress
	keyEvt.CharCode = int(tok.value[0])
	if err := e.driver.DispatchKeyEvent(ctx, el, keyEvt); err != nil {
		return err
	}

	current, err := e.driver.Value(ctx, el)
	if err != nil {
		return err
	}
	if err := e.driver.SetNativeValue(ctx, el, current+tok.value); err != nil {
		return err
	}
	if err := e.driver.DispatchInputEvent(ctx, el); err != nil {
		return err
	}

	keyEvt.Type = KeyUp
	return e.driver.DispatchKeyEvent(ctx, el, keyEvt)
}

// dispatchSpecialKey handles {KeyName} tokens. Backspace and Delete remove
// one character from the end or the start of the value, and {a} with
// Control or Meta held selects the whole value. ArrowUp, ArrowDown and
// Enter on a <select> each dispatch a change event; they do not change the
// selected option. Other keys dispatch keydown/keyup only.
func (e *Engine) dispatchSpecialKey(ctx context.Context, el ElementHandle, name string, mods ModifierState) error {
	evt := KeyEvent{Type: KeyDown, Key: name, Modifiers: mods}
	if err := e.driver.DispatchKeyEvent(ctx, el, evt); err != nil {
		return err
	}
	defer func() {
		evt.Type = KeyUp
		_ = e.driver.DispatchKeyEvent(ctx, el, evt)
	}()

	switch name {
	case "Backspace":
		return e.applyBackspace(ctx, el)
	case "Delete":
		return e.applyDelete(ctx, el)
	case "ArrowUp", "ArrowDown":
		tag, err := e.driver.Tag(ctx, el)
		if err != nil {
			return err
		}
		if strings.EqualFold(tag, "select") {
			return e.driver.DispatchChangeEvent(ctx, el)
		}
		return nil
	case "Enter":
		tag, err := e.driver.Tag(ctx, el)
		if err != nil {
			return err
		}
		if strings.EqualFold(tag, "select") {
			return e.driver.DispatchChangeEvent(ctx, el)
		}
		return nil
	default:
		if name == "a" && (mods.Control || mods.Meta) {
			return e.applySelectAll(ctx, el)
		}
		return nil
	}
}

func (e *Engine) applyBackspace(ctx context.Context, el ElementHandle) error {
	val, err := e.driver.Value(ctx, el)
	if err != nil {
		return err
	}
	if len(val) == 0 {
		return nil
	}
	if err := e.driver.SetNativeValue(ctx, el, val[:len(val)-1]); err != nil {
		return err
	}
	return e.driver.DispatchInputEvent(ctx, el)
}

func (e *Engine) applyDelete(ctx context.Context, el ElementHandle) error {
	val, err := e.driver.Value(ctx, el)
	if err != nil {
		return err
	}
	if len(val) == 0 {
		return nil
	}
	if err := e.driver.SetNativeValue(ctx, el, val[1:]); err != nil {
		return err
	}
	return e.driver.DispatchInputEvent(ctx, el)
}

func (e *Engine) applySelectAll(ctx context.Context, el ElementHandle) error {
	val, err := e.driver.Value(ctx, el)
	if err != nil {
		return err
	}
	return e.driver.SetSelectionRange(ctx, el, 0, len(val))
}

// KeyAction carries the per-request options for dom.keyPress/keyDown/keyUp.
type KeyAction struct {
	HandleID string
	Selector string
	Key      string
}

// modifierNames are the four modifiers tracked across dom.keyDown/keyUp
// calls within one tab session (spec §4.3 "Keyboard actions").
var modifierNames = map[string]bool{"Meta": true, "Control": true, "Shift": true, "Alt": true}

// KeyPress dispatches a full keydown+keypress+keyup sequence on the element
// resolved from HandleID or Selector; it does not fall back to the current
// focus owner.
func (e *Engine) KeyPress(ctx context.Context, a KeyAction) error {
	el, err := e.resolveTarget(ctx, a.HandleID, a.Selector)
	if err != nil {
		return err
	}
	mods := e.Modifiers()
	for _, t := range []KeyEventType{KeyDown, KeyPress, KeyUp} {
		if err := e.driver.DispatchKeyEvent(ctx, el, KeyEvent{Type: t, Key: a.Key, Modifiers: mods}); err != nil {
			return err
		}
	}
	return nil
}

// KeyDown dispatches a keydown and, for the four modifier names, updates
// tracked modifier state for subsequent key events in this session.
func (e *Engine) KeyDown(ctx context.Context, a KeyAction) error {
	el, err := e.resolveTarget(ctx, a.HandleID, a.Selector)
	if err != nil {
		return err
	}
	e.setModifier(a.Key, true)
	return e.driver.DispatchKeyEvent(ctx, el, KeyEvent{Type: KeyDown, Key: a.Key, Modifiers: e.Modifiers()})
}

// KeyUp dispatches a keyup and clears tracked modifier state if applicable.
func (e *Engine) KeyUp(ctx context.Context, a KeyAction) error {
	el, err := e.resolveTarget(ctx, a.HandleID, a.Selector)
	if err != nil {
		return err
	}
	evt := KeyEvent{Type: KeyUp, Key: a.Key, Modifiers: e.Modifiers()}
	e.setModifier(a.Key, false)
	return e.driver.DispatchKeyEvent(ctx, el, evt)
}

func (e *Engine) setModifier(key string, down bool) {
	if !modifierNames[key] {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch key {
	case "Meta":
		e.mods.Meta = down
	case "Control":
		e.mods.Control = down
	case "Shift":
		e.mods.Shift = down
	case "Alt":
		e.mods.Alt = down
	}
}
