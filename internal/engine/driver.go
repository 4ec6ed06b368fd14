// Purpose: Owns driver.go, the DOM-facing seam the interaction engine
// dispatches through. In production this is satisfied by RPC back through
// the page-bridge into the real content script; engine/enginetest.FakeDriver
// satisfies it for tests.
package engine

import "context"

// Rect is a viewport-relative bounding box, in CSS pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Empty reports whether the box carries no area (spec: "zero bounding box").
func (r Rect) Empty() bool {
	return r.Width == 0 && r.Height == 0
}

// CenterWithin returns a point inside the box's centre 60%, offset by the
// given unit fractions fx, fy in [-1, 1] scaled to the inner region.
func (r Rect) CenterWithin(fx, fy float64) (x, y float64) {
	innerW, innerH := r.Width*0.6, r.Height*0.6
	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	return cx + fx*innerW/2, cy + fy*innerH/2
}

// Point is a viewport coordinate pair.
type Point struct{ X, Y float64 }

// ComputedStyle carries the subset of CSS state the honeypot checks need.
type ComputedStyle struct {
	Opacity    float64
	Visibility string
	Display    string
}

// ElementInfo is the read-only descriptor surfaced by queryAllInfo and
// similar summary operations (spec §4.3 "Read-only actions").
type ElementInfo struct {
	HandleID string
	Tag      string
	ID       string
	Class    string
	Text     string
	Label    string
}

// ModifierState tracks Meta/Control/Shift/Alt across dom.keyDown/keyUp calls
// within one tab session (spec §4.3 "Keyboard actions").
type ModifierState struct {
	Meta, Control, Shift, Alt bool
}

// MouseButton identifies which physical button a mouse event simulates.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

// MouseEventType enumerates the synthetic mouse events the engine dispatches.
type MouseEventType string

const (
	MouseMove     MouseEventType = "mousemove"
	MouseDown     MouseEventType = "mousedown"
	MouseUp       MouseEventType = "mouseup"
	MouseClick    MouseEventType = "click"
	MouseDblClick MouseEventType = "dblclick"
)

// KeyEventType enumerates the synthetic keyboard events the engine dispatches.
type KeyEventType string

const (
	KeyDown  KeyEventType = "keydown"
	KeyPress KeyEventType = "keypress"
	KeyUp    KeyEventType = "keyup"
)

// KeyEvent carries the fully populated key identity the real DOM KeyboardEvent
// constructor would need (spec §4.3: "fully populated key/code/keyCode/
// charCode/modifier set").
type KeyEvent struct {
	Type      KeyEventType
	Key       string
	Code      string
	KeyCode   int
	CharCode  int
	Modifiers ModifierState
}

// ElementHandle is an opaque reference into the Driver's element space. The
// engine never interprets it; only the Driver implementation understands
// its internal shape.
type ElementHandle interface {
	// Alive reports whether the underlying DOM node is still connected.
	// Satisfies the handles.Element interface.
	Alive() bool
}

// Driver is the DOM-facing seam: every operation the interaction engine
// needs from a real (or faked) page. Implementations must serialize access
// internally if they are shared across goroutines — the engine itself
// processes one tab's commands one at a time (spec §5) but does not assume
// the Driver is free-threaded.
type Driver interface {
	// QuerySelector resolves a CSS selector to at most one element, scoped
	// to within if non-nil.
	QuerySelector(ctx context.Context, selector string, within ElementHandle) (ElementHandle, bool, error)
	// QuerySelectorAll resolves a CSS selector to every matching element.
	QuerySelectorAll(ctx context.Context, selector string, within ElementHandle) ([]ElementHandle, error)
	// Matches reports whether el itself matches selector, independent of
	// any particular root — used by avoid-ruleset selector checks.
	Matches(ctx context.Context, el ElementHandle, selector string) (bool, error)

	// BoundingBox returns the element's layout box. ok is false when the
	// element produces no box at all (e.g. display:none), distinct from a
	// box that exists but has zero or sub-pixel dimensions.
	BoundingBox(ctx context.Context, el ElementHandle) (box Rect, ok bool, err error)
	ComputedStyle(ctx context.Context, el ElementHandle) (ComputedStyle, error)
	Attribute(ctx context.Context, el ElementHandle, name string) (string, bool, error)
	Property(ctx context.Context, el ElementHandle, name string) (any, error)
	OuterHTML(ctx context.Context, el ElementHandle, limit int) (string, error)
	Tag(ctx context.Context, el ElementHandle) (string, error)
	ClassList(ctx context.Context, el ElementHandle) ([]string, error)
	HasAttribute(ctx context.Context, el ElementHandle, name string) (bool, error)
	HasOffsetParent(ctx context.Context, el ElementHandle) (bool, error)
	IsSVG(ctx context.Context, el ElementHandle) (bool, error)

	// DispatchMouseEvent fires a synthetic mouse event at viewport coords
	// (x, y) on the element currently at that point (elementFromPoint).
	DispatchMouseEvent(ctx context.Context, evt MouseEventType, x, y float64, button MouseButton) (ElementHandle, error)
	// ElementFromPoint resolves the topmost element at viewport coords,
	// honouring overlay coverage (spec "Overlay coverage" in §8).
	ElementFromPoint(ctx context.Context, x, y float64) (ElementHandle, bool, error)
	Focus(ctx context.Context, el ElementHandle) error
	SetSelectionRange(ctx context.Context, el ElementHandle, start, end int) error

	DispatchKeyEvent(ctx context.Context, el ElementHandle, evt KeyEvent) error
	// SetNativeValue mutates an input/textarea value via the platform's
	// native value setter so virtual-DOM frameworks observe the change. It
	// does not dispatch an "input" event; callers follow it with
	// DispatchInputEvent.
	SetNativeValue(ctx context.Context, el ElementHandle, value string) error
	Value(ctx context.Context, el ElementHandle) (string, error)
	DispatchInputEvent(ctx context.Context, el ElementHandle) error
	DispatchChangeEvent(ctx context.Context, el ElementHandle) error

	// Scroll scrolls target by (dx, dy) CSS pixels; target == nil scrolls
	// the window. Returns the scroll offset before and after.
	Scroll(ctx context.Context, target ElementHandle, dx, dy float64) (before, after Point, err error)
	ScrollIntoView(ctx context.Context, el ElementHandle) error
	IsScrollable(ctx context.Context, el ElementHandle) (bool, error)

	ViewportSize(ctx context.Context) (width, height float64, err error)

	// DocumentHTML, DocumentTitle, and DocumentURL back dom.getHTML, which
	// reads from the isolated world and is therefore immune to page CSP.
	DocumentHTML(ctx context.Context) (string, error)
	DocumentTitle(ctx context.Context) (string, error)
	DocumentURL(ctx context.Context) (string, error)

	// SetCursorOverlay toggles the frame visibility debug overlay (spec
	// §4.4). Implementations with no visual surface may no-op.
	SetCursorOverlay(ctx context.Context, on bool) error
	RenderCursor(ctx context.Context, at Point, trail []Point) error
}
