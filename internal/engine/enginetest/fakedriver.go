// Purpose: Owns fakedriver.go, an in-memory DOM good enough to exercise
// every invariant in spec §8 (honeypot matrix, overlay coverage, shift
// detection, TTL eviction) as a deterministic Go test, without a real
// browser. This is the test seam for engine.Driver.
package enginetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hugopalma17/human-browser/internal/engine"
)

// Elem is a single fake DOM node. Fields default to "visible and clickable"
// so fixtures only need to set the traits they care about.
type Elem struct {
	Tag        string
	ID         string
	Classes    []string
	Attrs      map[string]string
	Text       string
	Box        engine.Rect
	HasBox     bool
	Style      engine.ComputedStyle
	OffsetPar  bool
	SVG        bool
	Scrollable bool
	Value      string
	Connected  bool
	Children   []*Elem

	parent *FakeDriver
}

// Alive satisfies engine.ElementHandle / handles.Element.
func (el *Elem) Alive() bool { return el.Connected }

// NewElem returns a fixture element with the documented "normal" defaults:
// connected, has an offset parent, a 50x20 box at (0,0), full opacity and
// visibility.
func NewElem(tag string) *Elem {
	return &Elem{
		Tag:       tag,
		Attrs:     map[string]string{},
		Box:       engine.Rect{X: 0, Y: 0, Width: 50, Height: 20},
		HasBox:    true,
		Style:     engine.ComputedStyle{Opacity: 1, Visibility: "visible", Display: "block"},
		OffsetPar: true,
		Connected: true,
	}
}

// FakeDriver is an in-memory engine.Driver. All element lookups are by
// identity; selector matching supports the narrow subset this repository's
// fixtures need: tag names, #id, .class, [attr], and comma-separated lists
// of those, plus the catch-all "*".
type FakeDriver struct {
	mu       sync.Mutex
	elements []*Elem
	cursor   engine.Point
	overlay  bool
	viewportW, viewportH float64
	scrollX, scrollY     float64
	mouseEvents          []MouseEventLog
	keyEvents            []KeyEventLog
	modifiers            engine.ModifierState

	docHTML, docTitle, docURL string
}

// MouseEventLog records a dispatched mouse event for test assertions.
type MouseEventLog struct {
	Type   engine.MouseEventType
	X, Y   float64
	Target *Elem
}

// KeyEventLog records a dispatched key event for test assertions.
type KeyEventLog struct {
	Type engine.KeyEventType
	Key  string
	On   *Elem
}

// New builds a FakeDriver with a default 1280x720 viewport.
func New() *FakeDriver {
	return &FakeDriver{viewportW: 1280, viewportH: 720}
}

// Add registers els as the page's elements, in document order (topmost
// last, so ElementFromPoint returns the last match at a given point —
// modeling overlay stacking).
func (d *FakeDriver) Add(els ...*Elem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		el.parent = d
		d.elements = append(d.elements, el)
	}
}

// MouseEvents returns a copy of logged mouse events, for test assertions.
func (d *FakeDriver) MouseEvents() []MouseEventLog {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MouseEventLog, len(d.mouseEvents))
	copy(out, d.mouseEvents)
	return out
}

// ClickedElements returns every *Elem that received a "click" mouse event.
func (d *FakeDriver) ClickedElements() []*Elem {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Elem
	for _, m := range d.mouseEvents {
		if m.Type == engine.MouseClick && m.Target != nil {
			out = append(out, m.Target)
		}
	}
	return out
}

func matches(el *Elem, selector string) bool {
	if !el.Connected {
		return false
	}
	selector = strings.TrimSpace(selector)
	if selector == "*" {
		return true
	}
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if matchesSingle(el, part) {
			return true
		}
	}
	return false
}

func matchesSingle(el *Elem, sel string) bool {
	sel = strings.TrimSpace(sel)
	switch {
	case strings.HasPrefix(sel, "#"):
		return el.ID == sel[1:]
	case strings.HasPrefix(sel, "."):
		want := sel[1:]
		for _, c := range el.Classes {
			if c == want {
				return true
			}
		}
		return false
	case strings.HasPrefix(sel, "[") && strings.HasSuffix(sel, "]"):
		attr := strings.Trim(sel, "[]")
		if eq := strings.Index(attr, "="); eq >= 0 {
			name := attr[:eq]
			val := strings.Trim(attr[eq+1:], `"'`)
			return el.Attrs[name] == val
		}
		_, ok := el.Attrs[attr]
		return ok
	case sel == "":
		return false
	default:
		return strings.EqualFold(el.Tag, sel)
	}
}

func (d *FakeDriver) find(selector string) []*Elem {
	var out []*Elem
	for _, el := range d.elements {
		if matches(el, selector) {
			out = append(out, el)
		}
	}
	return out
}

func toElem(h engine.ElementHandle) *Elem {
	if h == nil {
		return nil
	}
	return h.(*Elem)
}

func (d *FakeDriver) QuerySelector(ctx context.Context, selector string, within engine.ElementHandle) (engine.ElementHandle, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range d.find(selector) {
		if within != nil && toElem(within) != el && !contains(toElem(within), el) {
			continue
		}
		return el, true, nil
	}
	return nil, false, nil
}

func contains(root, el *Elem) bool {
	if root == nil {
		return false
	}
	for _, c := range root.Children {
		if c == el || contains(c, el) {
			return true
		}
	}
	return false
}

func (d *FakeDriver) QuerySelectorAll(ctx context.Context, selector string, within engine.ElementHandle) ([]engine.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []engine.ElementHandle
	for _, el := range d.find(selector) {
		if within != nil && toElem(within) != el && !contains(toElem(within), el) {
			continue
		}
		out = append(out, el)
	}
	return out, nil
}

func (d *FakeDriver) Matches(ctx context.Context, h engine.ElementHandle, selector string) (bool, error) {
	return matches(toElem(h), selector), nil
}

func (d *FakeDriver) BoundingBox(ctx context.Context, h engine.ElementHandle) (engine.Rect, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := toElem(h)
	return el.Box, el.HasBox, nil
}

// MoveBox shifts el's box by (dx, dy), synchronized against concurrent
// reads. Intended for tests that simulate layout changes mid-pipeline.
func (d *FakeDriver) MoveBox(el *Elem, dx, dy float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el.Box.X += dx
	el.Box.Y += dy
}

func (d *FakeDriver) ComputedStyle(ctx context.Context, h engine.ElementHandle) (engine.ComputedStyle, error) {
	return toElem(h).Style, nil
}

func (d *FakeDriver) Attribute(ctx context.Context, h engine.ElementHandle, name string) (string, bool, error) {
	el := toElem(h)
	if name == "id" {
		return el.ID, el.ID != "", nil
	}
	v, ok := el.Attrs[name]
	return v, ok, nil
}

func (d *FakeDriver) Property(ctx context.Context, h engine.ElementHandle, name string) (any, error) {
	el := toElem(h)
	switch name {
	case "textContent", "innerText":
		return el.Text, nil
	case "value":
		return el.Value, nil
	default:
		return nil, nil
	}
}

func (d *FakeDriver) OuterHTML(ctx context.Context, h engine.ElementHandle, limit int) (string, error) {
	el := toElem(h)
	html := fmt.Sprintf("<%s id=%q class=%q>%s</%s>", el.Tag, el.ID, strings.Join(el.Classes, " "), el.Text, el.Tag)
	if len(html) > limit {
		html = html[:limit]
	}
	return html, nil
}

func (d *FakeDriver) Tag(ctx context.Context, h engine.ElementHandle) (string, error) {
	return toElem(h).Tag, nil
}

func (d *FakeDriver) ClassList(ctx context.Context, h engine.ElementHandle) ([]string, error) {
	return toElem(h).Classes, nil
}

func (d *FakeDriver) HasAttribute(ctx context.Context, h engine.ElementHandle, name string) (bool, error) {
	_, ok := toElem(h).Attrs[name]
	return ok, nil
}

func (d *FakeDriver) HasOffsetParent(ctx context.Context, h engine.ElementHandle) (bool, error) {
	return toElem(h).OffsetPar, nil
}

func (d *FakeDriver) IsSVG(ctx context.Context, h engine.ElementHandle) (bool, error) {
	return toElem(h).SVG, nil
}

func (d *FakeDriver) DispatchMouseEvent(ctx context.Context, evt engine.MouseEventType, x, y float64, button engine.MouseButton) (engine.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	target := d.elementFromPointLocked(x, y)
	d.mouseEvents = append(d.mouseEvents, MouseEventLog{Type: evt, X: x, Y: y, Target: target})
	if target == nil {
		return nil, nil
	}
	return target, nil
}

func (d *FakeDriver) ElementFromPoint(ctx context.Context, x, y float64) (engine.ElementHandle, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := d.elementFromPointLocked(x, y)
	if el == nil {
		return nil, false, nil
	}
	return el, true, nil
}

// elementFromPointLocked returns the topmost (last-added) connected,
// boxed, non-hidden element whose box contains (x, y). Non-visible or
// zero-opacity elements are treated as receiving no pointer events, so an
// overlay painted over a hidden button intercepts the click.
func (d *FakeDriver) elementFromPointLocked(x, y float64) *Elem {
	for i := len(d.elements) - 1; i >= 0; i-- {
		el := d.elements[i]
		if !el.Connected || !el.HasBox {
			continue
		}
		if el.Style.Visibility == "hidden" || el.Style.Opacity == 0 {
			continue
		}
		b := el.Box
		if x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height {
			return el
		}
	}
	return nil
}

func (d *FakeDriver) Focus(ctx context.Context, h engine.ElementHandle) error { return nil }

func (d *FakeDriver) SetSelectionRange(ctx context.Context, h engine.ElementHandle, start, end int) error {
	return nil
}

func (d *FakeDriver) DispatchKeyEvent(ctx context.Context, h engine.ElementHandle, evt engine.KeyEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keyEvents = append(d.keyEvents, KeyEventLog{Type: evt.Type, Key: evt.Key, On: toElem(h)})
	d.modifiers = evt.Modifiers
	return nil
}

func (d *FakeDriver) SetNativeValue(ctx context.Context, h engine.ElementHandle, value string) error {
	toElem(h).Value = value
	return nil
}

func (d *FakeDriver) Value(ctx context.Context, h engine.ElementHandle) (string, error) {
	return toElem(h).Value, nil
}

func (d *FakeDriver) DispatchInputEvent(ctx context.Context, h engine.ElementHandle) error { return nil }
func (d *FakeDriver) DispatchChangeEvent(ctx context.Context, h engine.ElementHandle) error { return nil }

func (d *FakeDriver) Scroll(ctx context.Context, target engine.ElementHandle, dx, dy float64) (engine.Point, engine.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := engine.Point{X: d.scrollX, Y: d.scrollY}
	maxY := d.maxScrollYLocked()
	d.scrollX += dx
	d.scrollY += dy
	if d.scrollY > maxY {
		d.scrollY = maxY
	}
	if d.scrollY < 0 {
		d.scrollY = 0
	}
	after := engine.Point{X: d.scrollX, Y: d.scrollY}
	// Moving elements along with the simulated scroll keeps BoundingBox
	// queries consistent with elementFromPoint after a scroll.
	deltaY := after.Y - before.Y
	for _, el := range d.elements {
		el.Box.Y -= deltaY
	}
	return before, after, nil
}

func (d *FakeDriver) maxScrollYLocked() float64 {
	// The simulated page is 1<<30 px tall for every fixture; there is no
	// per-fixture override.
	return 1 << 30
}

func (d *FakeDriver) ScrollIntoView(ctx context.Context, h engine.ElementHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el := toElem(h)
	// Centre the element vertically in the viewport.
	target := d.viewportH/2 - el.Box.Height/2
	delta := el.Box.Y - target
	for _, e := range d.elements {
		e.Box.Y -= delta
	}
	return nil
}

func (d *FakeDriver) IsScrollable(ctx context.Context, h engine.ElementHandle) (bool, error) {
	return toElem(h).Scrollable, nil
}

func (d *FakeDriver) ViewportSize(ctx context.Context) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewportW, d.viewportH, nil
}

// SetViewport overrides the fake viewport size.
func (d *FakeDriver) SetViewport(w, h float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewportW, d.viewportH = w, h
}

func (d *FakeDriver) SetCursorOverlay(ctx context.Context, on bool) error {
	d.mu.Lock()
	d.overlay = on
	d.mu.Unlock()
	return nil
}

func (d *FakeDriver) RenderCursor(ctx context.Context, at engine.Point, trail []engine.Point) error {
	d.mu.Lock()
	d.cursor = at
	d.mu.Unlock()
	return nil
}

// OverlayEnabled reports the last SetCursorOverlay value, for assertions.
func (d *FakeDriver) OverlayEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlay
}

func (d *FakeDriver) DocumentHTML(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docHTML, nil
}

func (d *FakeDriver) DocumentTitle(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docTitle, nil
}

func (d *FakeDriver) DocumentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docURL, nil
}

// SetDocument seeds the fake document-level fields returned by dom.getHTML.
func (d *FakeDriver) SetDocument(html, title, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docHTML, d.docTitle, d.docURL = html, title, url
}

var _ engine.Driver = (*FakeDriver)(nil)
