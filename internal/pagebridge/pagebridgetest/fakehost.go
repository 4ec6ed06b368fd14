// Purpose: Owns fakehost.go, an in-memory pagebridge.BrowserHost fixture for
// tests, mirroring the role internal/engine/enginetest.FakeDriver plays for
// the interaction engine.
package pagebridgetest

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/hugopalma17/human-browser/internal/pagebridge"
)

// FakeHost is a deterministic BrowserHost backed by an in-memory tab table.
type FakeHost struct {
	mu sync.Mutex

	nextTabID int
	tabs      map[int]*pagebridge.Tab
	cookies   []pagebridge.Cookie
	frames    map[int][]pagebridge.Frame
	scripts   map[int]bool

	docWidth, docHeight, dpr float64
	scrollY                  map[int]float64

	AllowUnsafeInline bool
	AllowUnsafeEval   bool

	// EvalResult, when non-nil, is returned by every
	// EvaluateInlineScript/EvaluateScriptingAPI call instead of the default
	// "inline:<fn>"/"scripting:<fn>" placeholder, letting tests simulate a
	// page-world result shaped like a DOM element.
	EvalResult any
}

// New builds a FakeHost with one default tab and a CSP that permits both
// inline scripts and eval (ladder strategies 1 and 2 both succeed by
// default; setting AllowUnsafeInline/AllowUnsafeEval to false exercises the
// fallback chain).
func New() *FakeHost {
	h := &FakeHost{
		tabs:              map[int]*pagebridge.Tab{},
		frames:            map[int][]pagebridge.Frame{},
		scripts:           map[int]bool{},
		scrollY:           map[int]float64{},
		docWidth:          800,
		docHeight:         600,
		dpr:               1,
		AllowUnsafeInline: true,
		AllowUnsafeEval:   true,
	}
	h.nextTabID = 1
	h.tabs[1] = &pagebridge.Tab{ID: 1, URL: "about:blank", Active: true, Index: 0}
	h.frames[1] = []pagebridge.Frame{{FrameID: 0, ParentID: -1, URL: "about:blank"}}
	return h
}

func (h *FakeHost) ListTabs(ctx context.Context) ([]pagebridge.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]pagebridge.Tab, 0, len(h.tabs))
	for _, t := range h.tabs {
		out = append(out, *t)
	}
	return out, nil
}

func (h *FakeHost) Navigate(ctx context.Context, tabID int, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[tabID]
	if !ok {
		return fmt.Errorf("no such tab: %d", tabID)
	}
	t.URL = url
	h.scripts[tabID] = false
	return nil
}

func (h *FakeHost) CreateTab(ctx context.Context, url string) (pagebridge.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextTabID++
	id := h.nextTabID
	t := &pagebridge.Tab{ID: id, URL: url, Index: len(h.tabs)}
	h.tabs[id] = t
	h.frames[id] = []pagebridge.Frame{{FrameID: 0, ParentID: -1, URL: url}}
	return *t, nil
}

func (h *FakeHost) CloseTab(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, tabID)
	delete(h.frames, tabID)
	delete(h.scripts, tabID)
	return nil
}

func (h *FakeHost) ActivateTab(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.tabs {
		t.Active = id == tabID
	}
	return nil
}

func (h *FakeHost) ReloadTab(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts[tabID] = false
	return nil
}

func (h *FakeHost) WaitForNavigation(ctx context.Context, tabID int) error { return nil }

func (h *FakeHost) SetViewport(ctx context.Context, tabID int, v pagebridge.Viewport) error {
	return nil
}

func (h *FakeHost) GetAllCookies(ctx context.Context, urlFilter string) ([]pagebridge.Cookie, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]pagebridge.Cookie, len(h.cookies))
	copy(out, h.cookies)
	return out, nil
}

func (h *FakeHost) SetCookie(ctx context.Context, c pagebridge.Cookie) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cookies = append(h.cookies, c)
	return nil
}

func (h *FakeHost) ListFrames(ctx context.Context, tabID int) ([]pagebridge.Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames[tabID], nil
}

func (h *FakeHost) CaptureViewport(ctx context.Context, tabID int) (string, error) {
	return encodeBlankPNG(int(h.docWidth), 600, color.White), nil
}

func (h *FakeHost) ScrollTo(ctx context.Context, tabID int, x, y float64) (float64, float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.scrollY[tabID]
	if y > h.docHeight {
		y = h.docHeight
	}
	h.scrollY[tabID] = y
	return x, prev, nil
}

func (h *FakeHost) DocumentSize(ctx context.Context, tabID int) (float64, float64, float64, error) {
	return h.docWidth, h.docHeight, h.dpr, nil
}

func (h *FakeHost) InjectContentScript(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts[tabID] = true
	return nil
}

func (h *FakeHost) HasContentScript(ctx context.Context, tabID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scripts[tabID]
}

func (h *FakeHost) EvaluateInlineScript(ctx context.Context, tabID int, fn string, args []any) (any, error) {
	if !h.AllowUnsafeInline {
		return nil, fmt.Errorf("inline script injection blocked by CSP")
	}
	if h.EvalResult != nil {
		return h.EvalResult, nil
	}
	return fmt.Sprintf("inline:%s", fn), nil
}

func (h *FakeHost) EvaluateScriptingAPI(ctx context.Context, tabID int, fn string, args []any) (any, error) {
	if !h.AllowUnsafeEval {
		return nil, fmt.Errorf("scripting API execution blocked by CSP")
	}
	if h.EvalResult != nil {
		return h.EvalResult, nil
	}
	return fmt.Sprintf("scripting:%s", fn), nil
}

func (h *FakeHost) CSPPolicy(ctx context.Context, tabID int) (bool, bool, error) {
	return h.AllowUnsafeInline, h.AllowUnsafeEval, nil
}

func encodeBlankPNG(w, hgt int, c color.Color) string {
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf []byte
	writer := &sliceWriter{buf: &buf}
	_ = png.Encode(writer, img)
	return base64.StdEncoding.EncodeToString(buf)
}

type sliceWriter struct{ buf *[]byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

var _ pagebridge.BrowserHost = (*FakeHost)(nil)
