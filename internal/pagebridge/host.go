// Purpose: Owns host.go, the browser-native seam (spec §4.2): tabs,
// cookies, screenshot capture, and frame enumeration. In production this is
// satisfied by the extension's own APIs; pagebridge/pagebridgetest backs it
// for tests.
package pagebridge

import "context"

// Tab mirrors the observable fields from spec §3 "Tab".
type Tab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
	WindowID int    `json:"windowId"`
	Index    int    `json:"index"`
}

// Cookie is the subset of cookie fields the broker's cookies.* actions
// expose.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// Frame describes one frame in a tab's frame tree (spec §4.2 "frame
// enumeration").
type Frame struct {
	FrameID  int    `json:"frameId"`
	ParentID int    `json:"parentId"`
	URL      string `json:"url"`
}

// Viewport is the requested browser viewport size for tabs.setViewport.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BrowserHost is the browser-native seam: every operation the page-bridge
// performs using the host's own extension APIs, as opposed to DOM
// operations relayed to the interaction engine.
type BrowserHost interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	Navigate(ctx context.Context, tabID int, url string) error
	CreateTab(ctx context.Context, url string) (Tab, error)
	CloseTab(ctx context.Context, tabID int) error
	ActivateTab(ctx context.Context, tabID int) error
	ReloadTab(ctx context.Context, tabID int) error
	// WaitForNavigation blocks until tabID reports a "complete" load status
	// or the 30s cap from spec §4.2 elapses.
	WaitForNavigation(ctx context.Context, tabID int) error
	SetViewport(ctx context.Context, tabID int, v Viewport) error

	GetAllCookies(ctx context.Context, urlFilter string) ([]Cookie, error)
	SetCookie(ctx context.Context, c Cookie) error

	ListFrames(ctx context.Context, tabID int) ([]Frame, error)

	// CaptureViewport returns a base64-encoded PNG of the visible viewport.
	CaptureViewport(ctx context.Context, tabID int) (string, error)
	// ScrollTo scrolls tabID's document to the given offset. It returns the
	// requested x and the vertical offset held before the scroll, which
	// full-page screenshot capture uses to restore the original position.
	ScrollTo(ctx context.Context, tabID int, x, y float64) (x2, prevY float64, err error)
	// DocumentSize returns scrollHeight/scrollWidth and the device pixel
	// ratio for tabID.
	DocumentSize(ctx context.Context, tabID int) (width, height, devicePixelRatio float64, err error)

	// InjectContentScript loads the interaction-engine content script into
	// tabID's main frame on demand (spec §4.2 path 2, "injected on demand").
	InjectContentScript(ctx context.Context, tabID int) error
	// HasContentScript reports whether tabID's main frame already has a
	// live content script instance.
	HasContentScript(ctx context.Context, tabID int) bool

	// EvaluateInlineScript attempts CSP ladder strategy 1 (spec §4.5):
	// inline <script> injection with attribute pickup.
	EvaluateInlineScript(ctx context.Context, tabID int, fn string, args []any) (any, error)
	// EvaluateScriptingAPI attempts CSP ladder strategy 2: scripting API
	// execution in the page's main world.
	EvaluateScriptingAPI(ctx context.Context, tabID int, fn string, args []any) (any, error)
	// CSPPolicy reports whether the tab's current CSP permits unsafe-inline
	// and/or unsafe-eval, used to fast-fail strategies 1/2 (spec §4.5:
	// "only strict CSP without unsafe-inline or unsafe-eval is fatal").
	CSPPolicy(ctx context.Context, tabID int) (allowsUnsafeInline, allowsUnsafeEval bool, err error)
}
