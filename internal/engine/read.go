// Purpose: Owns read.go, the read-only and simple-write DOM actions from
// spec §4.3 "Read-only actions": selector queries, attribute/property
// reads, handle-returning summaries, and the non-human mouseMoveTo/focus/
// setValue writes.
package engine

import (
	"context"
	"strings"
	"time"
)

const defaultElementHTMLLimit = 5000

// QuerySelector resolves a single element and mints a handle for it.
func (e *Engine) QuerySelector(ctx context.Context, selector string, within string) (string, bool, error) {
	var withinEl ElementHandle
	if within != "" {
		el, err := e.GetHandle(within)
		if err != nil {
			return "", false, err
		}
		withinEl = el
	}
	el, ok, err := e.driver.QuerySelector(ctx, selector, withinEl)
	if err != nil || !ok {
		return "", false, err
	}
	return e.StoreHandle(el), true, nil
}

// QuerySelectorAll resolves every matching element and mints a handle for
// each.
func (e *Engine) QuerySelectorAll(ctx context.Context, selector string, within string) ([]string, error) {
	var withinEl ElementHandle
	if within != "" {
		el, err := e.GetHandle(within)
		if err != nil {
			return nil, err
		}
		withinEl = el
	}
	els, err := e.driver.QuerySelectorAll(ctx, selector, withinEl)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(els))
	for i, el := range els {
		ids[i] = e.StoreHandle(el)
	}
	return ids, nil
}

// WaitForSelector polls via the driver until selector matches or timeout
// elapses; on timeout it returns the null sentinel, never an error.
func (e *Engine) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (string, bool, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond
	for {
		el, ok, err := e.driver.QuerySelector(ctx, selector, nil)
		if err != nil {
			return "", false, err
		}
		if ok {
			return e.StoreHandle(el), true, nil
		}
		if time.Now().After(deadline) {
			return "", false, nil
		}
		sleep(ctx, pollInterval)
		if ctx.Err() != nil {
			return "", false, nil
		}
	}
}

// BoundingBox returns the resolved element's layout box.
func (e *Engine) BoundingBox(ctx context.Context, handleID string) (Rect, bool, error) {
	el, err := e.GetHandle(handleID)
	if err != nil {
		return Rect{}, false, err
	}
	return e.driver.BoundingBox(ctx, el)
}

// GetAttribute reads a named attribute off the resolved element.
func (e *Engine) GetAttribute(ctx context.Context, handleID, name string) (string, bool, error) {
	el, err := e.GetHandle(handleID)
	if err != nil {
		return "", false, err
	}
	return e.driver.Attribute(ctx, el, name)
}

// GetProperty reads a named JS property off the resolved element.
func (e *Engine) GetProperty(ctx context.Context, handleID, name string) (any, error) {
	el, err := e.GetHandle(handleID)
	if err != nil {
		return nil, err
	}
	return e.driver.Property(ctx, el, name)
}

// DocumentInfo is the structured result of dom.getHTML.
type DocumentInfo struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// GetHTML returns the isolated-world view of the document, immune to page
// CSP (spec §4.3 "Read-only actions").
func (e *Engine) GetHTML(ctx context.Context) (DocumentInfo, error) {
	html, err := e.driver.DocumentHTML(ctx)
	if err != nil {
		return DocumentInfo{}, err
	}
	title, err := e.driver.DocumentTitle(ctx)
	if err != nil {
		return DocumentInfo{}, err
	}
	url, err := e.driver.DocumentURL(ctx)
	if err != nil {
		return DocumentInfo{}, err
	}
	return DocumentInfo{HTML: html, Title: title, URL: url}, nil
}

// ElementHTML returns the resolved element's outer HTML truncated to limit
// characters (default 5000).
func (e *Engine) ElementHTML(ctx context.Context, handleID string, limit int) (string, error) {
	el, err := e.GetHandle(handleID)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = defaultElementHTMLLimit
	}
	return e.driver.OuterHTML(ctx, el, limit)
}

// QueryAllInfo returns a short summary for every element matching selector,
// each carrying a freshly minted handle (spec: "{handleId, tag, id, cls,
// text, label}").
func (e *Engine) QueryAllInfo(ctx context.Context, selector string) ([]ElementInfo, error) {
	els, err := e.driver.QuerySelectorAll(ctx, selector, nil)
	if err != nil {
		return nil, err
	}
	infos := make([]ElementInfo, 0, len(els))
	for _, el := range els {
		tag, err := e.driver.Tag(ctx, el)
		if err != nil {
			return nil, err
		}
		id, _, err := e.driver.Attribute(ctx, el, "id")
		if err != nil {
			return nil, err
		}
		classes, err := e.driver.ClassList(ctx, el)
		if err != nil {
			return nil, err
		}
		label, _, err := e.driver.Attribute(ctx, el, "aria-label")
		if err != nil {
			return nil, err
		}
		text, _ := e.driver.Property(ctx, el, "textContent")
		textStr, _ := text.(string)
		infos = append(infos, ElementInfo{
			HandleID: e.StoreHandle(el),
			Tag:      tag,
			ID:       id,
			Class:    strings.Join(classes, " "),
			Text:     truncate(textStr, 200),
			Label:    label,
		})
	}
	return infos, nil
}

// BatchQuery reports, for each selector in selectors, whether it currently
// matches any element.
func (e *Engine) BatchQuery(ctx context.Context, selectors []string) (map[string]bool, error) {
	result := make(map[string]bool, len(selectors))
	for _, sel := range selectors {
		_, ok, err := e.driver.QuerySelector(ctx, sel, nil)
		if err != nil {
			return nil, err
		}
		result[sel] = ok
	}
	return result, nil
}

// FindScrollable returns handles for every element whose scrollHeight
// exceeds clientHeight by more than 20px with non-visible overflow. The
// Driver is expected to implement that predicate inside IsScrollable.
func (e *Engine) FindScrollable(ctx context.Context) ([]string, error) {
	els, err := e.driver.QuerySelectorAll(ctx, "*", nil)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, el := range els {
		scrollable, err := e.driver.IsScrollable(ctx, el)
		if err != nil {
			return nil, err
		}
		if scrollable {
			ids = append(ids, e.StoreHandle(el))
		}
	}
	return ids, nil
}

// DiscoverElements returns a categorised, CSP-safe inventory of links,
// buttons, and form inputs with derived short selectors and handles.
func (e *Engine) DiscoverElements(ctx context.Context) (map[string][]ElementInfo, error) {
	categories := map[string]string{
		"links":   "a[href]",
		"buttons": "button, [role=button], input[type=button], input[type=submit]",
		"inputs":  "input, textarea, select",
	}
	out := make(map[string][]ElementInfo, len(categories))
	for category, selector := range categories {
		infos, err := e.QueryAllInfo(ctx, selector)
		if err != nil {
			return nil, err
		}
		out[category] = infos
	}
	return out, nil
}

// MouseMoveTo dispatches a raw (non-human) mousemove to absolute
// coordinates.
func (e *Engine) MouseMoveTo(ctx context.Context, x, y float64) error {
	if _, err := e.driver.DispatchMouseEvent(ctx, MouseMove, x, y, ButtonLeft); err != nil {
		return err
	}
	e.SetCursorPosition(Point{X: x, Y: y})
	return nil
}

// Focus focuses the resolved element without running the human pipeline.
func (e *Engine) Focus(ctx context.Context, handleID, selector string) error {
	el, err := e.resolveTarget(ctx, handleID, selector)
	if err != nil {
		return err
	}
	return e.driver.Focus(ctx, el)
}

// SetValue writes a value directly via the native setter, bypassing the
// human-type pipeline (used by callers that don't need realistic timing).
func (e *Engine) SetValue(ctx context.Context, handleID, selector, value string) error {
	el, err := e.resolveTarget(ctx, handleID, selector)
	if err != nil {
		return err
	}
	if err := e.driver.SetNativeValue(ctx, el, value); err != nil {
		return err
	}
	return e.driver.DispatchInputEvent(ctx, el)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
