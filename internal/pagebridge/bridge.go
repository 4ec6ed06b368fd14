// Purpose: Owns bridge.go, the page-bridge's command dispatch router (spec
// §4.2 "Command dispatch"): maps every incoming request to one of the
// three execution paths (browser-native, tab-scoped DOM, page-world
// evaluation).
package pagebridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hugopalma17/human-browser/internal/engine"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

// EngineFor resolves the interaction engine instance for a tab. It does not
// inject anything itself: when it fails and the tab has no content script,
// dispatchTabScoped injects one and calls EngineFor once more (spec §4.2
// path 2).
type EngineFor func(ctx context.Context, tabID int) (*engine.Engine, error)

// Bridge wires a BrowserHost and an EngineFor resolver into the three-path
// dispatcher. It also owns cursor persistence across navigations.
type Bridge struct {
	Host      BrowserHost
	EngineFor EngineFor
	Cursors   *CursorStore
}

// New builds a Bridge.
func New(host BrowserHost, engineFor EngineFor) *Bridge {
	return &Bridge{Host: host, EngineFor: engineFor, Cursors: NewCursorStore()}
}

// Dispatch routes action to the correct execution path and returns its
// JSON-marshalable result.
func (b *Bridge) Dispatch(ctx context.Context, tabID int, action string, params json.RawMessage) (any, error) {
	switch {
	case protocol.PageWorldEvaluation(action):
		return b.dispatchEvaluation(ctx, tabID, action, params)
	case protocol.TabScoped(action):
		return b.dispatchTabScoped(ctx, tabID, action, params)
	default:
		return b.dispatchBrowserNative(ctx, tabID, action, params)
	}
}

func (b *Bridge) dispatchBrowserNative(ctx context.Context, tabID int, action string, params json.RawMessage) (any, error) {
	switch action {
	case protocol.ActionTabsList:
		return b.Host.ListTabs(ctx)
	case protocol.ActionTabsNavigate:
		var p struct {
			URL string `json:"url"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		if err := b.Host.Navigate(ctx, tabID, p.URL); err != nil {
			return nil, err
		}
		return nil, b.Host.WaitForNavigation(ctx, tabID)
	case protocol.ActionTabsCreate:
		var p struct {
			URL string `json:"url"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return b.Host.CreateTab(ctx, p.URL)
	case protocol.ActionTabsClose:
		return nil, b.Host.CloseTab(ctx, tabID)
	case protocol.ActionTabsActivate:
		return nil, b.Host.ActivateTab(ctx, tabID)
	case protocol.ActionTabsReload:
		if err := b.Host.ReloadTab(ctx, tabID); err != nil {
			return nil, err
		}
		return nil, b.Host.WaitForNavigation(ctx, tabID)
	case protocol.ActionTabsWaitForNav:
		return nil, b.Host.WaitForNavigation(ctx, tabID)
	case protocol.ActionTabsSetViewport:
		var v Viewport
		if err := unmarshal(params, &v); err != nil {
			return nil, err
		}
		return nil, b.Host.SetViewport(ctx, tabID, v)
	case protocol.ActionTabsScreenshot:
		var p struct {
			FullPage bool `json:"fullPage"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		b64, err := Screenshot(ctx, b.Host, tabID, p.FullPage)
		if err != nil {
			return nil, err
		}
		return map[string]string{"image": b64}, nil
	case protocol.ActionCookiesGetAll:
		var p struct {
			URL string `json:"url"`
		}
		_ = unmarshal(params, &p)
		return b.Host.GetAllCookies(ctx, p.URL)
	case protocol.ActionCookiesSet:
		var c Cookie
		if err := unmarshal(params, &c); err != nil {
			return nil, err
		}
		return nil, b.Host.SetCookie(ctx, c)
	case protocol.ActionFramesList:
		return b.Host.ListFrames(ctx, tabID)
	case protocol.ActionCursorGetPosition:
		return b.Cursors.Get(tabID), nil
	case protocol.ActionCursorReportPosition:
		var p engine.Point
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		b.Cursors.Report(tabID, p)
		return nil, nil
	default:
		return nil, protocol.NewError(protocol.CodeUnknownAction, "unknown action: "+action)
	}
}

// dispatchTabScoped forwards dom.*/human.*/framework.* actions to the
// target tab's content script, injecting one on demand and retrying once
// (spec §4.2 path 2).
func (b *Bridge) dispatchTabScoped(ctx context.Context, tabID int, action string, params json.RawMessage) (any, error) {
	eng, err := b.EngineFor(ctx, tabID)
	if err != nil {
		if !b.Host.HasContentScript(ctx, tabID) {
			if injErr := b.Host.InjectContentScript(ctx, tabID); injErr != nil {
				return nil, injErr
			}
			eng, err = b.EngineFor(ctx, tabID)
		}
		if err != nil {
			return nil, err
		}
	}
	eng.SetCursorPosition(b.Cursors.Get(tabID))
	result, err := dispatchEngine(ctx, eng, action, params)
	b.Cursors.Report(tabID, eng.CursorPosition())
	return result, err
}

// dispatchEvaluation executes dom.evaluate/elementEvaluate/evaluateHandle
// through the CSP fallback ladder (spec §4.5). elementEvaluate additionally
// resolves a target element and passes its handle id as fn's first argument;
// evaluateHandle detects an element-shaped result and registers it in the
// tab's handle registry instead of returning it raw.
func (b *Bridge) dispatchEvaluation(ctx context.Context, tabID int, action string, params json.RawMessage) (any, error) {
	var p struct {
		HandleID string `json:"handleId"`
		Selector string `json:"selector"`
		Fn       string `json:"fn"`
		Args     []any  `json:"args"`
	}
	if err := unmarshal(params, &p); err != nil {
		return nil, err
	}

	args := p.Args
	if action == protocol.ActionDOMElementEvaluate {
		marker, err := b.resolveEvaluationTarget(ctx, tabID, p.HandleID, p.Selector)
		if err != nil {
			return nil, err
		}
		// A real content script marks the target with a unique data-attribute
		// and passes that marker through so the injected/scripted strategies
		// can find the element again across the CSP boundary; the handle id
		// already uniquely identifies it within this tab, so it stands in for
		// that marker here.
		args = append([]any{marker}, args...)
	}

	isolated := func(ctx context.Context, fn string, args []any) (any, error) {
		eng, err := b.EngineFor(ctx, tabID)
		if err != nil {
			return nil, err
		}
		// There is no isolated-world executor here: the engine exposes no way
		// to run fn, so this fallback always fails and a request that reaches
		// strategy 3 returns evaluate-failed-all-worlds.
		_ = eng
		return nil, protocol.NewError(protocol.CodeEvaluateFailedAllWorlds, "isolated-world evaluation requires page globals: "+fn)
	}

	result, err := Evaluate(ctx, b.Host, tabID, p.Fn, args, isolated)
	if err != nil {
		return nil, err
	}

	if action == protocol.ActionDOMEvaluateHandle {
		if data, ok := elementShapedResult(result); ok {
			eng, err := b.EngineFor(ctx, tabID)
			if err != nil {
				return nil, err
			}
			id := eng.StoreHandle(evaluatedElementHandle{data: data})
			return map[string]any{"type": "element", "handleId": id}, nil
		}
	}

	return result, nil
}

// resolveEvaluationTarget resolves dom.elementEvaluate's target through the
// tab's handle registry, handleId winning over selector (spec §4.3).
func (b *Bridge) resolveEvaluationTarget(ctx context.Context, tabID int, handleID, selector string) (string, error) {
	if handleID == "" && selector == "" {
		return "", protocol.NewError(protocol.CodeInvalidParams, "elementEvaluate requires handleId or selector")
	}
	eng, err := b.EngineFor(ctx, tabID)
	if err != nil {
		return "", err
	}
	if handleID != "" {
		if _, err := eng.GetHandle(handleID); err != nil {
			return "", err
		}
		return handleID, nil
	}
	id, ok, err := eng.QuerySelector(ctx, selector, "")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", protocol.NewError(protocol.CodeElementNotFound, "no element matches selector: "+selector)
	}
	return id, nil
}

// elementShapedResult reports whether a page-world evaluation result looks
// like a DOM element reference rather than a plain value (spec §4.5:
// "evaluateHandle detects DOM-element results"). The fake host and a real
// content script both signal this with an "__element" marker key on the
// returned object.
func elementShapedResult(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if marked, _ := m["__element"].(bool); !marked {
		return nil, false
	}
	return m, true
}

// evaluatedElementHandle wraps an evaluation result detected as a DOM
// element so it can be stored in the handle registry (spec §4.5
// evaluateHandle returns {type:"element", handleId} instead of a raw
// value). It is always considered alive: the underlying page-world element
// has no weak reference to poll from outside the content script.
type evaluatedElementHandle struct {
	data map[string]any
}

func (evaluatedElementHandle) Alive() bool { return true }

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return protocol.NewError(protocol.CodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}
