// Purpose: Owns actions.go, the mapping from wire action names to
// interaction-engine method calls for tab-scoped dom.*/human.*/
// framework.* actions.
package pagebridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hugopalma17/human-browser/internal/engine"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

// dispatchEngine maps one tab-scoped action onto the given engine instance.
func dispatchEngine(ctx context.Context, eng *engine.Engine, action string, params json.RawMessage) (any, error) {
	switch action {
	case protocol.ActionDOMQuerySelector, protocol.ActionDOMQuerySelectorWithin:
		var p struct {
			Selector string `json:"selector"`
			Within   string `json:"within"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		handleID, ok, err := eng.QuerySelector(ctx, p.Selector, p.Within)
		if err != nil {
			return nil, err
		}
		if !ok {
			return map[string]any{"handleId": nil}, nil
		}
		return map[string]any{"handleId": handleID}, nil

	case protocol.ActionDOMQuerySelectorAll, protocol.ActionDOMQuerySelectorAllWithin:
		var p struct {
			Selector string `json:"selector"`
			Within   string `json:"within"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		ids, err := eng.QuerySelectorAll(ctx, p.Selector, p.Within)
		return map[string]any{"handleIds": ids}, err

	case protocol.ActionDOMWaitForSelector:
		var p struct {
			Selector string `json:"selector"`
			TimeoutMs int   `json:"timeout"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		timeout := time.Duration(p.TimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		handleID, ok, err := eng.WaitForSelector(ctx, p.Selector, timeout)
		if err != nil {
			return nil, err
		}
		if !ok {
			return map[string]any{"handleId": nil}, nil
		}
		return map[string]any{"handleId": handleID}, nil

	case protocol.ActionDOMBoundingBox:
		var p struct{ HandleID string `json:"handleId"` }
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		box, ok, err := eng.BoundingBox(ctx, p.HandleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, protocol.NewError(protocol.CodeElementNotFound, "element has no bounding box")
		}
		return box, nil

	case protocol.ActionDOMGetAttribute:
		var p struct {
			HandleID string `json:"handleId"`
			Name     string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		val, ok, err := eng.GetAttribute(ctx, p.HandleID, p.Name)
		return map[string]any{"value": val, "present": ok}, err

	case protocol.ActionDOMGetProperty:
		var p struct {
			HandleID string `json:"handleId"`
			Name     string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		val, err := eng.GetProperty(ctx, p.HandleID, p.Name)
		return map[string]any{"value": val}, err

	case protocol.ActionDOMGetHTML:
		return eng.GetHTML(ctx)

	case protocol.ActionDOMElementHTML:
		var p struct {
			HandleID string `json:"handleId"`
			Limit    int    `json:"limit"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		html, err := eng.ElementHTML(ctx, p.HandleID, p.Limit)
		return map[string]string{"html": html}, err

	case protocol.ActionDOMQueryAllInfo:
		var p struct{ Selector string `json:"selector"` }
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.QueryAllInfo(ctx, p.Selector)

	case protocol.ActionDOMBatchQuery:
		var p struct{ Selectors []string `json:"selectors"` }
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.BatchQuery(ctx, p.Selectors)

	case protocol.ActionDOMFindScrollable:
		ids, err := eng.FindScrollable(ctx)
		return map[string]any{"handleIds": ids}, err

	case protocol.ActionDOMDiscoverElements:
		return eng.DiscoverElements(ctx)

	case protocol.ActionDOMClick, protocol.ActionHumanClick:
		var p clickRequest
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.Click(ctx, protocol.AvoidRuleset{}, p.toParams())

	case protocol.ActionDOMMouseMoveTo:
		var p struct{ X, Y float64 }
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.MouseMoveTo(ctx, p.X, p.Y)

	case protocol.ActionDOMFocus:
		var p struct {
			HandleID string `json:"handleId"`
			Selector string `json:"selector"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.Focus(ctx, p.HandleID, p.Selector)

	case protocol.ActionDOMType, protocol.ActionHumanType:
		var p typeRequest
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.Type(ctx, protocol.AvoidRuleset{}, p.toParams())

	case protocol.ActionDOMKeyPress:
		var p keyRequest
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.KeyPress(ctx, p.toAction())

	case protocol.ActionDOMKeyDown:
		var p keyRequest
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.KeyDown(ctx, p.toAction())

	case protocol.ActionDOMKeyUp:
		var p keyRequest
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.KeyUp(ctx, p.toAction())

	case protocol.ActionDOMScroll:
		var p struct {
			HandleID string  `json:"handleId"`
			Selector string  `json:"selector"`
			DX       float64 `json:"dx"`
			DY       float64 `json:"dy"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.DOMScroll(ctx, p.HandleID, p.Selector, p.DX, p.DY)

	case protocol.ActionDOMSetValue:
		var p struct {
			HandleID string `json:"handleId"`
			Selector string `json:"selector"`
			Value    string `json:"value"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.SetValue(ctx, p.HandleID, p.Selector, p.Value)

	case protocol.ActionDOMSetDebug:
		var p struct{ On bool `json:"on"` }
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, eng.SetDebug(ctx, p.On)

	case protocol.ActionHumanScroll:
		var p struct {
			HandleID string `json:"handleId"`
			Selector string `json:"selector"`
			Amount   int    `json:"amount"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.Scroll(ctx, engine.ScrollParams{HandleID: p.HandleID, Selector: p.Selector, Amount: p.Amount})

	case protocol.ActionHumanClearInput:
		var p struct {
			HandleID string `json:"handleId"`
			Selector string `json:"selector"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return eng.ClearInput(ctx, protocol.AvoidRuleset{}, engine.ClearParams{HandleID: p.HandleID, Selector: p.Selector})

	case protocol.ActionFrameworkSetConfig:
		var tuning protocol.RuntimeTuning
		if err := unmarshal(params, &tuning); err != nil {
			return nil, err
		}
		eng.Reconfigure(tuning)
		return nil, nil

	case protocol.ActionFrameworkGetConfig:
		return eng.Tuning(), nil

	case protocol.ActionFrameworkReload:
		return nil, nil

	default:
		return nil, protocol.NewError(protocol.CodeUnknownAction, "unknown action: "+action)
	}
}

type clickRequest struct {
	HandleID   string `json:"handleId"`
	Selector   string `json:"selector"`
	ClickCount int    `json:"clickCount"`
	Config     struct {
		Avoid protocol.AvoidRuleset `json:"avoid"`
		Click protocol.ClickTuning  `json:"click"`
	} `json:"config"`
}

func (r clickRequest) toParams() engine.ClickParams {
	cc := r.ClickCount
	if cc == 0 {
		cc = 1
	}
	return engine.ClickParams{HandleID: r.HandleID, Selector: r.Selector, ClickCount: cc, Avoid: r.Config.Avoid, Tuning: r.Config.Click}
}

type typeRequest struct {
	HandleID string `json:"handleId"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Config   struct {
		Avoid protocol.AvoidRuleset `json:"avoid"`
		Click protocol.ClickTuning  `json:"click"`
		Type  protocol.TypeTuning   `json:"type"`
	} `json:"config"`
}

func (r typeRequest) toParams() engine.TypeParams {
	return engine.TypeParams{HandleID: r.HandleID, Selector: r.Selector, Text: r.Text, Avoid: r.Config.Avoid, Click: r.Config.Click, Tuning: r.Config.Type}
}

type keyRequest struct {
	HandleID string `json:"handleId"`
	Selector string `json:"selector"`
	Key      string `json:"key"`
}

func (r keyRequest) toAction() engine.KeyAction {
	return engine.KeyAction{HandleID: r.HandleID, Selector: r.Selector, Key: r.Key}
}
