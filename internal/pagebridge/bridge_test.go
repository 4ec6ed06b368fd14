package pagebridge_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hugopalma17/human-browser/internal/engine"
	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
	"github.com/hugopalma17/human-browser/internal/pagebridge"
	"github.com/hugopalma17/human-browser/internal/pagebridge/pagebridgetest"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

func newBridgeHarness() (*pagebridge.Bridge, *pagebridgetest.FakeHost, *engine.Engine) {
	host := pagebridgetest.New()
	driver := enginetest.New()
	eng := engine.New(driver, protocol.DefaultTuning())
	bridge := pagebridge.New(host, func(ctx context.Context, tabID int) (*engine.Engine, error) {
		return eng, nil
	})
	return bridge, host, eng
}

func TestEvaluateHandleRegistersElementShapedResult(t *testing.T) {
	bridge, host, eng := newBridgeHarness()
	host.EvalResult = map[string]any{"__element": true, "tag": "DIV"}

	params, _ := json.Marshal(map[string]any{"fn": "el => el"})
	result, err := bridge.Dispatch(context.Background(), 1, protocol.ActionDOMEvaluateHandle, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected a handle descriptor, got %#v", result)
	}
	if desc["type"] != "element" {
		t.Fatalf("expected type=element, got %v", desc["type"])
	}
	id, _ := desc["handleId"].(string)
	if id == "" {
		t.Fatal("expected a non-empty handleId")
	}
	if _, err := eng.GetHandle(id); err != nil {
		t.Fatalf("handleId %q not registered: %v", id, err)
	}
}

func TestEvaluateHandlePassesThroughPlainValue(t *testing.T) {
	bridge, _, _ := newBridgeHarness()

	params, _ := json.Marshal(map[string]any{"fn": "() => 42"})
	result, err := bridge.Dispatch(context.Background(), 1, protocol.ActionDOMEvaluateHandle, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "inline:() => 42" {
		t.Fatalf("expected plain value to pass through unchanged, got %#v", result)
	}
}

type argCapturingHost struct {
	*pagebridgetest.FakeHost
	gotArgs []any
}

func (h *argCapturingHost) EvaluateInlineScript(ctx context.Context, tabID int, fn string, args []any) (any, error) {
	h.gotArgs = args
	return h.FakeHost.EvaluateInlineScript(ctx, tabID, fn, args)
}

func TestElementEvaluatePassesResolvedHandleAsFirstArg(t *testing.T) {
	driver := enginetest.New()
	el := enginetest.NewElem("div")
	el.ID = "target"
	driver.Add(el)

	eng := engine.New(driver, protocol.DefaultTuning())
	host := &argCapturingHost{FakeHost: pagebridgetest.New()}
	bridge := pagebridge.New(host, func(ctx context.Context, tabID int) (*engine.Engine, error) {
		return eng, nil
	})

	params, _ := json.Marshal(map[string]any{"selector": "#target", "fn": "el => el.tagName", "args": []any{"extra"}})
	_, err := bridge.Dispatch(context.Background(), 1, protocol.ActionDOMElementEvaluate, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(host.gotArgs) != 2 {
		t.Fatalf("expected marker prepended to args, got %v", host.gotArgs)
	}
	marker, ok := host.gotArgs[0].(string)
	if !ok || marker == "" {
		t.Fatalf("expected a non-empty marker as first arg, got %#v", host.gotArgs[0])
	}
	if host.gotArgs[1] != "extra" {
		t.Fatalf("expected original arg preserved after marker, got %#v", host.gotArgs[1])
	}
}

func TestElementEvaluateRequiresHandleOrSelector(t *testing.T) {
	bridge, _, _ := newBridgeHarness()

	params, _ := json.Marshal(map[string]any{"fn": "el => el"})
	_, err := bridge.Dispatch(context.Background(), 1, protocol.ActionDOMElementEvaluate, params)
	if err == nil {
		t.Fatal("expected an error when neither handleId nor selector is given")
	}
}
