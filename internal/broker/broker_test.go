package broker

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hugopalma17/human-browser/internal/engine"
	"github.com/hugopalma17/human-browser/internal/engine/enginetest"
	"github.com/hugopalma17/human-browser/internal/pagebridge"
	"github.com/hugopalma17/human-browser/internal/pagebridge/pagebridgetest"
	"github.com/hugopalma17/human-browser/internal/protocol"
)

// testHarness wires a real Broker/Server to an httptest server and a fake
// extension (pagebridge.Client over a FakeHost/FakeDriver), matching spec
// §8's testable properties without a live browser.
type testHarness struct {
	httpServer *httptest.Server
	wsURL      string
	client     *websocket.Conn
	broker     *Broker
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	b := New(protocol.DefaultTuning(), nil)
	srv := NewServer(b, nil)
	httpServer := httptest.NewServer(srv)
	t.Cleanup(httpServer.Close)

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"

	host := pagebridgetest.New()
	driver := enginetest.New()
	eng := engine.New(driver, protocol.DefaultTuning())
	bridge := pagebridge.New(host, func(ctx context.Context, tabID int) (*engine.Engine, error) {
		return eng, nil
	})

	extClient := &pagebridge.Client{BrokerAddr: wsURL, ExtensionID: "test-extension", Bridge: bridge}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go extClient.Run(ctx)

	waitForExtension(t, b)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial broker as client: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testHarness{httpServer: httpServer, wsURL: wsURL, client: conn, broker: b}
}

func waitForExtension(t *testing.T, b *Broker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.Stats().ExtensionConnected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("extension never connected")
}

func (h *testHarness) request(t *testing.T, action string, params any) protocol.Envelope {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	req := protocol.Envelope{ID: "req-1", TabID: 1, Action: action, Params: raw}
	if err := h.client.WriteJSON(req); err != nil {
		t.Fatalf("write request: %v", err)
	}
	_ = h.client.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var resp protocol.Envelope
		if err := h.client.ReadJSON(&resp); err != nil {
			t.Fatalf("read response: %v", err)
		}
		if resp.Classify() == protocol.KindResponse {
			return resp
		}
	}
}

func TestTabsListRoundTripsThroughBrokerAndExtension(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, "tabs.list", map[string]any{})
	if resp.Error != "" {
		t.Fatalf("tabs.list failed: %s", resp.Error)
	}
	var tabs []pagebridge.Tab
	if err := json.Unmarshal(resp.Result, &tabs); err != nil {
		t.Fatalf("unmarshal tabs: %v", err)
	}
	if len(tabs) != 1 {
		t.Fatalf("expected 1 tab, got %d", len(tabs))
	}
}

func TestFrameworkSetConfigRoundTrip(t *testing.T) {
	h := newHarness(t)

	patch := protocol.RuntimeTuning{Click: protocol.ClickTuning{ThinkDelayMinMs: 999}}
	setResp := h.request(t, "framework.setConfig", patch)
	if setResp.Error != "" {
		t.Fatalf("setConfig failed: %s", setResp.Error)
	}

	getResp := h.request(t, "framework.getConfig", map[string]any{})
	if getResp.Error != "" {
		t.Fatalf("getConfig failed: %s", getResp.Error)
	}
	var got protocol.RuntimeTuning
	if err := json.Unmarshal(getResp.Result, &got); err != nil {
		t.Fatalf("unmarshal tuning: %v", err)
	}
	if got.Click.ThinkDelayMinMs != 999 {
		t.Fatalf("expected ThinkDelayMinMs=999 after setConfig round trip, got %d", got.Click.ThinkDelayMinMs)
	}
	want := protocol.DefaultTuning().Click.ThinkDelayMaxMs
	if got.Click.ThinkDelayMaxMs != want {
		t.Fatalf("expected untouched ThinkDelayMaxMs=%d to survive the merge, got %d", want, got.Click.ThinkDelayMaxMs)
	}

	if h.broker.Tuning().Click.ThinkDelayMinMs != 999 {
		t.Fatalf("expected broker's own tuning copy to reflect the runtime setConfig call")
	}
}

func TestUnknownExtensionNotConnectedBeforeHandshake(t *testing.T) {
	b := New(protocol.DefaultTuning(), nil)
	srv := NewServer(b, nil)
	httpServer := httptest.NewServer(srv)
	t.Cleanup(httpServer.Close)
	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	req := protocol.Envelope{ID: "x", Action: "tabs.list"}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp protocol.Envelope
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Error != "extension-not-connected" {
		t.Fatalf("expected extension-not-connected, got %q", resp.Error)
	}
}

func TestClampTimeoutBounds(t *testing.T) {
	cases := []struct {
		timeout float64
		want    time.Duration
	}{
		{0, defaultCommandTimeout},
		{10, minCommandTimeout},
		{1_000_000, maxCommandTimeout},
		{5000, 5 * time.Second},
	}
	for _, c := range cases {
		raw, _ := json.Marshal(map[string]float64{"timeout": c.timeout})
		got := clampTimeout(raw)
		if got != c.want {
			t.Errorf("clampTimeout(%v) = %v, want %v", c.timeout, got, c.want)
		}
	}
}

func TestBroadcastEventReachesClientSession(t *testing.T) {
	h := newHarness(t)

	// The extension-side client never reads its own broadcast events because
	// Broker.BroadcastEvent only iterates b.clients, which never contains the
	// extension session (spec §8 invariant). This test covers the delivery
	// half: it emits an event and confirms the ordinary client receives it;
	// it does not observe the extension side.
	done := make(chan protocol.Envelope, 1)
	go func() {
		_ = h.client.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var env protocol.Envelope
			if err := h.client.ReadJSON(&env); err != nil {
				return
			}
			if env.Classify() == protocol.KindEvent {
				done <- env
				return
			}
		}
	}()

	// Trigger an event from the fake extension side out-of-band by reaching
	// into the broker directly, simulating what a real urlChanged listener
	// would do.
	evt, err := protocol.NewEvent("urlChanged", map[string]string{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	h.broker.BroadcastEvent(evt)

	select {
	case got := <-done:
		if got.Event != "urlChanged" {
			t.Fatalf("expected urlChanged, got %s", got.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never received broadcast event")
	}
}
