// Purpose: Owns broker.go, the duplex WebSocket relay (spec §4.1): accepts
// exactly one extension session and any number of client sessions,
// multiplexes requests, injects runtime tuning, fans out events, and keeps
// the extension connection alive. All shared state here is guarded by one
// mutex, modeling the single-threaded event loop the spec describes (§5
// "an implementation using OS threads must serialise all access with a
// single mutex equivalent").
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hugopalma17/human-browser/internal/protocol"
)

const (
	defaultCommandTimeout = 30 * time.Second
	minCommandTimeout     = 100 * time.Millisecond
	maxCommandTimeout     = 60 * time.Second
	deadlineBuffer        = 2 * time.Second
	keepaliveInterval     = 20 * time.Second
)

// pendingRequest is the broker's bookkeeping record for one in-flight
// client request (spec §4.1 "Request multiplexing").
type pendingRequest struct {
	clientSession *session
	clientID      string
	action        string
	timer         *time.Timer
}

// Broker is the loopback WebSocket relay described by spec §4.1.
type Broker struct {
	mu sync.Mutex

	extension   *session
	extVersion  string
	clients     map[string]*session
	pending     map[string]*pendingRequest

	tuning protocol.RuntimeTuning

	limiter *RateLimiter
	log     *zap.SugaredLogger

	stats Stats

	keepaliveStop chan struct{}
	keepaliveDone chan struct{}
}

// Stats is the snapshot exposed by the optional /health endpoint.
type Stats struct {
	RequestCount        int64     `json:"requestCount"`
	InFlightCount       int       `json:"inFlightCount"`
	ClientCount         int       `json:"clientCount"`
	ExtensionConnected  bool      `json:"extensionConnected"`
	LastHandshakeAt     time.Time `json:"lastHandshakeAt,omitempty"`
}

// New builds a Broker with the given initial tuning.
func New(tuning protocol.RuntimeTuning, log *zap.SugaredLogger) *Broker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Broker{
		clients:  make(map[string]*session),
		pending:  make(map[string]*pendingRequest),
		tuning:   tuning,
		limiter:  NewRateLimiter(),
		log:      log,
	}
}

// HandleHandshake registers s as the new extension session, superseding any
// previous one. Outstanding requests against the superseded session fail
// with extension-disconnected (spec §4.1 "Role").
func (b *Broker) HandleHandshake(s *session, version string) *ExtensionHandle {
	b.mu.Lock()
	prev := b.extension
	b.extension = s
	b.extVersion = version
	b.stats.ExtensionConnected = true
	b.stats.LastHandshakeAt = now()
	toFail := b.drainPendingLocked()
	b.mu.Unlock()

	if prev != nil {
		b.log.Infow("[broker] extension session superseded", "previousID", prev.id)
		prev.close()
	}
	if version != "" && version != protocol.CurrentVersion {
		b.log.Warnw("[broker] protocol version mismatch", "extensionVersion", version, "brokerVersion", protocol.CurrentVersion)
	}
	for _, p := range toFail {
		b.failPending(p, "Extension disconnected")
	}

	return &ExtensionHandle{broker: b, session: s}
}

// ExtensionHandle is the broker's view of the live extension connection,
// used to detect disconnects and route inbound frames from it.
type ExtensionHandle struct {
	broker  *Broker
	session *session
}

// HandleFrame routes one frame read from the extension connection: a
// response completes its matching pending request, an event fans out to
// every client, anything else is dropped silently (spec §4.1 "Failure
// semantics").
func (h *ExtensionHandle) HandleFrame(env protocol.Envelope) {
	switch env.Classify() {
	case protocol.KindResponse:
		h.broker.Complete(env.ID, env)
	case protocol.KindEvent:
		h.broker.BroadcastEvent(env)
	}
}

// HandleDisconnect fails all pending requests and clears the extension
// session if h is still current.
func (h *ExtensionHandle) HandleDisconnect() {
	b := h.broker
	b.mu.Lock()
	if b.extension != h.session {
		b.mu.Unlock()
		return
	}
	b.extension = nil
	b.stats.ExtensionConnected = false
	toFail := b.drainPendingLocked()
	b.mu.Unlock()

	for _, p := range toFail {
		b.failPending(p, "Extension disconnected")
	}
}

func (b *Broker) drainPendingLocked() []*pendingRequest {
	out := make([]*pendingRequest, 0, len(b.pending))
	for id, p := range b.pending {
		out = append(out, p)
		delete(b.pending, id)
	}
	return out
}

func (b *Broker) failPending(p *pendingRequest, message string) {
	p.timer.Stop()
	resp := protocol.NewErrorResponse(p.clientID, message)
	if err := p.clientSession.writeJSON(resp); err != nil {
		b.log.Debugw("[broker] failed writing error response to disconnected client", "error", err)
	}
}

// RegisterClient admits a new client session.
func (b *Broker) RegisterClient(s *session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[s.id] = s
	b.stats.ClientCount = len(b.clients)
}

// UnregisterClient removes a disconnected client session.
func (b *Broker) UnregisterClient(s *session) {
	b.mu.Lock()
	delete(b.clients, s.id)
	b.stats.ClientCount = len(b.clients)
	b.mu.Unlock()
	b.limiter.Forget(s.id)
}

// HandleRequest processes one client request: clamps its deadline, injects
// tuning, assigns a broker-local correlation id, and forwards it to the
// extension. Fails immediately with extension-not-connected if no
// extension session exists (spec §4.1 "Failure semantics").
func (b *Broker) HandleRequest(ctx context.Context, client *session, req protocol.Envelope) {
	if !b.limiter.Allow(client.id) {
		_ = client.writeJSON(protocol.NewErrorResponse(req.ID, "rate-limited"))
		return
	}

	if req.Action == protocol.ActionFrameworkSetConfig {
		var patch protocol.RuntimeTuning
		if err := json.Unmarshal(req.Params, &patch); err != nil {
			_ = client.writeJSON(protocol.NewErrorResponse(req.ID, fmt.Sprintf("invalid-params: %v", err)))
			return
		}
		// The broker owns the tuning record injected into every dom.*/
		// human.* command (spec §3, §4.1 "Tuning injection"); update it here
		// so later injection reflects this call immediately, independent of
		// whether the forwarded request below reaches an engine.
		b.SetTuning(b.Tuning().Merge(patch))
	}

	b.mu.Lock()
	ext := b.extension
	if ext == nil {
		b.mu.Unlock()
		_ = client.writeJSON(protocol.NewErrorResponse(req.ID, "extension-not-connected"))
		return
	}

	brokerID := uuid.NewString()
	deadline := clampTimeout(req.Params)
	enriched, err := injectTuning(req, b.tuning)
	if err != nil {
		b.mu.Unlock()
		_ = client.writeJSON(protocol.NewErrorResponse(req.ID, fmt.Sprintf("invalid-params: %v", err)))
		return
	}
	enriched.ID = brokerID

	timer := time.AfterFunc(deadline+deadlineBuffer, func() {
		b.timeoutRequest(brokerID)
	})
	b.pending[brokerID] = &pendingRequest{clientSession: client, clientID: req.ID, action: req.Action, timer: timer}
	b.stats.RequestCount++
	b.stats.InFlightCount = len(b.pending)
	b.mu.Unlock()

	if err := ext.writeJSON(enriched); err != nil {
		b.Complete(brokerID, protocol.Envelope{Error: err.Error()})
	}
}

// Complete resolves a pending request by broker id, matching it back to
// the originating client and forwarding the result (spec §4.1 "Request
// multiplexing"). Late replies with no matching record are dropped
// silently (spec §4.1 "Failure semantics").
func (b *Broker) Complete(brokerID string, resp protocol.Envelope) {
	b.mu.Lock()
	p, ok := b.pending[brokerID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.pending, brokerID)
	b.stats.InFlightCount = len(b.pending)
	b.mu.Unlock()

	p.timer.Stop()
	resp.ID = p.clientID
	_ = p.clientSession.writeJSON(resp)
}

func (b *Broker) timeoutRequest(brokerID string) {
	b.mu.Lock()
	p, ok := b.pending[brokerID]
	if ok {
		delete(b.pending, brokerID)
		b.stats.InFlightCount = len(b.pending)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	p.timer.Stop()
	_ = p.clientSession.writeJSON(protocol.NewErrorResponse(p.clientID, "command-timeout"))
}

// BroadcastEvent fans an extension-originated event out to every connected
// client session (spec §4.1 "Event fan-out"). Never delivered to the
// extension itself (spec §8 invariant).
func (b *Broker) BroadcastEvent(evt protocol.Envelope) {
	b.mu.Lock()
	targets := make([]*session, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.Unlock()

	for _, c := range targets {
		if err := c.writeJSON(evt); err != nil {
			b.log.Debugw("[broker] dropping event to disconnected client", "error", err)
		}
	}
}

// SetTuning replaces the current runtime tuning record wholesale (used by
// framework.setConfig handling at the broker layer, distinct from the
// engine's own copy).
func (b *Broker) SetTuning(t protocol.RuntimeTuning) {
	b.mu.Lock()
	b.tuning = t
	b.mu.Unlock()
}

// Tuning returns a copy of the current runtime tuning record.
func (b *Broker) Tuning() protocol.RuntimeTuning {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tuning
}

// Stats returns a snapshot for the /health endpoint.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// clampTimeout reads params.timeout (if present) and clamps it to
// [100ms, 60000ms], defaulting to 30000ms (spec §4.1 "Timeout policy").
func clampTimeout(params json.RawMessage) time.Duration {
	var p struct {
		Timeout float64 `json:"timeout"`
	}
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}
	if p.Timeout <= 0 {
		return defaultCommandTimeout
	}
	d := time.Duration(p.Timeout) * time.Millisecond
	if d < minCommandTimeout {
		return minCommandTimeout
	}
	if d > maxCommandTimeout {
		return maxCommandTimeout
	}
	return d
}

// injectTuning attaches __frameworkConfig for dom.*/human.* actions and
// merges avoid rules plus behaviour defaults for human.* actions (spec
// §4.1 "Tuning injection").
func injectTuning(req protocol.Envelope, tuning protocol.RuntimeTuning) (protocol.Envelope, error) {
	if !protocol.NeedsTuning(req.Action) {
		return req, nil
	}

	var params map[string]json.RawMessage
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return req, err
		}
	} else {
		params = make(map[string]json.RawMessage)
	}

	cfgRaw, err := json.Marshal(tuning)
	if err != nil {
		return req, err
	}
	params["__frameworkConfig"] = cfgRaw

	if protocol.NeedsAvoidMerge(req.Action) {
		var existing struct {
			Config struct {
				Avoid protocol.AvoidRuleset `json:"avoid"`
			} `json:"config"`
		}
		if raw, ok := params["config"]; ok {
			_ = json.Unmarshal(raw, &existing)
		}
		merged := tuning.Avoid.Union(existing.Config.Avoid)

		configMap := map[string]any{
			"avoid": merged,
			"click": tuning.Click,
			"type":  tuning.Type,
			"scroll": tuning.Scroll,
		}
		if raw, ok := params["config"]; ok {
			var overlay map[string]json.RawMessage
			if err := json.Unmarshal(raw, &overlay); err == nil {
				for k, v := range overlay {
					if k == "avoid" {
						continue
					}
					var decoded any
					if err := json.Unmarshal(v, &decoded); err == nil {
						configMap[k] = decoded
					}
				}
			}
		}
		cfgBytes, err := json.Marshal(configMap)
		if err != nil {
			return req, err
		}
		params["config"] = cfgBytes
	}

	paramBytes, err := json.Marshal(params)
	if err != nil {
		return req, err
	}
	req.Params = paramBytes
	return req, nil
}

func now() time.Time { return time.Now() }
