// Purpose: Owns envelope.go wire types shared by the broker, the page-bridge,
// and any client speaking the human-browser WebSocket protocol.
//
// JSON CONVENTION: All fields use camelCase (id, tabId, extensionId, result,
// error, event, type, ...); the envelope field names are fixed by the wire
// contract and are not renamed.
package protocol

import "encoding/json"

// CurrentVersion is the protocol version carried in every handshake.
const CurrentVersion = "1.3.0"

// MessageType distinguishes control frames from request/response/event frames.
// Requests and responses are detected structurally (see Envelope), not by a
// type tag — only control frames carry an explicit "type" field on the wire.
type MessageType string

const (
	TypeHandshake MessageType = "handshake"
	TypePing      MessageType = "ping"
	TypePong      MessageType = "pong"
	TypeEvent     MessageType = "event"
)

// Envelope is the superset of every shape a frame can take on the wire. A
// single Go type intentionally models all four shapes from spec §3 because
// the broker must sniff an unknown inbound frame before it knows which one
// it has — trying to unmarshal into four separate structs and see which
// succeeds duplicates the same json.RawMessage buffer needlessly.
type Envelope struct {
	// Control frame discriminator. Empty for request/response/event frames.
	Type MessageType `json:"type,omitempty"`

	// Handshake fields (Type == TypeHandshake).
	ExtensionID string `json:"extensionId,omitempty"`
	Version     string `json:"version,omitempty"`

	// Request/response correlation (client-chosen, opaque).
	ID string `json:"id,omitempty"`

	// Request fields.
	TabID  int             `json:"tabId,omitempty"`
	Action string          `json:"action,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields.
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	// Event fields (Type == TypeEvent).
	Event     string          `json:"event,omitempty"`
	EventData json.RawMessage `json:"data,omitempty"`
}

// Kind classifies an inbound envelope for dispatch purposes.
type Kind int

const (
	KindUnknown Kind = iota
	KindHandshake
	KindPing
	KindPong
	KindEvent
	KindRequest
	KindResponse
)

// Classify inspects an envelope's populated fields to determine its kind.
// Order matters: control types are checked first since Type is authoritative
// when present, then request vs. response is disambiguated by which of
// Action/Result/Error is set.
func (e *Envelope) Classify() Kind {
	switch e.Type {
	case TypeHandshake:
		return KindHandshake
	case TypePing:
		return KindPing
	case TypePong:
		return KindPong
	case TypeEvent:
		return KindEvent
	}
	if e.Action != "" {
		return KindRequest
	}
	if e.Result != nil || e.Error != "" {
		return KindResponse
	}
	return KindUnknown
}

// NewEvent builds an outbound event envelope with data marshalled to JSON.
func NewEvent(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeEvent, Event: event, EventData: raw}, nil
}

// NewResult builds an outbound success response envelope.
func NewResult(id string, result any) (Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: id, Result: raw}, nil
}

// NewErrorResponse builds an outbound error response envelope.
func NewErrorResponse(id string, message string) Envelope {
	return Envelope{ID: id, Error: message}
}
