// errors.go — the typed error taxonomy from spec §7. Transport/dispatch/
// handle/selector/evaluation errors become `{id, error}` response frames;
// human-click and human-type refusals are NOT errors (see RefusalReason
// below) and are carried as ordinary result fields instead.
package protocol

import "errors"

// Code is a stable, wire-safe identifier for a transport/dispatch/handle/
// selector/evaluation failure. A Code rides on *Error and is matched with
// CodeOf/IsCode (errors.As). Error() returns the message text, which holds
// the code string only when no message was given.
type Code string

const (
	// Transport.
	CodeExtensionNotConnected Code = "extension-not-connected"
	CodeExtensionDisconnected Code = "extension-disconnected"
	CodeParseError            Code = "parse-error"
	CodeConnectionTimeout     Code = "connection-timeout"

	// Dispatch.
	CodeUnknownAction   Code = "unknown-action"
	CodeInvalidParams   Code = "invalid-params"
	CodeNoTabs          Code = "no-tabs"
	CodeCommandTimeout  Code = "command-timeout"

	// Handle.
	CodeHandleNotFound Code = "handle-not-found"
	CodeHandleGCd      Code = "handle-gc'd"

	// Selector.
	CodeElementNotFound Code = "element-not-found"

	// Evaluation.
	CodeEvaluateTimedOut        Code = "evaluate-timed-out"
	CodeEvaluateFailedAllWorlds Code = "evaluate-failed-all-worlds"
)

// Error wraps a Code with a human-readable message, matching the teacher's
// errors.As-based classification pattern (internal/bridge/conn.go).
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// NewError constructs a classified error for code with the given detail.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the Code from err if it (or something it wraps) is a
// *Error, reporting ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsCode reports whether err classifies as code.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// RefusalReason enumerates the human-click/human-type refusal reasons from
// spec §7. These are never returned as errors: they ride inside a normal
// result payload (`{clicked: false, reason: ...}` etc.) because a client
// retrying the same element is expected behaviour, not failure recovery.
type RefusalReason string

const (
	ReasonAvoided           RefusalReason = "avoided"
	ReasonAriaHidden        RefusalReason = "aria-hidden"
	ReasonNoOffsetParent    RefusalReason = "no-offsetParent"
	ReasonHoneypotClass     RefusalReason = "honeypot-class"
	ReasonOpacityZero       RefusalReason = "opacity-zero"
	ReasonVisibilityHidden  RefusalReason = "visibility-hidden"
	ReasonSubPixel          RefusalReason = "sub-pixel"
	ReasonNoBoundingBox     RefusalReason = "no-bounding-box"
	ReasonSVGElement        RefusalReason = "svg-element"
	ReasonOffScreen         RefusalReason = "off-screen"
	ReasonElementDisappeared RefusalReason = "element-disappeared"
	ReasonElementShifted    RefusalReason = "element-shifted"
)

// ClickResult is the structured, never-an-error outcome of human.click.
type ClickResult struct {
	Clicked bool          `json:"clicked"`
	Reason  RefusalReason `json:"reason,omitempty"`
}

// TypeResult is the structured, never-an-error outcome of human.type.
type TypeResult struct {
	Typed  bool          `json:"typed"`
	Reason RefusalReason `json:"reason,omitempty"`
}

// ClearResult is the structured, never-an-error outcome of human.clearInput.
type ClearResult struct {
	Cleared bool          `json:"cleared"`
	Reason  RefusalReason `json:"reason,omitempty"`
}
