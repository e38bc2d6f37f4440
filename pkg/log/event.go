package log

import (
	"time"
)

// Event represents a single audit record captured by the gateway.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Kind classifies the event.
	Kind Kind `cbor:"2,keyasint"`

	// TransportIdentity is the identity the transport layer attached to
	// the message (the certificate common name carried by the topic).
	TransportIdentity string `cbor:"3,keyasint,omitempty"`

	// DeviceID is the application-level device identifier, when known.
	DeviceID string `cbor:"4,keyasint,omitempty"`

	// MessageID is the message identifier, when known.
	MessageID string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Validation *ValidationEvent `cbor:"6,keyasint,omitempty"` // Validator outcome
	Forward    *ForwardEvent    `cbor:"7,keyasint,omitempty"` // Backend bridging
	Command    *CommandEvent    `cbor:"8,keyasint,omitempty"` // Command ingress
	Connection *ConnectionEvent `cbor:"9,keyasint,omitempty"` // Broker link state
	Error      *ErrorEventData  `cbor:"10,keyasint,omitempty"`
}

// Kind classifies the event type.
type Kind uint8

const (
	// KindValidation indicates a validator decision.
	KindValidation Kind = 0
	// KindForward indicates a backend forwarding attempt.
	KindForward Kind = 1
	// KindCommand indicates a backend-initiated command.
	KindCommand Kind = 2
	// KindConnection indicates a broker connection state change.
	KindConnection Kind = 3
	// KindError indicates an internal error.
	KindError Kind = 4
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindForward:
		return "FORWARD"
	case KindCommand:
		return "COMMAND"
	case KindConnection:
		return "CONNECTION"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ValidationEvent captures the terminal state of one message validation.
type ValidationEvent struct {
	// Accepted is true when all five checks passed.
	Accepted bool `cbor:"1,keyasint"`

	// Reason names the first failing check for rejected messages.
	Reason string `cbor:"2,keyasint,omitempty"`

	// FreshnessDelta is timestamp-now in seconds, signed.
	// Set whenever the message parsed far enough to carry a timestamp.
	FreshnessDelta *int64 `cbor:"3,keyasint,omitempty"`

	// Elapsed is the validation duration.
	Elapsed time.Duration `cbor:"4,keyasint,omitempty"`
}

// ForwardEvent captures one backend forwarding attempt.
type ForwardEvent struct {
	// Status is the backend HTTP status code (0 on transport error).
	Status int `cbor:"1,keyasint"`

	// BodySize is the response body size in bytes.
	BodySize int `cbor:"2,keyasint,omitempty"`

	// TransportError describes a network/timeout failure, if any.
	TransportError string `cbor:"3,keyasint,omitempty"`

	// Responded is true when the backend body was republished to the
	// device's response topic.
	Responded bool `cbor:"4,keyasint,omitempty"`
}

// CommandEvent captures one backend-initiated command request.
type CommandEvent struct {
	// Status is the HTTP status returned to the backend.
	Status int `cbor:"1,keyasint"`

	// Topic is the publication topic for accepted commands.
	Topic string `cbor:"2,keyasint,omitempty"`
}

// ConnectionEvent captures broker link lifecycle changes.
type ConnectionEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures internal errors.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
