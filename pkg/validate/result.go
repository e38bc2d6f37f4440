package validate

import "encoding/json"

// Reason names the first check a rejected message failed.
type Reason string

// Reject reasons, in canonical check order.
const (
	ReasonMalformed        Reason = "malformed"
	ReasonIdentityMismatch Reason = "identity_mismatch"
	ReasonStale            Reason = "stale"
	ReasonReplay           Reason = "replay"
	ReasonUnknownDevice    Reason = "unknown_device"
	ReasonBadSignature     Reason = "bad_signature"
)

// Result is the terminal state of one message validation.
type Result struct {
	// Accepted is true when all five checks passed.
	Accepted bool

	// Reason is set for rejected messages.
	Reason Reason

	// DeviceID is the validated device identifier (accepted messages,
	// and rejections that parsed far enough to carry one).
	DeviceID string

	// MessageID is the message identifier, when parsed.
	MessageID string

	// Payload holds the verbatim payload bytes of accepted messages.
	Payload json.RawMessage

	// FreshnessDelta is timestamp-now in seconds, signed (negative for
	// messages from the past). Valid whenever the message parsed.
	FreshnessDelta int64
}

// accepted builds an accepted result.
func accepted(deviceID, messageID string, payload json.RawMessage, delta int64) Result {
	return Result{
		Accepted:       true,
		DeviceID:       deviceID,
		MessageID:      messageID,
		Payload:        payload,
		FreshnessDelta: delta,
	}
}

// rejected builds a rejected result.
func rejected(reason Reason) Result {
	return Result{Reason: reason}
}
