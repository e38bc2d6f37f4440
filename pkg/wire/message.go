package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// SignatureHexLen is the length of an HMAC-SHA256 signature in lowercase hex.
const SignatureHexLen = 64

// ErrMalformed indicates a message that failed strict schema decoding.
// All decode failures wrap this error.
var ErrMalformed = errors.New("malformed message")

// Message is a device data envelope as received on the data topic.
type Message struct {
	// DeviceID is the self-claimed device identifier.
	DeviceID string

	// Timestamp is seconds since the epoch at signing time.
	Timestamp int64

	// MessageID is an opaque per-device-unique identifier (UUID-shaped).
	MessageID string

	// Payload holds the verbatim on-wire payload bytes. The signature
	// covers these bytes exactly as the sender serialized them, so they
	// must never be re-serialized before verification.
	Payload json.RawMessage

	// Signature is the lowercase hex HMAC-SHA256 over the signed region.
	Signature string
}

// envelope mirrors Message with pointer fields so missing keys are
// distinguishable from zero values.
type envelope struct {
	DeviceID  *string         `json:"device_id"`
	Timestamp *int64          `json:"timestamp"`
	MessageID *string         `json:"message_id"`
	Payload   json.RawMessage `json:"payload"`
	Signature *string         `json:"signature"`
}

// DecodeMessage decodes raw bytes into a Message under the strict schema:
// exactly the five required fields, correct primitive kinds, payload must
// be a JSON object, signature must be 64 lowercase hex characters.
// Any violation returns an error wrapping ErrMalformed.
func DecodeMessage(raw []byte) (*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// Reject trailing data after the envelope object
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after message", ErrMalformed)
	}

	switch {
	case env.DeviceID == nil:
		return nil, fmt.Errorf("%w: missing device_id", ErrMalformed)
	case env.Timestamp == nil:
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	case env.MessageID == nil:
		return nil, fmt.Errorf("%w: missing message_id", ErrMalformed)
	case len(env.Payload) == 0:
		return nil, fmt.Errorf("%w: missing payload", ErrMalformed)
	case env.Signature == nil:
		return nil, fmt.Errorf("%w: missing signature", ErrMalformed)
	}

	if *env.DeviceID == "" {
		return nil, fmt.Errorf("%w: empty device_id", ErrMalformed)
	}
	if *env.MessageID == "" {
		return nil, fmt.Errorf("%w: empty message_id", ErrMalformed)
	}
	if !isObject(env.Payload) {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}
	if !isHexSignature(*env.Signature) {
		return nil, fmt.Errorf("%w: signature is not %d lowercase hex characters",
			ErrMalformed, SignatureHexLen)
	}

	return &Message{
		DeviceID:  *env.DeviceID,
		Timestamp: *env.Timestamp,
		MessageID: *env.MessageID,
		Payload:   env.Payload,
		Signature: *env.Signature,
	}, nil
}

// isObject reports whether raw is a JSON object (not scalar/array/null).
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// isHexSignature reports whether s is exactly SignatureHexLen lowercase
// hex characters.
func isHexSignature(s string) bool {
	if len(s) != SignatureHexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Command is a backend-initiated message published to a device's command
// topic. There is no device_id field: the target is implied by the topic
// and the device verifies the signature using its own identity implicitly.
type Command struct {
	Timestamp int64           `json:"timestamp"`
	MessageID string          `json:"message_id"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// EncodeCommand serializes a command for publication.
func EncodeCommand(cmd *Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// SignedRegion returns the byte sequence authenticated by a data message
// signature: device_id || decimal(timestamp) || message_id || payload bytes,
// concatenated without separators.
func SignedRegion(deviceID string, timestamp int64, messageID string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(deviceID) + 20 + len(messageID) + len(payload))
	buf.WriteString(deviceID)
	buf.WriteString(strconv.FormatInt(timestamp, 10))
	buf.WriteString(messageID)
	buf.Write(payload)
	return buf.Bytes()
}

// CommandSignedRegion returns the byte sequence authenticated by a command
// signature: decimal(timestamp) || message_id || payload bytes. Commands
// deliberately omit device_id from the signed region; the topic names the
// target and the device verifies against its own identity.
func CommandSignedRegion(timestamp int64, messageID string, payload []byte) []byte {
	return SignedRegion("", timestamp, messageID, payload)
}
