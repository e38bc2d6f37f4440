package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/secureiot/gateway-go/pkg/wire"
)

// Sign computes the lowercase hex HMAC-SHA256 signature of a data message:
// device_id || decimal(timestamp) || message_id || payload bytes.
// payload must be the exact bytes the sender transmits.
func Sign(deviceID string, timestamp int64, messageID string, payload []byte, secret []byte) string {
	return mac(wire.SignedRegion(deviceID, timestamp, messageID, payload), secret)
}

// SignCommand computes the signature of an outbound command:
// decimal(timestamp) || message_id || payload bytes. The device_id is
// deliberately absent from the signed region; the publication topic names
// the target.
func SignCommand(timestamp int64, messageID string, payload []byte, secret []byte) string {
	return mac(wire.CommandSignedRegion(timestamp, messageID, payload), secret)
}

// Verify recomputes the data message signature and compares it against
// sigHex in constant time.
func Verify(deviceID string, timestamp int64, messageID string, payload []byte, secret []byte, sigHex string) bool {
	m := hmac.New(sha256.New, secret)
	m.Write(wire.SignedRegion(deviceID, timestamp, messageID, payload))
	expected := m.Sum(nil)

	got, err := hex.DecodeString(sigHex)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(expected, got)
}

// VerifyCommand verifies an outbound command signature in constant time.
// Used by device-side consumers and tests.
func VerifyCommand(timestamp int64, messageID string, payload []byte, secret []byte, sigHex string) bool {
	return Verify("", timestamp, messageID, payload, secret, sigHex)
}

func mac(region []byte, secret []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(region)
	return hex.EncodeToString(m.Sum(nil))
}
