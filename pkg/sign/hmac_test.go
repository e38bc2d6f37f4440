package sign

import (
	"strings"
	"testing"
)

var (
	testSecret  = []byte("supersecretkey123")
	testPayload = []byte(`{"temperature":22.5,"humidity":60}`)
)

func TestSignVerifyRoundTrip(t *testing.T) {
	sig := Sign("sensor_001", 1727712000, "550e8400-e29b-41d4-a716-446655440000", testPayload, testSecret)

	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Errorf("signature is not lowercase: %s", sig)
	}
	if !Verify("sensor_001", 1727712000, "550e8400-e29b-41d4-a716-446655440000", testPayload, testSecret, sig) {
		t.Error("Verify() = false for freshly signed message")
	}
}

func TestVerifyTamperDetection(t *testing.T) {
	const (
		deviceID  = "sensor_001"
		timestamp = int64(1727712000)
		messageID = "550e8400-e29b-41d4-a716-446655440000"
	)
	sig := Sign(deviceID, timestamp, messageID, testPayload, testSecret)

	t.Run("DeviceID", func(t *testing.T) {
		if Verify("sensor_002", timestamp, messageID, testPayload, testSecret, sig) {
			t.Error("Verify() = true for altered device_id")
		}
	})

	t.Run("Timestamp", func(t *testing.T) {
		if Verify(deviceID, timestamp+1, messageID, testPayload, testSecret, sig) {
			t.Error("Verify() = true for altered timestamp")
		}
	})

	t.Run("MessageID", func(t *testing.T) {
		if Verify(deviceID, timestamp, "550e8400-e29b-41d4-a716-446655440001", testPayload, testSecret, sig) {
			t.Error("Verify() = true for altered message_id")
		}
	})

	t.Run("Payload", func(t *testing.T) {
		tampered := []byte(`{"temperature":99.9,"humidity":60}`)
		if Verify(deviceID, timestamp, messageID, tampered, testSecret, sig) {
			t.Error("Verify() = true for altered payload")
		}
	})

	t.Run("Secret", func(t *testing.T) {
		if Verify(deviceID, timestamp, messageID, testPayload, []byte("otherkey12345678"), sig) {
			t.Error("Verify() = true for wrong secret")
		}
	})

	t.Run("SignatureByte", func(t *testing.T) {
		flipped := []byte(sig)
		if flipped[0] == 'a' {
			flipped[0] = 'b'
		} else {
			flipped[0] = 'a'
		}
		if Verify(deviceID, timestamp, messageID, testPayload, testSecret, string(flipped)) {
			t.Error("Verify() = true for altered signature")
		}
	})
}

func TestVerifyMalformedSignature(t *testing.T) {
	cases := []string{
		"",
		"zz",
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
		strings.Repeat("g", 64),
	}
	for _, sig := range cases {
		if Verify("d", 1, "m", testPayload, testSecret, sig) {
			t.Errorf("Verify(%q) = true, want false", sig)
		}
	}
}

func TestCommandSignatureAsymmetry(t *testing.T) {
	// Commands sign (timestamp || message_id || payload) without the
	// device identifier; a data signature for the same fields must differ.
	cmdSig := SignCommand(1727712000, "mid-1", testPayload, testSecret)
	dataSig := Sign("sensor_001", 1727712000, "mid-1", testPayload, testSecret)

	if cmdSig == dataSig {
		t.Error("command and data signatures are equal; device_id missing from data region?")
	}
	if !VerifyCommand(1727712000, "mid-1", testPayload, testSecret, cmdSig) {
		t.Error("VerifyCommand() = false for fresh command signature")
	}
	if VerifyCommand(1727712000, "mid-1", testPayload, testSecret, dataSig) {
		t.Error("VerifyCommand() accepted a data signature")
	}
}

func TestPayloadBytesAreAuthoritative(t *testing.T) {
	// Semantically equal JSON with different byte sequences must produce
	// different signatures - the sender's serialization is what is signed.
	a := []byte(`{"a":1,"b":2}`)
	b := []byte(`{"b":2,"a":1}`)
	if Sign("d", 1, "m", a, testSecret) == Sign("d", 1, "m", b, testSecret) {
		t.Error("signatures equal for different byte sequences")
	}
}

func TestFixedClock(t *testing.T) {
	c := FixedClock(1727712050)
	if got := c.Now(); got != 1727712050 {
		t.Errorf("Now() = %d, want 1727712050", got)
	}
}
