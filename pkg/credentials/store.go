package credentials

import (
	"errors"
	"fmt"
)

// MinSecretLen is the minimum shared secret length in bytes.
const MinSecretLen = 16

// Load-time errors.
var (
	ErrDuplicateDevice = errors.New("duplicate device_id")
	ErrSecretTooShort  = errors.New("shared secret shorter than 16 bytes")
)

// Record is a single device credential row.
type Record struct {
	// DeviceID is the opaque, unique device identifier.
	DeviceID string

	// SharedSecret is the HMAC key for this device.
	SharedSecret []byte

	// CreatedAt is seconds since the epoch at registration time.
	CreatedAt int64
}

// Store resolves a device identifier to its shared secret.
// Implementations are immutable after construction and safe for
// concurrent use.
type Store interface {
	// Lookup returns the shared secret for deviceID.
	// The second return is false when the device is unknown.
	Lookup(deviceID string) ([]byte, bool)

	// Len returns the number of loaded devices.
	Len() int
}

// MemoryStore is an immutable in-memory credential store.
type MemoryStore struct {
	secrets map[string][]byte
}

// NewMemoryStore builds a store from the given records.
// Duplicate device IDs and short secrets are load-time errors.
func NewMemoryStore(records []Record) (*MemoryStore, error) {
	secrets := make(map[string][]byte, len(records))
	for _, rec := range records {
		if rec.DeviceID == "" {
			return nil, fmt.Errorf("empty device_id in credential record")
		}
		if _, ok := secrets[rec.DeviceID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDevice, rec.DeviceID)
		}
		if len(rec.SharedSecret) < MinSecretLen {
			return nil, fmt.Errorf("%w: %s", ErrSecretTooShort, rec.DeviceID)
		}
		// Copy so callers cannot mutate the stored key
		secret := make([]byte, len(rec.SharedSecret))
		copy(secret, rec.SharedSecret)
		secrets[rec.DeviceID] = secret
	}
	return &MemoryStore{secrets: secrets}, nil
}

// Lookup returns the shared secret for deviceID.
func (s *MemoryStore) Lookup(deviceID string) ([]byte, bool) {
	secret, ok := s.secrets[deviceID]
	return secret, ok
}

// Len returns the number of loaded devices.
func (s *MemoryStore) Len() int {
	return len(s.secrets)
}

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)
