// Package wire defines the on-wire message formats exchanged with devices.
//
// Device data messages are JSON envelopes with exactly five fields:
// device_id, timestamp, message_id, payload, signature. Decoding is strict:
// unknown fields are rejected so that no field can ride along outside the
// signed region. The payload is captured as the verbatim on-wire byte
// sequence, because the HMAC covers the sender's serialization exactly as
// transmitted.
//
// Commands flow the other way (gateway to device) and omit device_id; the
// target device is implied by the publication topic and verifies using its
// own identity. SignedRegion and CommandSignedRegion document the two
// canonicalizations.
package wire
