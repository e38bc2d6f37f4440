// Package connection manages the gateway's broker link lifecycle.
//
// It provides an exponential backoff calculator with full jitter and a
// Manager that drives connect/reconnect attempts for a long-lived
// connection. The Manager owns the connection state machine; the broker
// adapter supplies a ConnectFunc and notifies the Manager on connection
// loss.
package connection
