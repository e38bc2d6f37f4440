// Package transport builds the mutual-TLS configuration for the gateway's
// broker connection.
//
// The gateway authenticates to the broker with its own certificate and
// verifies the broker against the configured trust anchor. Device client
// certificates are verified by the broker, which binds each device's
// certificate common name to its topic namespace; the gateway receives
// that binding as the device segment of the publication topic.
package transport
