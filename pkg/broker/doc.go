// Package broker connects the gateway to the MQTT broker.
//
// The gateway subscribes to the device data topic pattern over mutual TLS
// and surfaces each publication as a (transport identity, raw bytes)
// tuple. The broker authenticates device client certificates against the
// shared trust anchor and confines each device to the topic namespace
// matching its certificate common name, so the device segment of a data
// topic is the verified transport identity.
//
// Publications are dispatched in broker delivery order, one at a time per
// connection; per-device ordering therefore follows from the broker's
// per-session ordering. Reconnection uses exponential backoff with full
// jitter via package connection.
package broker
