// Package gateway wires the validation and bridging components into a
// supervised service.
//
// Startup order: credentials, replay cache, broker connection, command
// HTTP server, data subscription, ready. Shutdown reverses it: the HTTP
// server stops accepting requests, the broker link closes (stopping new
// publications), in-flight validations drain to a terminal state, then
// resources close.
//
// Each message runs under a pipeline deadline larger than the backend
// HTTP timeout; on expiry the message is abandoned and any partial
// backend response is discarded. Peer-induced failures never cross
// message boundaries.
package gateway
