// Package log provides structured audit logging for the gateway.
//
// Every message that passes through the validation and bridging pipeline
// produces an Event describing its outcome. Events can be discarded
// (NoopLogger), written to an append-only CBOR file (FileLogger), mirrored
// to slog for console inspection (SlogAdapter), or fanned out to several
// sinks at once (MultiLogger). Reader decodes audit files back into events
// for offline analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	audit := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	audit, _ := log.NewFileLogger("/var/log/gateway/audit.glog")
//
//	// Both: use MultiLogger
//	audit := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// Audit logging is independent of the gateway's operational slog output:
// operational logs are for humans watching the process, audit events are a
// machine-readable record of every validation decision.
//
// # File Format
//
// Audit files use CBOR encoding with integer map keys for compactness.
package log
