package validate

import (
	"log/slog"
	"time"

	"github.com/secureiot/gateway-go/pkg/credentials"
	"github.com/secureiot/gateway-go/pkg/log"
	"github.com/secureiot/gateway-go/pkg/replay"
	"github.com/secureiot/gateway-go/pkg/sign"
	"github.com/secureiot/gateway-go/pkg/wire"
)

// DefaultSkewBudget is the default freshness tolerance in seconds.
const DefaultSkewBudget = 300

// Config configures a Validator.
type Config struct {
	// Credentials resolves device identifiers to HMAC secrets.
	Credentials credentials.Store

	// Cache is the replay cache. Required.
	Cache *replay.Cache

	// Clock supplies wall-clock seconds. Defaults to the system clock.
	Clock sign.Clock

	// SkewBudget is the freshness tolerance in seconds (default 300).
	// The boundary is closed: |now - timestamp| == SkewBudget accepts.
	SkewBudget int64

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Audit receives one event per validation. Defaults to NoopLogger.
	Audit log.Logger
}

// Validator runs the five-check pipeline over raw publications.
// It is safe for concurrent use; the replay cache is the only shared
// mutable state on the hot path.
type Validator struct {
	creds  credentials.Store
	cache  *replay.Cache
	clock  sign.Clock
	skew   int64
	logger *slog.Logger
	audit  log.Logger
	stats  Stats
}

// New creates a Validator.
func New(cfg Config) *Validator {
	if cfg.Clock == nil {
		cfg.Clock = sign.SystemClock{}
	}
	if cfg.SkewBudget <= 0 {
		cfg.SkewBudget = DefaultSkewBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = log.NoopLogger{}
	}
	return &Validator{
		creds:  cfg.Credentials,
		cache:  cfg.Cache,
		clock:  cfg.Clock,
		skew:   cfg.SkewBudget,
		logger: cfg.Logger,
		audit:  cfg.Audit,
	}
}

// Validate binds transportIdentity to the message's claimed identity and
// runs the ordered checks over raw. On success the replay cache holds one
// new entry for the message; on any failure the only observable effect is
// the returned reject reason (the replay check itself records the
// identifier before the signature check, see the package comment).
func (v *Validator) Validate(transportIdentity string, raw []byte) Result {
	start := time.Now()
	v.stats.received.Add(1)

	res := v.run(transportIdentity, raw)

	if res.Accepted {
		v.stats.validated.Add(1)
	} else {
		v.stats.rejected.Add(1)
	}
	v.emit(transportIdentity, res, time.Since(start))
	return res
}

// run executes the check sequence and returns the terminal result.
func (v *Validator) run(transportIdentity string, raw []byte) Result {
	// Check 1: parse and schema
	msg, err := wire.DecodeMessage(raw)
	if err != nil {
		v.logger.Info("message rejected",
			"reason", ReasonMalformed,
			"transport_identity", transportIdentity,
			"error", err)
		return rejected(ReasonMalformed)
	}

	// Check 2: identity consistency
	if msg.DeviceID != transportIdentity {
		v.logger.Warn("message rejected",
			"reason", ReasonIdentityMismatch,
			"transport_identity", transportIdentity,
			"device_id", msg.DeviceID)
		res := rejected(ReasonIdentityMismatch)
		res.MessageID = msg.MessageID
		return res
	}

	// Check 3: freshness (closed boundary: |delta| == skew accepts).
	// Compared as two signed bounds; an absolute value would overflow for
	// timestamps near the int64 extremes.
	delta := msg.Timestamp - v.clock.Now()
	if delta > v.skew || delta < -v.skew {
		v.logger.Warn("message rejected",
			"reason", ReasonStale,
			"device_id", msg.DeviceID,
			"delta_seconds", delta,
			"skew_budget", v.skew)
		res := rejected(ReasonStale)
		res.DeviceID = msg.DeviceID
		res.MessageID = msg.MessageID
		res.FreshnessDelta = delta
		return res
	}

	// Check 4: replay (atomic check-and-add; the cache is mutated here,
	// before the signature check)
	if !v.cache.CheckAndAdd(msg.DeviceID, msg.MessageID) {
		v.logger.Warn("message rejected",
			"reason", ReasonReplay,
			"device_id", msg.DeviceID,
			"message_id", msg.MessageID)
		res := rejected(ReasonReplay)
		res.DeviceID = msg.DeviceID
		res.MessageID = msg.MessageID
		res.FreshnessDelta = delta
		return res
	}

	// Check 5: signature
	secret, ok := v.creds.Lookup(msg.DeviceID)
	if !ok {
		v.logger.Warn("message rejected",
			"reason", ReasonUnknownDevice,
			"device_id", msg.DeviceID)
		res := rejected(ReasonUnknownDevice)
		res.DeviceID = msg.DeviceID
		res.MessageID = msg.MessageID
		res.FreshnessDelta = delta
		return res
	}
	if !sign.Verify(msg.DeviceID, msg.Timestamp, msg.MessageID, msg.Payload, secret, msg.Signature) {
		v.logger.Warn("message rejected",
			"reason", ReasonBadSignature,
			"device_id", msg.DeviceID,
			"message_id", msg.MessageID)
		res := rejected(ReasonBadSignature)
		res.DeviceID = msg.DeviceID
		res.MessageID = msg.MessageID
		res.FreshnessDelta = delta
		return res
	}

	return accepted(msg.DeviceID, msg.MessageID, msg.Payload, delta)
}

// emit records the audit event for one validation.
func (v *Validator) emit(transportIdentity string, res Result, elapsed time.Duration) {
	ev := log.Event{
		Timestamp:         time.Now(),
		Kind:              log.KindValidation,
		TransportIdentity: transportIdentity,
		DeviceID:          res.DeviceID,
		MessageID:         res.MessageID,
		Validation: &log.ValidationEvent{
			Accepted: res.Accepted,
			Elapsed:  elapsed,
		},
	}
	if !res.Accepted {
		ev.Validation.Reason = string(res.Reason)
	}
	if res.Reason != ReasonMalformed && res.Reason != ReasonIdentityMismatch {
		delta := res.FreshnessDelta
		ev.Validation.FreshnessDelta = &delta
	}
	v.audit.Log(ev)
}
