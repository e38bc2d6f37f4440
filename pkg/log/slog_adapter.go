package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes audit events to an slog.Logger.
// Useful for development when you want to see audit events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("kind", event.Kind.String()),
	}

	// Add optional identifiers
	if event.TransportIdentity != "" {
		attrs = append(attrs, slog.String("transport_identity", event.TransportIdentity))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", event.MessageID))
	}

	// Add type-specific attributes
	switch {
	case event.Validation != nil:
		attrs = append(attrs, slog.Bool("accepted", event.Validation.Accepted))
		if event.Validation.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Validation.Reason))
		}
		if event.Validation.FreshnessDelta != nil {
			attrs = append(attrs, slog.Int64("freshness_delta", *event.Validation.FreshnessDelta))
		}
		if event.Validation.Elapsed != 0 {
			attrs = append(attrs, slog.Duration("elapsed", event.Validation.Elapsed))
		}
	case event.Forward != nil:
		attrs = append(attrs,
			slog.Int("status", event.Forward.Status),
			slog.Int("body_size", event.Forward.BodySize),
		)
		if event.Forward.TransportError != "" {
			attrs = append(attrs, slog.String("transport_error", event.Forward.TransportError))
		}
		if event.Forward.Responded {
			attrs = append(attrs, slog.Bool("responded", true))
		}
	case event.Command != nil:
		attrs = append(attrs, slog.Int("status", event.Command.Status))
		if event.Command.Topic != "" {
			attrs = append(attrs, slog.String("topic", event.Command.Topic))
		}
	case event.Connection != nil:
		attrs = append(attrs,
			slog.String("old_state", event.Connection.OldState),
			slog.String("new_state", event.Connection.NewState),
		)
		if event.Connection.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Connection.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "audit", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
