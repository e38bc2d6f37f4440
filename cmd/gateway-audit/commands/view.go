package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/secureiot/gateway-go/pkg/log"
)

// ParseKindFlag converts a -kind flag value to an event kind.
func ParseKindFlag(s string) (log.Kind, error) {
	switch strings.ToLower(s) {
	case "validation":
		return log.KindValidation, nil
	case "forward":
		return log.KindForward, nil
	case "command":
		return log.KindCommand, nil
	case "connection":
		return log.KindConnection, nil
	case "error":
		return log.KindError, nil
	default:
		return 0, fmt.Errorf("unknown kind %q (validation, forward, command, connection, error)", s)
	}
}

// RunView prints matching events in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		fmt.Fprintln(w, formatEvent(event))
	}
}

// formatEvent renders one event as a single line.
func formatEvent(ev log.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-10s", ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"), ev.Kind)
	if ev.DeviceID != "" {
		fmt.Fprintf(&b, "  device=%s", ev.DeviceID)
	} else if ev.TransportIdentity != "" {
		fmt.Fprintf(&b, "  identity=%s", ev.TransportIdentity)
	}
	if ev.MessageID != "" {
		fmt.Fprintf(&b, "  msg=%s", ev.MessageID)
	}

	switch {
	case ev.Validation != nil:
		if ev.Validation.Accepted {
			b.WriteString("  ACCEPTED")
		} else {
			fmt.Fprintf(&b, "  REJECTED reason=%s", ev.Validation.Reason)
		}
		if ev.Validation.FreshnessDelta != nil {
			fmt.Fprintf(&b, " delta=%ds", *ev.Validation.FreshnessDelta)
		}
		if ev.Validation.Elapsed > 0 {
			fmt.Fprintf(&b, " elapsed=%s", ev.Validation.Elapsed)
		}
	case ev.Forward != nil:
		if ev.Forward.TransportError != "" {
			fmt.Fprintf(&b, "  FAILED error=%q", ev.Forward.TransportError)
		} else {
			fmt.Fprintf(&b, "  status=%d body=%dB responded=%t",
				ev.Forward.Status, ev.Forward.BodySize, ev.Forward.Responded)
		}
	case ev.Command != nil:
		fmt.Fprintf(&b, "  status=%d", ev.Command.Status)
		if ev.Command.Topic != "" {
			fmt.Fprintf(&b, " topic=%s", ev.Command.Topic)
		}
	case ev.Connection != nil:
		if ev.Connection.OldState != "" {
			fmt.Fprintf(&b, "  %s>%s", ev.Connection.OldState, ev.Connection.NewState)
		} else {
			fmt.Fprintf(&b, "  %s", ev.Connection.NewState)
		}
		if ev.Connection.Reason != "" {
			fmt.Fprintf(&b, " reason=%q", ev.Connection.Reason)
		}
	case ev.Error != nil:
		fmt.Fprintf(&b, "  %s", ev.Error.Message)
		if ev.Error.Context != "" {
			fmt.Fprintf(&b, " in=%s", ev.Error.Context)
		}
	}
	return b.String()
}
