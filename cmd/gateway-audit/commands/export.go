package commands

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/secureiot/gateway-go/pkg/log"
)

// RunExport exports the audit file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "kind", "transport_identity", "device_id", "message_id", "outcome", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		outcome, detail := summarize(event)
		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.Kind.String(),
			event.TransportIdentity,
			event.DeviceID,
			event.MessageID,
			outcome,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

// summarize reduces the kind-specific payload to an outcome/detail pair.
func summarize(ev log.Event) (outcome, detail string) {
	switch {
	case ev.Validation != nil:
		if ev.Validation.Accepted {
			return "accepted", ""
		}
		return "rejected", ev.Validation.Reason
	case ev.Forward != nil:
		if ev.Forward.TransportError != "" {
			return "failed", ev.Forward.TransportError
		}
		return strconv.Itoa(ev.Forward.Status), ""
	case ev.Command != nil:
		return strconv.Itoa(ev.Command.Status), ev.Command.Topic
	case ev.Connection != nil:
		return ev.Connection.NewState, ev.Connection.Reason
	case ev.Error != nil:
		return "error", ev.Error.Message
	default:
		return "", ""
	}
}
