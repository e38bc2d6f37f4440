package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/secureiot/gateway-go/pkg/log"
)

// Stats holds aggregate statistics about an audit file.
type Stats struct {
	TotalEvents  int
	EventsByKind map[log.Kind]int
	Devices      map[string]*DeviceStats
	Accepted     int
	Rejected     int
	RejectReason map[string]int
	Errors       int
	TimeRange    struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds per-device counters.
type DeviceStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Accepted  int
	Rejected  int
	Forwards  int
	Commands  int
}

// RunStats analyzes the audit file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByKind: make(map[log.Kind]int),
		Devices:      make(map[string]*DeviceStats),
		RejectReason: make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByKind[event.Kind]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	id := event.DeviceID
	if id == "" {
		id = event.TransportIdentity
	}
	var dev *DeviceStats
	if id != "" {
		var ok bool
		dev, ok = s.Devices[id]
		if !ok {
			dev = &DeviceStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Devices[id] = dev
		}
		dev.Events++
		if event.Timestamp.After(dev.LastSeen) {
			dev.LastSeen = event.Timestamp
		}
	}

	switch {
	case event.Validation != nil:
		if event.Validation.Accepted {
			s.Accepted++
			if dev != nil {
				dev.Accepted++
			}
		} else {
			s.Rejected++
			s.RejectReason[event.Validation.Reason]++
			if dev != nil {
				dev.Rejected++
			}
		}
	case event.Forward != nil:
		if dev != nil {
			dev.Forwards++
		}
	case event.Command != nil:
		if dev != nil {
			dev.Commands++
		}
	case event.Error != nil:
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Gateway Audit Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Kind:")
	for _, kind := range []log.Kind{log.KindValidation, log.KindForward, log.KindCommand, log.KindConnection, log.KindError} {
		if count := stats.EventsByKind[kind]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if stats.Accepted+stats.Rejected > 0 {
		fmt.Fprintf(w, "Validations: %d accepted, %d rejected\n", stats.Accepted, stats.Rejected)
		if len(stats.RejectReason) > 0 {
			reasons := make([]string, 0, len(stats.RejectReason))
			for r := range stats.RejectReason {
				reasons = append(reasons, r)
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Fprintf(w, "  %-20s %d\n", r+":", stats.RejectReason[r])
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	if len(stats.Devices) > 0 {
		type devInfo struct {
			id    string
			stats *DeviceStats
		}
		devs := make([]devInfo, 0, len(stats.Devices))
		for id, ds := range stats.Devices {
			devs = append(devs, devInfo{id, ds})
		}
		sort.Slice(devs, func(i, j int) bool {
			return devs[i].stats.FirstSeen.Before(devs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, d := range devs {
			duration := d.stats.LastSeen.Sub(d.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", d.id, d.stats.Events, duration)
			if d.stats.Accepted+d.stats.Rejected > 0 {
				fmt.Fprintf(w, "           Validations: %d accepted, %d rejected\n",
					d.stats.Accepted, d.stats.Rejected)
			}
			if d.stats.Forwards > 0 {
				fmt.Fprintf(w, "           Forwards: %d\n", d.stats.Forwards)
			}
			if d.stats.Commands > 0 {
				fmt.Fprintf(w, "           Commands: %d\n", d.stats.Commands)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
