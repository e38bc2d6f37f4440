package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for filtering audit events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// Kind filters by event kind.
	Kind *Kind

	// DeviceID filters by device ID.
	DeviceID string

	// MessageID filters by exact message ID match.
	MessageID string

	// RejectedOnly keeps only rejected validation events.
	RejectedOnly bool

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// matches returns true if the event matches all filter criteria.
func (f *Filter) matches(event Event) bool {
	if f.Kind != nil && event.Kind != *f.Kind {
		return false
	}
	if f.DeviceID != "" && event.DeviceID != f.DeviceID {
		return false
	}
	if f.MessageID != "" && event.MessageID != f.MessageID {
		return false
	}
	if f.RejectedOnly {
		if event.Validation == nil || event.Validation.Accepted {
			return false
		}
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader reads audit events from a CBOR-encoded file.
// It provides an iterator interface for streaming large files.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from the specified audit file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that only returns events matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event matching the filter.
// Returns io.EOF when the end of the file is reached.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// ReadAll reads all remaining events matching the filter.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
