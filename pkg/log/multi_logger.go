package log

// MultiLogger fans each audit event out to several sinks, typically a
// FileLogger for the durable trail plus a SlogAdapter for console
// inspection during development.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger over the given sinks.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log records the event in every sink, in registration order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
