package gateway

// ServiceState represents the supervisor lifecycle state.
type ServiceState uint8

const (
	// StateStopped indicates the gateway is not running.
	StateStopped ServiceState = iota

	// StateStarting indicates startup is in progress.
	StateStarting

	// StateRunning indicates the gateway is ready and processing.
	StateRunning

	// StateStopping indicates shutdown is in progress.
	StateStopping
)

// String returns a human-readable state name.
func (s ServiceState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}
