package dmatest

// State is the lifecycle state of an Engine.
type State int

// The states of an Engine. A run moves from StateInit to StateRunning, ends
// in StateStopping or StateFatal and always finishes in StateTerminated.
const (
	StateInit State = iota
	StateRunning
	StateStopping
	StateFatal
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateFatal:
		return "FATAL"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state with its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
