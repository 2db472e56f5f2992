package service

import (
	"fmt"
	"strings"
)

// Mode controls when the container starts a service.
type Mode int

const (
	// ModeActive starts the service as soon as its dependencies are UP.
	ModeActive Mode = iota
	// ModeOnDemand starts the service only when an active dependent needs it.
	ModeOnDemand
	// ModeNever keeps the service registered but never starts it.
	ModeNever
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "ACTIVE"
	case ModeOnDemand:
		return "ON_DEMAND"
	case ModeNever:
		return "NEVER"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a Mode (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE", "":
		return ModeActive, nil
	case "ON_DEMAND":
		return ModeOnDemand, nil
	case "NEVER":
		return ModeNever, nil
	default:
		return 0, fmt.Errorf("unknown service mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is the lifecycle state of a registered service.
type State int

const (
	StateDown State = iota
	StateStarting
	StateUp
	StateStartFailed
	StateStopping
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDown:
		return "DOWN"
	case StateStarting:
		return "STARTING"
	case StateUp:
		return "UP"
	case StateStartFailed:
		return "START_FAILED"
	case StateStopping:
		return "STOPPING"
	case StateRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
