package service

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Listener observes state transitions of a registered service.
// err is non-nil only for transitions to StateStartFailed.
type Listener interface {
	Transition(h Handle, from, to State, err error)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(h Handle, from, to State, err error)

// Transition implements Listener.
func (f ListenerFunc) Transition(h Handle, from, to State, err error) {
	f(h, from, to, err)
}

// VerificationListener collects start failures of the services it is attached
// to so that the caller can check them once registration has settled.
type VerificationListener struct {
	mu       sync.Mutex
	failures map[string]error
}

// NewVerificationListener creates an empty VerificationListener.
func NewVerificationListener() *VerificationListener {
	return &VerificationListener{failures: make(map[string]error)}
}

// Transition implements Listener.
func (v *VerificationListener) Transition(h Handle, _, to State, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := h.Name().String()
	switch to {
	case StateStartFailed:
		v.failures[key] = err
	case StateUp, StateRemoved:
		delete(v.failures, key)
	}
}

// Verify returns nil when no watched service is in START_FAILED, otherwise
// the failures joined, ordered by service name.
func (v *VerificationListener) Verify() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.failures) == 0 {
		return nil
	}

	names := make([]string, 0, len(v.failures))
	for name := range v.failures {
		names = append(names, name)
	}
	slices.Sort(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrStartFailed, name, v.failures[name]))
	}
	return errors.Join(errs...)
}

// Metrics records container activity. Implementations must be safe for
// concurrent use; a nil Metrics disables recording.
type Metrics interface {
	ObserveRegistration(outcome string)
	ObserveTransition(from, to State)
}
