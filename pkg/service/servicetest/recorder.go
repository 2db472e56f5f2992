// Package servicetest provides a recording service.Target for tests that need
// to observe registrations without starting real services.
package servicetest

import (
	"context"
	"sync"

	"github.com/marmos91/pushstore/pkg/service"
)

// Recorder is a service.Target that records every request it accepts.
//
// It enforces name uniqueness like the real container. Dependencies are only
// checked when Known is non-nil, in which case every dependency must be in
// Known or already recorded.
type Recorder struct {
	mu       sync.Mutex
	requests []service.Request
	removed  []service.Name

	// Known lists names treated as already registered.
	Known []service.Name

	// Err, when set, is returned by Register instead of recording.
	Err error
}

// Register implements service.Target.
func (r *Recorder) Register(_ context.Context, req service.Request) (service.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	if r.has(req.Name) {
		return nil, &service.RegistrationError{Name: req.Name, Err: service.ErrNameConflict}
	}
	if r.Known != nil {
		for _, dep := range req.Dependencies {
			if !r.has(dep) {
				return nil, &service.RegistrationError{Name: req.Name, Dependency: dep, Err: service.ErrDependencyUnsatisfiable}
			}
		}
	}

	r.requests = append(r.requests, req)
	return &Handle{req: req}, nil
}

// Remove implements service.Target.
func (r *Recorder) Remove(_ context.Context, name service.Name) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, req := range r.requests {
		if req.Name.Equal(name) {
			r.requests = append(r.requests[:i], r.requests[i+1:]...)
			r.removed = append(r.removed, name)
			return nil
		}
	}
	return &service.RegistrationError{Name: name, Err: service.ErrServiceNotFound}
}

// Requests returns the recorded requests in order.
func (r *Recorder) Requests() []service.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.Request(nil), r.requests...)
}

// Last returns the most recent request, or false if none was recorded.
func (r *Recorder) Last() (service.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return service.Request{}, false
	}
	return r.requests[len(r.requests)-1], true
}

// Removed returns the names passed to successful Remove calls.
func (r *Recorder) Removed() []service.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.Name(nil), r.removed...)
}

func (r *Recorder) has(name service.Name) bool {
	for _, k := range r.Known {
		if k.Equal(name) {
			return true
		}
	}
	for _, req := range r.requests {
		if req.Name.Equal(name) {
			return true
		}
	}
	return false
}

// Handle is the service.Handle returned by Recorder. The recorded service is
// never started, so it always reports StateDown.
type Handle struct {
	req service.Request
}

// Name implements service.Handle.
func (h *Handle) Name() service.Name { return h.req.Name }

// State implements service.Handle.
func (h *Handle) State() service.State { return service.StateDown }

// Value implements service.Handle.
func (h *Handle) Value() (any, error) { return nil, service.ErrNotUp }

// Request returns the request this handle was created for.
func (h *Handle) Request() service.Request { return h.req }
