package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Controller is the container's handle on a registered service.
type Controller struct {
	id           uuid.UUID
	name         Name
	svc          Service
	dependencies []Name
	listeners    []Listener
	registeredAt time.Time

	mu    sync.Mutex
	mode  Mode
	state State
	err   error
}

func newController(req Request) *Controller {
	return &Controller{
		id:           uuid.New(),
		name:         req.Name,
		svc:          req.Service,
		dependencies: slices.Clone(req.Dependencies),
		listeners:    slices.Clone(req.Listeners),
		registeredAt: time.Now(),
		mode:         req.Mode,
		state:        StateDown,
	}
}

// ID returns the unique id assigned at registration.
func (c *Controller) ID() uuid.UUID { return c.id }

// Name returns the registered name.
func (c *Controller) Name() Name { return c.name }

// Service returns the managed service instance.
func (c *Controller) Service() Service { return c.svc }

// Dependencies returns the names this service depends on.
func (c *Controller) Dependencies() []Name { return slices.Clone(c.dependencies) }

// RegisteredAt returns the registration time.
func (c *Controller) RegisteredAt() time.Time { return c.registeredAt }

// Mode returns the current activation mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last start failure, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Value returns the value published by the service. The service must be UP.
func (c *Controller) Value() (any, error) {
	if st := c.State(); st != StateUp {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotUp, c.name, st)
	}
	if vs, ok := c.svc.(ValueService); ok {
		return vs.Value(), nil
	}
	return nil, nil
}

// transition moves the controller from one of the allowed states to `to`.
// It reports false without side effects if the current state is not allowed.
func (c *Controller) transition(to State, err error, allowed ...State) (State, bool) {
	c.mu.Lock()
	from := c.state
	if len(allowed) > 0 && !slices.Contains(allowed, from) {
		c.mu.Unlock()
		return from, false
	}
	c.state = to
	if to == StateStartFailed {
		c.err = err
	} else if to == StateUp {
		c.err = nil
	}
	c.mu.Unlock()

	for _, l := range c.listeners {
		l.Transition(c, from, to, err)
	}
	return from, true
}

func (c *Controller) setMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

func (c *Controller) dependsOn(name Name) bool {
	return slices.ContainsFunc(c.dependencies, name.Equal)
}

// Status is a point-in-time snapshot of a controller, suitable for output.
type Status struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	State        string    `json:"state" yaml:"state"`
	Mode         string    `json:"mode" yaml:"mode"`
	Dependencies []string  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	RegisteredAt time.Time `json:"registered_at" yaml:"registered_at"`
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		ID:           c.id.String(),
		Name:         c.name.String(),
		State:        c.state.String(),
		Mode:         c.mode.String(),
		RegisteredAt: c.registeredAt,
	}
	for _, d := range c.dependencies {
		st.Dependencies = append(st.Dependencies, d.String())
	}
	if c.err != nil {
		st.Error = c.err.Error()
	}
	return st
}
