package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/internal/telemetry"
)

// Registration outcomes reported to Metrics.
const (
	OutcomeRegistered              = "registered"
	OutcomeNameConflict            = "name_conflict"
	OutcomeDependencyUnsatisfiable = "dependency_unsatisfiable"
	OutcomeInvalid                 = "invalid"
)

// Container is a thread-safe registry of named services that starts and stops
// them in dependency order.
type Container struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
	order       []*Controller // registration order; dependencies always precede dependents

	metrics Metrics
}

// NewContainer creates an empty Container. metrics may be nil.
func NewContainer(metrics Metrics) *Container {
	return &Container{
		controllers: make(map[string]*Controller),
		metrics:     metrics,
	}
}

// Register adds a service to the container.
//
// The registration is rejected with ErrNameConflict if the name is taken and
// with ErrDependencyUnsatisfiable if a dependency is not registered; in both
// cases the container is unchanged. Once registered, an ACTIVE service is
// started if all of its dependencies are (or can be brought) UP. A start
// failure does not fail the registration; it is visible through the
// controller state and the request's listeners.
func (c *Container) Register(ctx context.Context, req Request) (Handle, error) {
	ctrl, err := c.Install(ctx, req)
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Install is Register returning the concrete *Controller.
func (c *Container) Install(ctx context.Context, req Request) (*Controller, error) {
	if req.Name.IsZero() || req.Service == nil {
		c.observeRegistration(OutcomeInvalid)
		return nil, &RegistrationError{Name: req.Name, Err: ErrInvalidRequest}
	}

	c.mu.Lock()
	key := req.Name.String()
	if _, exists := c.controllers[key]; exists {
		c.mu.Unlock()
		c.observeRegistration(OutcomeNameConflict)
		return nil, &RegistrationError{Name: req.Name, Err: ErrNameConflict}
	}
	for _, dep := range req.Dependencies {
		if _, ok := c.controllers[dep.String()]; !ok {
			c.mu.Unlock()
			c.observeRegistration(OutcomeDependencyUnsatisfiable)
			return nil, &RegistrationError{Name: req.Name, Dependency: dep, Err: ErrDependencyUnsatisfiable}
		}
	}
	ctrl := newController(req)
	c.controllers[key] = ctrl
	c.order = append(c.order, ctrl)
	c.mu.Unlock()

	c.observeRegistration(OutcomeRegistered)
	logger.Debug("Service registered",
		logger.KeyService, key,
		logger.KeyMode, req.Mode.String(),
		logger.KeyDependencies, len(req.Dependencies))

	if req.Mode == ModeActive {
		c.start(ctx, ctrl)
	}
	return ctrl, nil
}

// Lookup returns the controller registered under name.
func (c *Container) Lookup(name Name) (*Controller, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctrl, ok := c.controllers[name.String()]
	return ctrl, ok
}

// Names returns all registered names in registration order.
func (c *Container) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]Name, 0, len(c.order))
	for _, ctrl := range c.order {
		names = append(names, ctrl.name)
	}
	return names
}

// Controllers returns all controllers in registration order.
func (c *Container) Controllers() []*Controller {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Count returns the number of registered services.
func (c *Container) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// SetMode changes the activation mode of a registered service. Switching to
// ModeActive starts it when possible, retrying a failed start; switching to
// ModeNever stops it and all of its dependents.
func (c *Container) SetMode(ctx context.Context, name Name, mode Mode) error {
	ctrl, ok := c.Lookup(name)
	if !ok {
		return &RegistrationError{Name: name, Err: ErrServiceNotFound}
	}
	ctrl.setMode(mode)

	switch mode {
	case ModeActive:
		c.reset(ctrl)
		c.start(ctx, ctrl)
	case ModeNever:
		for _, dep := range c.dependentsOf(name) {
			if err := c.SetMode(ctx, dep.name, ModeNever); err != nil {
				return err
			}
		}
		return c.stop(ctx, ctrl)
	}
	return nil
}

// Remove stops and unregisters a service. Services that still have
// registered dependents cannot be removed.
func (c *Container) Remove(ctx context.Context, name Name) error {
	c.mu.Lock()
	key := name.String()
	ctrl, ok := c.controllers[key]
	if !ok {
		c.mu.Unlock()
		return &RegistrationError{Name: name, Err: ErrServiceNotFound}
	}
	for _, other := range c.order {
		if other != ctrl && other.dependsOn(name) {
			c.mu.Unlock()
			return &RegistrationError{Name: name, Dependency: other.name, Err: ErrServiceInUse}
		}
	}
	delete(c.controllers, key)
	c.order = slices.DeleteFunc(c.order, func(o *Controller) bool { return o == ctrl })
	c.mu.Unlock()

	err := c.stop(ctx, ctrl)
	c.setState(ctrl, StateRemoved, nil)
	logger.Debug("Service removed", logger.KeyService, key)
	return err
}

// Shutdown stops every service in reverse registration order, which is a
// valid reverse dependency order. All services are attempted; errors are joined.
func (c *Container) Shutdown(ctx context.Context) error {
	ctrls := c.Controllers()
	var errs []error
	for i := len(ctrls) - 1; i >= 0; i-- {
		if err := c.stop(ctx, ctrls[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// start brings ctrl UP if its mode and dependencies allow it, then starts any
// ACTIVE dependents that were waiting on it.
func (c *Container) start(ctx context.Context, ctrl *Controller) {
	if !c.startOne(ctx, ctrl, ctrl.Mode()) {
		return
	}
	for _, dep := range c.dependentsOf(ctrl.name) {
		if dep.Mode() == ModeActive && dep.State() == StateDown {
			c.start(ctx, dep)
		}
	}
}

// startOne starts a single service. demand is the mode of the requester:
// ModeActive when an active service (or the service itself) needs it.
func (c *Container) startOne(ctx context.Context, ctrl *Controller, demand Mode) bool {
	if ctrl.Mode() == ModeNever || demand != ModeActive {
		return false
	}
	if ctrl.State() == StateUp {
		return true
	}

	for _, depName := range ctrl.dependencies {
		dep, ok := c.Lookup(depName)
		if !ok {
			return false
		}
		if dep.State() == StateUp {
			continue
		}
		if dep.Mode() == ModeOnDemand && dep.State() == StateDown {
			if !c.startOne(ctx, dep, ModeActive) {
				return false
			}
			continue
		}
		return false
	}

	if _, ok := ctrl.transition(StateStarting, nil, StateDown); !ok {
		return ctrl.State() == StateUp
	}
	c.observeTransition(StateDown, StateStarting)

	spanCtx, span := telemetry.StartServiceSpan(ctx, telemetry.SpanServiceStart, ctrl.name.String(),
		telemetry.Mode(ctrl.Mode().String()))
	defer span.End()

	if err := ctrl.svc.Start(spanCtx, &dependencies{container: c, names: ctrl.dependencies}); err != nil {
		telemetry.RecordError(spanCtx, err)
		c.setState(ctrl, StateStartFailed, err)
		logger.Error("Service failed to start", logger.KeyService, ctrl.name.String(), logger.KeyError, err)
		return false
	}
	c.setState(ctrl, StateUp, nil)
	logger.Debug("Service started", logger.KeyService, ctrl.name.String())
	return true
}

// stop brings ctrl DOWN after stopping its running dependents.
func (c *Container) stop(ctx context.Context, ctrl *Controller) error {
	var errs []error
	for _, dep := range c.dependentsOf(ctrl.name) {
		if err := c.stop(ctx, dep); err != nil {
			errs = append(errs, err)
		}
	}

	if _, ok := ctrl.transition(StateStopping, nil, StateUp); !ok {
		c.reset(ctrl)
		return errors.Join(errs...)
	}
	c.observeTransition(StateUp, StateStopping)

	spanCtx, span := telemetry.StartServiceSpan(ctx, telemetry.SpanServiceStop, ctrl.name.String())
	defer span.End()

	if err := ctrl.svc.Stop(spanCtx); err != nil {
		telemetry.RecordError(spanCtx, err)
		errs = append(errs, fmt.Errorf("stop %s: %w", ctrl.name, err))
		logger.Warn("Service stop error", logger.KeyService, ctrl.name.String(), logger.KeyError, err)
	}
	c.setState(ctrl, StateDown, nil)
	return errors.Join(errs...)
}

// reset moves a START_FAILED service back to DOWN, where start picks it up.
func (c *Container) reset(ctrl *Controller) {
	if _, failed := ctrl.transition(StateDown, nil, StateStartFailed); failed {
		c.observeTransition(StateStartFailed, StateDown)
	}
}

func (c *Container) setState(ctrl *Controller, to State, err error) {
	from, _ := ctrl.transition(to, err)
	c.observeTransition(from, to)
}

func (c *Container) dependentsOf(name Name) []*Controller {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Controller
	for _, ctrl := range c.order {
		if ctrl.dependsOn(name) {
			out = append(out, ctrl)
		}
	}
	return out
}

func (c *Container) observeRegistration(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveRegistration(outcome)
	}
}

func (c *Container) observeTransition(from, to State) {
	if c.metrics != nil {
		c.metrics.ObserveTransition(from, to)
	}
}

// dependencies is the Dependencies view handed to a starting service.
type dependencies struct {
	container *Container
	names     []Name
}

func (d *dependencies) Names() []Name {
	return slices.Clone(d.names)
}

func (d *dependencies) Value(name Name) (any, error) {
	if !slices.ContainsFunc(d.names, name.Equal) {
		return nil, fmt.Errorf("%s is not a declared dependency", name)
	}
	ctrl, ok := d.container.Lookup(name)
	if !ok {
		return nil, &RegistrationError{Name: name, Err: ErrServiceNotFound}
	}
	return ctrl.Value()
}
