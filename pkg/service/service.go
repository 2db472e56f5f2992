package service

import (
	"context"
	"fmt"
)

// Service is a unit whose lifecycle is managed by the Container.
//
// Start is called once every dependency is UP. deps exposes the values of
// those dependencies. Stop is called before the service's dependencies are
// stopped.
type Service interface {
	Start(ctx context.Context, deps Dependencies) error
	Stop(ctx context.Context) error
}

// ValueService is a Service that publishes a value to its dependents once UP.
type ValueService interface {
	Service
	Value() any
}

// Dependencies gives a starting service access to its dependencies.
type Dependencies interface {
	// Names returns the dependency names in declaration order.
	Names() []Name

	// Value returns the published value of the named dependency.
	Value(name Name) (any, error)
}

// DependencyOf returns the value of the first dependency whose published value
// has type T.
func DependencyOf[T any](deps Dependencies) (T, error) {
	var zero T
	if deps == nil {
		return zero, fmt.Errorf("no dependencies available for %T", zero)
	}
	for _, name := range deps.Names() {
		v, err := deps.Value(name)
		if err != nil {
			return zero, err
		}
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	return zero, fmt.Errorf("no dependency publishes a value of type %T", zero)
}

// Request describes a service registration.
type Request struct {
	// Name is the unique name the service is registered under.
	Name Name

	// Service is the instance to manage. Ownership transfers to the registry.
	Service Service

	// Dependencies lists services that must be UP before Service starts.
	Dependencies []Name

	// Mode is the initial activation mode.
	Mode Mode

	// Listeners are notified of every state transition of the service.
	Listeners []Listener
}

// Handle is what a registry returns for a registered service.
type Handle interface {
	Name() Name
	State() State
	Value() (any, error)
}

// Target is the registration surface of a service registry.
type Target interface {
	Register(ctx context.Context, req Request) (Handle, error)
	Remove(ctx context.Context, name Name) error
}
