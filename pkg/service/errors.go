package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for requests without a name or service.
	ErrInvalidRequest = errors.New("invalid registration request")

	// ErrNameConflict is returned when a service is already registered under the name.
	ErrNameConflict = errors.New("service name already registered")

	// ErrDependencyUnsatisfiable is returned when a dependency is not registered.
	ErrDependencyUnsatisfiable = errors.New("dependency not registered")

	// ErrServiceNotFound is returned when no service is registered under the name.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceInUse is returned when removing a service that still has dependents.
	ErrServiceInUse = errors.New("service has registered dependents")

	// ErrNotUp is returned when reading the value of a service that is not UP.
	ErrNotUp = errors.New("service is not up")

	// ErrStartFailed marks start failures reported by a VerificationListener.
	ErrStartFailed = errors.New("service failed to start")
)

// RegistrationError describes a rejected registration or removal.
type RegistrationError struct {
	Name       Name
	Dependency Name // set for ErrDependencyUnsatisfiable and ErrServiceInUse
	Err        error
}

func (e *RegistrationError) Error() string {
	if !e.Dependency.IsZero() {
		return fmt.Sprintf("service %s: %v: %s", e.Name, e.Err, e.Dependency)
	}
	return fmt.Sprintf("service %s: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
