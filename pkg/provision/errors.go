package provision

import (
	"errors"
	"fmt"

	"github.com/marmos91/pushstore/pkg/datastore"
)

var (
	// ErrMissingAttribute is matched when a required attribute is absent or nil.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrInvalidAttribute is matched when an attribute is present but has the
	// wrong type or violates a constraint.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrInvalidAddress is returned for addresses without a server instance
	// and a datastore element.
	ErrInvalidAddress = errors.New("invalid address")
)

// AttributeError reports a problem with one attribute of a datastore
// configuration. It matches ErrMissingAttribute or ErrInvalidAttribute via
// errors.Is, and also its Cause when set.
type AttributeError struct {
	Kind      datastore.Kind
	Attribute string
	Err       error
	Cause     error
}

func (e *AttributeError) Error() string {
	msg := fmt.Sprintf("%s datastore: %v %q", e.Kind, e.Err, e.Attribute)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AttributeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func missing(kind datastore.Kind, attr string) error {
	return &AttributeError{Kind: kind, Attribute: attr, Err: ErrMissingAttribute}
}

func invalid(kind datastore.Kind, attr string, cause error) error {
	return &AttributeError{Kind: kind, Attribute: attr, Err: ErrInvalidAttribute, Cause: cause}
}
