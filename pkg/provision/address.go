package provision

import (
	"fmt"
	"strings"
)

// Address elements used by datastore addresses.
const (
	SubsystemKey  = "subsystem"
	SubsystemName = "simplepush"
	ServerKey     = "server"
	DatastoreKey  = "datastore"
)

// PathElement is one key=value step of a management address.
type PathElement struct {
	Key   string
	Value string
}

func (p PathElement) String() string {
	return p.Key + "=" + p.Value
}

// Address locates a datastore in the management model, e.g.
// /subsystem=simplepush/server=default/datastore=jpa. Element 1 names the
// server instance and the last element's value is the backend
// discriminator.
type Address []PathElement

// DatastoreAddress builds the canonical address of a server's datastore.
func DatastoreAddress(serverInstanceID, discriminator string) Address {
	return Address{
		{SubsystemKey, SubsystemName},
		{ServerKey, serverInstanceID},
		{DatastoreKey, discriminator},
	}
}

// ParseAddress parses the "/k=v/k=v" form.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	var addr Address
	for _, part := range strings.Split(trimmed, "/") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("%w: malformed element %q in %q", ErrInvalidAddress, part, s)
		}
		addr = append(addr, PathElement{Key: key, Value: value})
	}
	return addr, nil
}

// ServerInstanceID returns the value of element 1.
func (a Address) ServerInstanceID() (string, error) {
	if len(a) < 2 {
		return "", fmt.Errorf("%w: %q has no server instance element", ErrInvalidAddress, a.String())
	}
	if a[1].Value == "" {
		return "", fmt.Errorf("%w: %q has an empty server instance id", ErrInvalidAddress, a.String())
	}
	return a[1].Value, nil
}

// Discriminator returns the value of the last element.
func (a Address) Discriminator() (string, error) {
	if len(a) < 2 {
		return "", fmt.Errorf("%w: %q has no datastore element", ErrInvalidAddress, a.String())
	}
	return a[len(a)-1].Value, nil
}

func (a Address) String() string {
	var b strings.Builder
	for _, p := range a {
		b.WriteByte('/')
		b.WriteString(p.String())
	}
	return b.String()
}
