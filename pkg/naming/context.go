package naming

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	// ErrNameNotBound is returned by Lookup and Unbind for unknown names.
	ErrNameNotBound = errors.New("name not bound")

	// ErrAlreadyBound is returned by Bind when the name is taken.
	ErrAlreadyBound = errors.New("name already bound")
)

// Context is a flat, concurrency-safe naming context keyed by absolute JNDI
// name ("java:jboss/datasources/ExampleDS").
type Context struct {
	mu       sync.RWMutex
	bindings map[string]any
}

// NewContext creates an empty naming context.
func NewContext() *Context {
	return &Context{bindings: make(map[string]any)}
}

// Bind publishes value under the absolute name.
func (c *Context) Bind(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.bindings[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, name)
	}
	c.bindings[name] = value
	return nil
}

// Unbind removes the binding for name.
func (c *Context) Unbind(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.bindings[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNameNotBound, name)
	}
	delete(c.bindings, name)
	return nil
}

// Lookup returns the value bound under name. Relative names are resolved
// the same way BindInfoFor resolves them.
func (c *Context) Lookup(name string) (any, error) {
	abs := name
	if info := BindInfoFor(name); info.Valid() {
		abs = info.AbsoluteJNDIName()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.bindings[abs]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNameNotBound, name)
	}
	return v, nil
}

// List returns all bound names, sorted.
func (c *Context) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.bindings))
}
