package provision

import (
	"encoding/json"
	"maps"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attributes is an ordered bag of already-typed configuration values. A key
// set to nil is treated as absent. The zero value is not usable; call
// NewAttributes.
type Attributes struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewAttributes returns an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{m: orderedmap.New[string, any]()}
}

// AttributesFromMap copies m into a new set, in sorted key order.
func AttributesFromMap(m map[string]any) *Attributes {
	a := NewAttributes()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		a.Set(k, m[k])
	}
	return a
}

// Set stores value under name and returns a for chaining.
func (a *Attributes) Set(name string, value any) *Attributes {
	a.m.Set(name, value)
	return a
}

// Get returns the value of name. Absent and nil values both report false.
func (a *Attributes) Get(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.m.Get(name)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether name is present with a non-nil value.
func (a *Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Delete removes name.
func (a *Attributes) Delete(name string) {
	a.m.Delete(name)
}

// Len returns the number of keys, including nil-valued ones.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Names returns the keys in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Map returns the non-nil values as a plain map.
func (a *Attributes) Map() map[string]any {
	out := make(map[string]any, a.Len())
	if a == nil {
		return out
	}
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil {
			out[pair.Key] = pair.Value
		}
	}
	return out
}

// MarshalJSON renders the attributes as a JSON object in insertion order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.m)
}
