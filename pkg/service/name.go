package service

import (
	"slices"
	"strings"
)

// Name is an immutable hierarchical service name such as
// "simplepush.datastore.default".
//
// Segments containing a dot or a quote are rendered quoted so that the
// string form stays unambiguous.
type Name struct {
	segments []string
}

// NewName creates a Name from the given segments. Empty segments are dropped.
func NewName(segments ...string) Name {
	n := Name{segments: make([]string, 0, len(segments))}
	for _, s := range segments {
		if s != "" {
			n.segments = append(n.segments, s)
		}
	}
	return n
}

// ParseName parses the dotted string form produced by Name.String.
func ParseName(s string) Name {
	var (
		segments []string
		current  strings.Builder
		quoted   bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			quoted = !quoted
		case c == '\\' && quoted && i+1 < len(s):
			i++
			current.WriteByte(s[i])
		case c == '.' && !quoted:
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	segments = append(segments, current.String())
	return NewName(segments...)
}

// Append returns a new Name with the given segments appended.
func (n Name) Append(segments ...string) Name {
	all := make([]string, 0, len(n.segments)+len(segments))
	all = append(all, n.segments...)
	all = append(all, segments...)
	return NewName(all...)
}

// Parent returns the name without its last segment.
func (n Name) Parent() Name {
	if len(n.segments) == 0 {
		return Name{}
	}
	return NewName(n.segments[:len(n.segments)-1]...)
}

// Last returns the final segment, or "" for the zero Name.
func (n Name) Last() string {
	if len(n.segments) == 0 {
		return ""
	}
	return n.segments[len(n.segments)-1]
}

// Segments returns a copy of the name's segments.
func (n Name) Segments() []string {
	return slices.Clone(n.segments)
}

// Len returns the number of segments.
func (n Name) Len() int {
	return len(n.segments)
}

// IsZero reports whether the name has no segments.
func (n Name) IsZero() bool {
	return len(n.segments) == 0
}

// Equal reports whether both names have identical segments.
func (n Name) Equal(other Name) bool {
	return slices.Equal(n.segments, other.segments)
}

// IsParentOf reports whether n is a strict prefix of other.
func (n Name) IsParentOf(other Name) bool {
	if len(n.segments) >= len(other.segments) {
		return false
	}
	return slices.Equal(n.segments, other.segments[:len(n.segments)])
}

// String renders the canonical dotted form.
func (n Name) String() string {
	var b strings.Builder
	for i, s := range n.segments {
		if i > 0 {
			b.WriteByte('.')
		}
		if strings.ContainsAny(s, `."`) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(s, `"`, `\"`))
			b.WriteByte('"')
			continue
		}
		b.WriteString(s)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	*n = ParseName(string(text))
	return nil
}
