package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	t.Parallel()

	t.Run("append renders dotted form", func(t *testing.T) {
		t.Parallel()
		n := NewName("simplepush", "datastore").Append("default")
		assert.Equal(t, "simplepush.datastore.default", n.String())
		assert.Equal(t, 3, n.Len())
		assert.Equal(t, "default", n.Last())
	})

	t.Run("append does not alias the receiver", func(t *testing.T) {
		t.Parallel()
		base := NewName("a", "b")
		x := base.Append("x")
		y := base.Append("y")
		assert.Equal(t, "a.b.x", x.String())
		assert.Equal(t, "a.b.y", y.String())
		assert.Equal(t, "a.b", base.String())
	})

	t.Run("empty segments are dropped", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "a.b", NewName("", "a", "", "b").String())
		assert.True(t, NewName().IsZero())
	})

	t.Run("parent and prefix", func(t *testing.T) {
		t.Parallel()
		n := ParseName("naming.context.java.jboss")
		assert.Equal(t, "naming.context.java", n.Parent().String())
		assert.True(t, n.Parent().IsParentOf(n))
		assert.False(t, n.IsParentOf(n))
		assert.False(t, n.IsParentOf(n.Parent()))
	})

	t.Run("segments with dots round trip", func(t *testing.T) {
		t.Parallel()
		n := NewName("datasource", "java:jboss/datasources/Example.DS")
		s := n.String()
		assert.Equal(t, `datasource."java:jboss/datasources/Example.DS"`, s)
		assert.True(t, ParseName(s).Equal(n))
	})

	t.Run("equal compares segments", func(t *testing.T) {
		t.Parallel()
		assert.True(t, ParseName("a.b.c").Equal(NewName("a", "b", "c")))
		assert.False(t, ParseName("a.b").Equal(NewName("a", "b", "c")))
	})

	t.Run("text marshalling", func(t *testing.T) {
		t.Parallel()
		var n Name
		assert.NoError(t, n.UnmarshalText([]byte("x.y")))
		b, err := n.MarshalText()
		assert.NoError(t, err)
		assert.Equal(t, "x.y", string(b))
	})
}
