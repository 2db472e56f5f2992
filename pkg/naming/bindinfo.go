// Package naming publishes resources under JNDI-style names so that other
// services can discover them, and derives the names of the binder services
// that perform the publication.
package naming

import (
	"strings"

	"github.com/marmos91/pushstore/pkg/service"
)

// Naming context service names. Every binder service lives below one of them.
var (
	ContextServiceName         = service.NewName("naming", "context")
	JavaContextServiceName     = ContextServiceName.Append("java")
	JBossContextServiceName    = JavaContextServiceName.Append("jboss")
	ExportedContextServiceName = JBossContextServiceName.Append("exported")
	GlobalContextServiceName   = JavaContextServiceName.Append("global")
)

// BindInfo describes where a JNDI name is bound: the naming context that owns
// it and the name relative to that context.
type BindInfo struct {
	parentContext service.Name
	contextPath   string
	bindName      string
}

// BindInfoFor derives the BindInfo for a JNDI name.
//
// The "java:" scheme is optional. Names starting with "jboss/exported/",
// "jboss/", "global/" or "/" map to the matching context; other relative
// names are placed in the java: context. Names that match no context
// (e.g. "jbossdata/x") produce an invalid BindInfo.
//
// The transform is pure: it performs no lookup and has no side effects.
func BindInfoFor(jndiName string) BindInfo {
	var bindName string
	switch {
	case strings.HasPrefix(jndiName, "java:"):
		bindName = strings.TrimPrefix(jndiName, "java:")
	case !strings.HasPrefix(jndiName, "jboss") && !strings.HasPrefix(jndiName, "global") && !strings.HasPrefix(jndiName, "/"):
		bindName = "/" + jndiName
	default:
		bindName = jndiName
	}

	switch {
	case strings.HasPrefix(bindName, "jboss/exported/"):
		return BindInfo{ExportedContextServiceName, "jboss/exported", bindName[len("jboss/exported/"):]}
	case strings.HasPrefix(bindName, "jboss/"):
		return BindInfo{JBossContextServiceName, "jboss", bindName[len("jboss/"):]}
	case strings.HasPrefix(bindName, "global/"):
		return BindInfo{GlobalContextServiceName, "global", bindName[len("global/"):]}
	case strings.HasPrefix(bindName, "/"):
		return BindInfo{JavaContextServiceName, "", bindName[1:]}
	default:
		return BindInfo{}
	}
}

// Valid reports whether the name mapped to a known context and has a
// non-empty bind name.
func (b BindInfo) Valid() bool {
	return !b.parentContext.IsZero() && strings.Trim(b.bindName, "/") != ""
}

// ParentContextServiceName returns the name of the owning context.
func (b BindInfo) ParentContextServiceName() service.Name {
	return b.parentContext
}

// BindName returns the name relative to the owning context.
func (b BindInfo) BindName() string {
	return b.bindName
}

// BinderServiceName returns the name of the service that binds this entry.
// Each path element of the bind name becomes a name segment, so
// "java:jboss/datasources/ExampleDS" gives
// "naming.context.java.jboss.datasources.ExampleDS".
func (b BindInfo) BinderServiceName() service.Name {
	if !b.Valid() {
		return service.Name{}
	}
	return b.parentContext.Append(strings.Split(b.bindName, "/")...)
}

// AbsoluteJNDIName returns the canonical "java:" form of the name.
func (b BindInfo) AbsoluteJNDIName() string {
	if !b.Valid() {
		return ""
	}
	if b.contextPath == "" {
		return "java:" + b.bindName
	}
	return "java:" + b.contextPath + "/" + b.bindName
}

// String implements fmt.Stringer.
func (b BindInfo) String() string {
	return b.AbsoluteJNDIName()
}
