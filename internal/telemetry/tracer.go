package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for provisioning spans.
const (
	// ========================================================================
	// Provisioning
	// ========================================================================
	AttrServer       = "pushstore.server"        // Server instance identifier
	AttrAddress      = "pushstore.address"       // Management address
	AttrKind         = "pushstore.datastore"     // Backend kind token
	AttrAttributes   = "pushstore.attributes"    // Number of supplied attributes
	AttrAttribute    = "pushstore.attribute"     // Offending attribute name
	AttrOutcome      = "pushstore.outcome"       // Provisioning outcome label
	AttrOperation    = "pushstore.operation"     // plan, provision, deprovision
	AttrDependencies = "pushstore.dependencies"  // Dependency service names
	AttrPersistUnit  = "pushstore.jpa.unit"      // JPA persistence unit
	AttrJNDIName     = "pushstore.jpa.jndi_name" // Datasource reference

	// ========================================================================
	// Service container
	// ========================================================================
	AttrService = "service.name"  // Registered service name
	AttrMode    = "service.mode"  // ACTIVE, ON_DEMAND, NEVER
	AttrState   = "service.state" // Lifecycle state after handoff

	// ========================================================================
	// Backend endpoints
	// ========================================================================
	AttrServerAddress = "server.address" // Redis host or CouchDB host
	AttrServerPort    = "server.port"
	AttrDBName        = "db.name"
	AttrDBSystem      = "db.system" // sqlite, postgresql, redis, couchdb
)

// Span names.
const (
	SpanPlan         = "provision.plan"
	SpanProvision    = "provision.provision"
	SpanDeprovision  = "provision.deprovision"
	SpanServiceStart = "service.start"
	SpanServiceStop  = "service.stop"
	SpanDatasource   = "datasource.open"
)

// Server returns an attribute for the server instance identifier.
func Server(id string) attribute.KeyValue {
	return attribute.String(AttrServer, id)
}

// Address returns an attribute for a management address.
func Address(addr string) attribute.KeyValue {
	return attribute.String(AttrAddress, addr)
}

// Kind returns an attribute for a backend kind token.
func Kind(token string) attribute.KeyValue {
	return attribute.String(AttrKind, token)
}

// AttributeCount returns an attribute for the number of supplied attributes.
func AttributeCount(n int) attribute.KeyValue {
	return attribute.Int(AttrAttributes, n)
}

// Attribute returns an attribute naming the offending configuration attribute.
func Attribute(name string) attribute.KeyValue {
	return attribute.String(AttrAttribute, name)
}

// Outcome returns an attribute for a provisioning outcome label.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// Dependencies returns an attribute listing dependency service names.
func Dependencies(names []string) attribute.KeyValue {
	return attribute.StringSlice(AttrDependencies, names)
}

// PersistenceUnit returns an attribute for a JPA persistence unit.
func PersistenceUnit(unit string) attribute.KeyValue {
	return attribute.String(AttrPersistUnit, unit)
}

// JNDIName returns an attribute for a datasource JNDI name.
func JNDIName(name string) attribute.KeyValue {
	return attribute.String(AttrJNDIName, name)
}

// ServiceName returns an attribute for a registered service name.
func ServiceName(name string) attribute.KeyValue {
	return attribute.String(AttrService, name)
}

// Mode returns an attribute for a service activation mode.
func Mode(mode string) attribute.KeyValue {
	return attribute.String(AttrMode, mode)
}

// State returns an attribute for a service lifecycle state.
func State(state string) attribute.KeyValue {
	return attribute.String(AttrState, state)
}

// ServerAddress returns an attribute for a backend host.
func ServerAddress(host string) attribute.KeyValue {
	return attribute.String(AttrServerAddress, host)
}

// ServerPort returns an attribute for a backend port.
func ServerPort(port int) attribute.KeyValue {
	return attribute.Int(AttrServerPort, port)
}

// DBName returns an attribute for a database name.
func DBName(name string) attribute.KeyValue {
	return attribute.String(AttrDBName, name)
}

// DBSystem returns an attribute for a database system.
func DBSystem(system string) attribute.KeyValue {
	return attribute.String(AttrDBSystem, system)
}

// StartProvisionSpan starts an internal span for a provisioning operation
// (one of SpanPlan, SpanProvision, SpanDeprovision).
func StartProvisionSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan starts a span around a service lifecycle step.
func StartServiceSpan(ctx context.Context, name, serviceName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{ServiceName(serviceName)}, attrs...)...),
	)
}

// StartClientSpan starts a client span for a call to an external backend.
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}
