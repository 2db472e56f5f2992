package logger

import (
	"log/slog"
	"strings"
)

// Standard field keys for structured logging.
// Use these keys consistently so provisioning logs can be aggregated and
// queried by server, backend kind and service name.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Provisioning
	// ========================================================================
	KeyServer     = "server"     // Server instance identifier
	KeyAddress    = "address"    // Management address of the request
	KeyKind       = "kind"       // Backend kind: jpa, redis, couchdb, in-memory
	KeyOperation  = "operation"  // plan, provision, deprovision
	KeyOutcome    = "outcome"    // Provisioning outcome label
	KeyAttribute  = "attribute"  // Attribute name being validated
	KeyAttributes = "attributes" // Number of attributes supplied

	// ========================================================================
	// Service Container
	// ========================================================================
	KeyService      = "service"      // Service name
	KeyDependency   = "dependency"   // Single dependency service name
	KeyDependencies = "dependencies" // Dependency service names
	KeyMode         = "mode"         // Activation mode: ACTIVE, ON_DEMAND, NEVER
	KeyState        = "state"        // Lifecycle state
	KeyFromState    = "from_state"   // Previous lifecycle state

	// ========================================================================
	// Naming & Datasources
	// ========================================================================
	KeyJNDIName   = "jndi_name"   // Absolute JNDI name
	KeyDatasource = "datasource"  // Datasource type: sqlite, postgres
	KeyUnit       = "unit"        // JPA persistence unit
	KeyHost       = "host"        // Backend host
	KeyPort       = "port"        // Backend port
	KeyURL        = "url"         // Document store URL (credentials stripped)
	KeyDatabase   = "database"    // Database name
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Push Data
	// ========================================================================
	KeyUAID      = "uaid"       // User agent identifier
	KeyChannelID = "channel_id" // Channel identifier
	KeyVersion   = "version"    // Notification version
	KeyCount     = "count"      // Number of affected records

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyComponent  = "component"   // Emitting component
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Server returns a slog.Attr for a server instance identifier
func Server(id string) slog.Attr {
	return slog.String(KeyServer, id)
}

// Kind returns a slog.Attr for a backend kind
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Service returns a slog.Attr for a service name
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

// Dependencies returns a slog.Attr listing dependency names, comma separated
func Dependencies(names []string) slog.Attr {
	return slog.String(KeyDependencies, strings.Join(names, ","))
}

// JNDIName returns a slog.Attr for a JNDI name
func JNDIName(name string) slog.Attr {
	return slog.String(KeyJNDIName, name)
}

// UAID returns a slog.Attr for a user agent identifier
func UAID(id string) slog.Attr {
	return slog.String(KeyUAID, id)
}

// ChannelID returns a slog.Attr for a channel identifier
func ChannelID(id string) slog.Attr {
	return slog.String(KeyChannelID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty
// attribute, which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
