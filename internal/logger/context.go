package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds operation-scoped logging fields. It is attached to a
// context.Context by the provisioning engine and picked up by the *Ctx
// logging functions.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Operation string    // plan, provision, deprovision
	Server    string    // Server instance identifier
	Kind      string    // Backend kind token
	Service   string    // Service name being registered
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for the given operation.
func NewLogContext(operation string) *LogContext {
	return &LogContext{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithServer returns a copy with the server instance set
func (lc *LogContext) WithServer(server string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Server = server
	}
	return clone
}

// WithKind returns a copy with the backend kind set
func (lc *LogContext) WithKind(kind string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Kind = kind
	}
	return clone
}

// WithService returns a copy with the service name set
func (lc *LogContext) WithService(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Service = name
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
