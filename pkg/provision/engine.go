package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/internal/telemetry"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/datastore/couchdb"
	"github.com/marmos91/pushstore/pkg/datastore/jpa"
	"github.com/marmos91/pushstore/pkg/datastore/memory"
	"github.com/marmos91/pushstore/pkg/datastore/redis"
	"github.com/marmos91/pushstore/pkg/naming"
	"github.com/marmos91/pushstore/pkg/service"
)

// Outcome labels reported to Metrics, logs and spans.
const (
	OutcomeSuccess                 = "success"
	OutcomeInvalidAddress          = "invalid_address"
	OutcomeUnknownKind             = "unknown_kind"
	OutcomeMissingAttribute        = "missing_attribute"
	OutcomeInvalidAttribute        = "invalid_attribute"
	OutcomeNameConflict            = "name_conflict"
	OutcomeDependencyUnsatisfiable = "dependency_unsatisfiable"
	OutcomeNotFound                = "not_found"
	OutcomeInUse                   = "in_use"
	OutcomeCanceled                = "canceled"
	OutcomeError                   = "error"
)

// Operation is a request to provision the datastore of one server instance.
type Operation struct {
	// Address ends with the datastore element; element 1 names the server.
	Address Address

	// Attributes holds the datastore configuration. Attributes that do not
	// belong to the addressed kind are ignored.
	Attributes *Attributes

	// Listener, when set, is attached to the registered service so the
	// caller can verify that it started.
	Listener service.Listener
}

// Metrics records provisioning activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveProvision(kind, outcome string, d time.Duration)
	ObserveDeprovision(outcome string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics sets the metrics sink. A nil Metrics disables recording.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithListeners attaches listeners to every service the engine registers.
func WithListeners(listeners ...service.Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, listeners...) }
}

// Engine turns datastore configuration into service registrations.
//
// It holds no per-request state: every call builds a fresh service and
// performs at most one registration.
type Engine struct {
	target    service.Target
	metrics   Metrics
	listeners []service.Listener
}

// NewEngine creates an Engine registering into target.
func NewEngine(target service.Target, opts ...Option) *Engine {
	e := &Engine{target: target}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan builds the registration request for op without registering it.
//
// The request is named simplepush.datastore.<server>, is ACTIVE, and for
// JPA depends on the binder service of the datasource reference.
func (e *Engine) Plan(op Operation) (service.Request, error) {
	req, _, err := e.plan(op)
	return req, err
}

func (e *Engine) plan(op Operation) (service.Request, datastore.Kind, error) {
	serverID, err := op.Address.ServerInstanceID()
	if err != nil {
		return service.Request{}, 0, err
	}
	discriminator, err := op.Address.Discriminator()
	if err != nil {
		return service.Request{}, 0, err
	}
	kind, err := datastore.ParseKind(discriminator)
	if err != nil {
		return service.Request{}, 0, err
	}
	backend, err := ExtractBackend(kind, op.Attributes)
	if err != nil {
		return service.Request{}, kind, err
	}

	svc, deps := descriptor(backend)

	listeners := make([]service.Listener, 0, len(e.listeners)+1)
	listeners = append(listeners, e.listeners...)
	if op.Listener != nil {
		listeners = append(listeners, op.Listener)
	}

	return service.Request{
		Name:         datastore.ServiceName(serverID),
		Service:      svc,
		Dependencies: deps,
		Mode:         service.ModeActive,
		Listeners:    listeners,
	}, kind, nil
}

// descriptor constructs the datastore service for b and the names of the
// services it depends on.
func descriptor(b Backend) (service.Service, []service.Name) {
	switch b := b.(type) {
	case JPABackend:
		binder := naming.BindInfoFor(b.DatasourceReference).BinderServiceName()
		return jpa.NewService(b.PersistenceUnit), []service.Name{binder}
	case RedisBackend:
		return redis.NewService(b.Host, b.Port), nil
	case DocumentStoreBackend:
		return couchdb.NewService(b.URL, b.DatabaseName), nil
	case InMemoryBackend:
		return memory.NewService(), nil
	default:
		panic(fmt.Sprintf("provision: unhandled backend %T", b))
	}
}

// Provision plans op and hands the request to the registry. Nothing is
// registered when planning fails or ctx is done before the handoff.
// Registry errors (service.ErrNameConflict,
// service.ErrDependencyUnsatisfiable) are returned wrapped.
//
// A service that fails to start is still registered; op.Listener sees the
// START_FAILED transition.
func (e *Engine) Provision(ctx context.Context, op Operation) (h service.Handle, err error) {
	start := time.Now()
	kind := datastore.Kind(0)

	ctx, span := telemetry.StartProvisionSpan(ctx, telemetry.SpanProvision,
		telemetry.Address(op.Address.String()),
		telemetry.AttributeCount(op.Attributes.Len()))
	defer span.End()

	lc := logger.NewLogContext("provision").WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	if id, idErr := op.Address.ServerInstanceID(); idErr == nil {
		lc = lc.WithServer(id)
		telemetry.SetAttributes(ctx, telemetry.Server(id))
	}
	ctx = logger.WithContext(ctx, lc)

	defer func() {
		outcome := outcomeOf(err)
		telemetry.SetAttributes(ctx, telemetry.Outcome(outcome))
		telemetry.RecordError(ctx, err)
		if e.metrics != nil {
			e.metrics.ObserveProvision(kindLabel(kind), outcome, time.Since(start))
		}
		if err != nil {
			logger.WarnCtx(ctx, "Datastore provisioning failed",
				logger.KeyOutcome, outcome,
				logger.KeyDurationMs, lc.DurationMs(),
				logger.KeyError, err)
		}
	}()

	req, kind, err := e.plan(op)
	if err != nil {
		var attrErr *AttributeError
		if errors.As(err, &attrErr) {
			telemetry.SetAttributes(ctx, telemetry.Attribute(attrErr.Attribute))
		}
		return nil, fmt.Errorf("provision %s: %w", op.Address, err)
	}

	deps := make([]string, len(req.Dependencies))
	for i, d := range req.Dependencies {
		deps[i] = d.String()
	}
	lc = lc.WithKind(kind.String()).WithService(req.Name.String())
	ctx = logger.WithContext(ctx, lc)
	telemetry.SetAttributes(ctx,
		telemetry.Kind(kind.String()),
		telemetry.ServiceName(req.Name.String()),
		telemetry.Mode(req.Mode.String()),
		telemetry.Dependencies(deps))
	logger.DebugCtx(ctx, "Registering datastore service", logger.Dependencies(deps))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("provision %s: %w", op.Address, err)
	}

	h, err = e.target.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provision %s: %w", op.Address, err)
	}

	telemetry.SetAttributes(ctx, telemetry.State(h.State().String()))
	logger.InfoCtx(ctx, "Datastore provisioned",
		logger.KeyState, h.State().String(),
		logger.KeyDurationMs, lc.DurationMs())
	return h, nil
}

// Deprovision removes the datastore service of the server named by addr.
// It fails with service.ErrServiceNotFound when nothing is registered and
// with service.ErrServiceInUse while other services depend on it.
func (e *Engine) Deprovision(ctx context.Context, addr Address) (err error) {
	ctx, span := telemetry.StartProvisionSpan(ctx, telemetry.SpanDeprovision, telemetry.Address(addr.String()))
	defer span.End()

	defer func() {
		outcome := outcomeOf(err)
		telemetry.SetAttributes(ctx, telemetry.Outcome(outcome))
		telemetry.RecordError(ctx, err)
		if e.metrics != nil {
			e.metrics.ObserveDeprovision(outcome)
		}
	}()

	serverID, err := addr.ServerInstanceID()
	if err != nil {
		return fmt.Errorf("deprovision %s: %w", addr, err)
	}
	name := datastore.ServiceName(serverID)
	ctx = logger.WithContext(ctx, logger.NewLogContext("deprovision").WithServer(serverID).WithService(name.String()))

	if err := e.target.Remove(ctx, name); err != nil {
		logger.WarnCtx(ctx, "Datastore deprovisioning failed", logger.KeyError, err)
		return fmt.Errorf("deprovision %s: %w", addr, err)
	}
	logger.InfoCtx(ctx, "Datastore deprovisioned")
	return nil
}

// outcomeOf classifies err into an outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidAddress):
		return OutcomeInvalidAddress
	case errors.Is(err, datastore.ErrUnknownKind):
		return OutcomeUnknownKind
	case errors.Is(err, ErrMissingAttribute):
		return OutcomeMissingAttribute
	case errors.Is(err, ErrInvalidAttribute):
		return OutcomeInvalidAttribute
	case errors.Is(err, service.ErrNameConflict):
		return OutcomeNameConflict
	case errors.Is(err, service.ErrDependencyUnsatisfiable):
		return OutcomeDependencyUnsatisfiable
	case errors.Is(err, service.ErrServiceNotFound):
		return OutcomeNotFound
	case errors.Is(err, service.ErrServiceInUse):
		return OutcomeInUse
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

func kindLabel(k datastore.Kind) string {
	if !k.Valid() {
		return "unknown"
	}
	return k.String()
}
