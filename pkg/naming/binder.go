package naming

import (
	"context"
	"fmt"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/service"
)

// BinderService publishes the value of its source service in a naming
// Context. It must be registered with the source as its only dependency and
// under BindInfo.BinderServiceName.
type BinderService struct {
	info   BindInfo
	ctx    *Context
	source service.Name

	value any
}

// NewBinderService creates a binder for info that publishes the value of the
// source service into nc.
func NewBinderService(nc *Context, info BindInfo, source service.Name) *BinderService {
	return &BinderService{info: info, ctx: nc, source: source}
}

// Request returns the registration request for this binder.
func (b *BinderService) Request() service.Request {
	return service.Request{
		Name:         b.info.BinderServiceName(),
		Service:      b,
		Dependencies: []service.Name{b.source},
		Mode:         service.ModeActive,
	}
}

// Start implements service.Service.
func (b *BinderService) Start(_ context.Context, deps service.Dependencies) error {
	if !b.info.Valid() {
		return fmt.Errorf("invalid bind info for source %s", b.source)
	}
	v, err := deps.Value(b.source)
	if err != nil {
		return fmt.Errorf("resolve binder source %s: %w", b.source, err)
	}
	if err := b.ctx.Bind(b.info.AbsoluteJNDIName(), v); err != nil {
		return err
	}
	b.value = v
	logger.Debug("Bound naming entry", logger.KeyJNDIName, b.info.AbsoluteJNDIName(), logger.KeyService, b.source.String())
	return nil
}

// Stop implements service.Service.
func (b *BinderService) Stop(context.Context) error {
	b.value = nil
	return b.ctx.Unbind(b.info.AbsoluteJNDIName())
}

// Value implements service.ValueService. It returns the bound value.
func (b *BinderService) Value() any {
	return b.value
}

// BindInfo returns the binding this service publishes.
func (b *BinderService) BindInfo() BindInfo {
	return b.info
}
