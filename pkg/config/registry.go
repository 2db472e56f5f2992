package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/naming"
	"github.com/marmos91/pushstore/pkg/provision"
	"github.com/marmos91/pushstore/pkg/service"
)

// Services is what InitializeServices registered.
type Services struct {
	// Naming is the context datasources are bound into.
	Naming *naming.Context

	// Datasources holds the binder handle of each configured datasource.
	Datasources []service.Handle

	// Servers holds the datastore handle of each configured server, in
	// configuration order.
	Servers []service.Handle

	verifier *service.VerificationListener
}

// Verify returns the start failures of the provisioned datastores, or nil
// when every one of them is UP or still waiting on its dependencies.
func (s *Services) Verify() error {
	return s.verifier.Verify()
}

// InitializeServices registers everything cfg describes on target:
//  1. Installs every datasource and its naming binder
//  2. Provisions the datastore of every server through the provisioning engine
//
// Registration stops at the first error; services registered before it
// stay registered and are released by the target's shutdown. Start
// failures do not fail initialization; check them with Services.Verify.
//
// Example:
//
//	c := service.NewContainer(metrics.NewServiceMetrics())
//	svcs, err := config.InitializeServices(ctx, cfg, c, provision.WithMetrics(metrics.NewProvisionMetrics()))
//	if err != nil {
//	    return err
//	}
//	if err := svcs.Verify(); err != nil {
//	    logger.Warn("Some datastores failed to start", logger.KeyError, err)
//	}
func InitializeServices(ctx context.Context, cfg *Config, target service.Target, opts ...provision.Option) (*Services, error) {
	logger.Debug("Initializing services from configuration")

	if err := validateServicesConfig(cfg, target); err != nil {
		return nil, err
	}

	svcs := &Services{
		Naming:   naming.NewContext(),
		verifier: service.NewVerificationListener(),
	}

	for _, ds := range cfg.Datasources {
		h, err := datasource.Install(ctx, target, svcs.Naming, ds)
		if err != nil {
			return nil, fmt.Errorf("failed to install datasource %q: %w", ds.JNDIName, err)
		}
		svcs.Datasources = append(svcs.Datasources, h)
	}
	if len(svcs.Datasources) > 0 {
		logger.Info("Installed datasources", logger.KeyCount, len(svcs.Datasources))
	}

	engineOpts := append([]provision.Option{provision.WithListeners(svcs.verifier)}, opts...)
	engine := provision.NewEngine(target, engineOpts...)
	for _, srv := range cfg.Servers {
		h, err := engine.Provision(ctx, srv.Operation())
		if err != nil {
			return nil, fmt.Errorf("failed to provision server %q: %w", srv.Name, err)
		}
		svcs.Servers = append(svcs.Servers, h)
	}
	logger.Info("Provisioned servers", logger.KeyCount, len(svcs.Servers))

	return svcs, nil
}

func validateServicesConfig(cfg *Config, target service.Target) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	if target == nil {
		return errors.New("service target is nil")
	}
	if len(cfg.Servers) == 0 {
		return errors.New("no servers configured: at least one server is required")
	}
	return nil
}
