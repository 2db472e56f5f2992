package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/api"
	"github.com/marmos91/pushstore/pkg/config"
	"github.com/marmos91/pushstore/pkg/metrics"
	"github.com/marmos91/pushstore/pkg/provision"
	"github.com/marmos91/pushstore/pkg/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Provision the configured datastores and run until stopped",
	Long: `Start installs every configured datasource, provisions the datastore
service of every configured server and keeps them running until SIGINT or
SIGTERM is received.

While running, the status API serves /health, /health/ready, /services and,
when metrics are enabled, /metrics.

Examples:
  # Start with the default config location
  pushstore start

  # Start with a custom config file
  pushstore start --config /etc/pushstore/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownObservability, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownObservability(context.Background()); err != nil {
			logger.Error("Observability shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("pushstore - SimplePush datastore provisioning", logger.KeyVersion, Version, "commit", Commit)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	config.InitializeMetrics(cfg)

	container := service.NewContainer(metrics.NewServiceMetrics())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Error("Service shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("All services stopped")
	}()

	svcs, err := config.InitializeServices(ctx, cfg, container, provision.WithMetrics(metrics.NewProvisionMetrics()))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	for _, h := range svcs.Servers {
		logger.Info("Datastore registered", logger.KeyService, h.Name().String(), logger.KeyState, h.State().String())
	}
	if err := svcs.Verify(); err != nil {
		logger.Warn("Some datastores failed to start", logger.KeyError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, container)
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
		logger.Info("Status API enabled", logger.KeyPort, apiServer.Port())
	} else {
		logger.Info("Status API disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.Info("pushstore is running. Press Ctrl+C to stop.", logger.KeyCount, container.Count())

	if err := g.Wait(); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}

	logger.Info("Shutdown signal received, initiating graceful shutdown")
	return nil
}
