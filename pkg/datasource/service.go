package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/internal/telemetry"
	"github.com/marmos91/pushstore/pkg/naming"
	"github.com/marmos91/pushstore/pkg/service"
)

// ServiceNamePrefix is the parent of every datasource service name.
var ServiceNamePrefix = service.NewName("datasource")

// ErrInvalidJNDIName is returned for JNDI names that map to no naming context.
var ErrInvalidJNDIName = errors.New("invalid JNDI name")

// ServiceName returns the name of the datasource service for cfg.
func ServiceName(jndiName string) service.Name {
	if info := naming.BindInfoFor(jndiName); info.Valid() {
		jndiName = info.AbsoluteJNDIName()
	}
	return ServiceNamePrefix.Append(jndiName)
}

// Service opens a *gorm.DB on start and closes it on stop. Its value is the
// *gorm.DB.
type Service struct {
	cfg Config
	db  *gorm.DB
}

// NewService creates a datasource service. Defaults are applied to cfg.
func NewService(cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Start implements service.Service.
func (s *Service) Start(ctx context.Context, _ service.Dependencies) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	db, err := Open(ctx, s.cfg)
	if err != nil {
		return err
	}
	s.db = db
	logger.Info("Datasource started", logger.KeyJNDIName, s.cfg.JNDIName, logger.KeyDatasource, string(s.cfg.Type))
	return nil
}

// Stop implements service.Service.
func (s *Service) Stop(context.Context) error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// Value returns the open *gorm.DB, or nil when stopped.
func (s *Service) Value() any {
	if s.db == nil {
		return nil
	}
	return s.db
}

// Open connects to the database described by cfg and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg Config) (_ *gorm.DB, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, telemetry.SpanDatasource,
		telemetry.JNDIName(cfg.JNDIName), telemetry.DBSystem(cfg.Type.dbSystem()))
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	var dialector gorm.Dialector
	switch cfg.Type {
	case TypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL for concurrent readers, wait up to 5s on a locked database.
		dialector = sqlite.Open(cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case TypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported datasource type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to datasource %s: %w", cfg.JNDIName, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if cfg.Type == TypePostgres {
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping datasource %s: %w", cfg.JNDIName, err)
	}
	return db, nil
}

// Install registers the datasource service (ON_DEMAND) and the binder that
// publishes it under its JNDI name. If the binder cannot be registered the
// datasource registration is rolled back.
func Install(ctx context.Context, target service.Target, nc *naming.Context, cfg Config) (service.Handle, error) {
	info := naming.BindInfoFor(cfg.JNDIName)
	if !info.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJNDIName, cfg.JNDIName)
	}

	name := ServiceName(cfg.JNDIName)
	if _, err := target.Register(ctx, service.Request{
		Name:    name,
		Service: NewService(cfg),
		Mode:    service.ModeOnDemand,
	}); err != nil {
		return nil, err
	}

	binder := naming.NewBinderService(nc, info, name)
	h, err := target.Register(ctx, binder.Request())
	if err != nil {
		if rmErr := target.Remove(ctx, name); rmErr != nil {
			logger.Warn("Failed to roll back datasource", logger.KeyService, name.String(), logger.KeyError, rmErr)
		}
		return nil, err
	}

	logger.Debug("Datasource installed",
		logger.KeyJNDIName, info.AbsoluteJNDIName(),
		logger.KeyService, name.String(),
		logger.KeyDependency, h.Name().String())
	return h, nil
}
