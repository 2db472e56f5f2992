//go:build integration

package jpa

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/datastore/storetest"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	// "ready to accept connections" is logged once during bootstrap and
	// once when the server is really up.
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pushstore"),
		postgres.WithUsername("pushstore"),
		postgres.WithPassword("pushstore"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := datasource.Config{
		JNDIName: "java:jboss/datasources/PushStoreDS",
		Type:     datasource.TypePostgres,
		Postgres: datasource.PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "pushstore",
			User:     "pushstore",
			Password: "pushstore",
			SSLMode:  "disable",
		},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	db, err := datasource.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresStoreConformance(t *testing.T) {
	db := openPostgres(t)
	var n atomic.Int32
	storetest.Run(t, func(t *testing.T) datastore.Store {
		s, err := NewStore(context.Background(), db, fmt.Sprintf("pu%d", n.Add(1)))
		require.NoError(t, err)
		return s
	})
}
