package jpa

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/datastore/storetest"
	"github.com/marmos91/pushstore/pkg/naming"
	"github.com/marmos91/pushstore/pkg/service"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := datasource.Open(context.Background(), datasource.Config{
		JNDIName: "java:jboss/datasources/TestDS",
		Type:     datasource.TypeSQLite,
		SQLite:   datasource.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestStoreConformance(t *testing.T) {
	db := openSQLite(t)
	var n atomic.Int32
	storetest.Run(t, func(t *testing.T) datastore.Store {
		s, err := NewStore(context.Background(), db, fmt.Sprintf("pu%d", n.Add(1)))
		require.NoError(t, err)
		return s
	})
}

func TestPersistenceUnitsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)

	a, err := NewStore(ctx, db, "alpha")
	require.NoError(t, err)
	b, err := NewStore(ctx, db, "beta")
	require.NoError(t, err)

	require.NoError(t, a.SaveChannel(ctx, datastore.Channel{UAID: "ua", ChannelID: "ch", EndpointToken: "t"}))
	_, err = b.Channel(ctx, "ch")
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)

	assert.True(t, db.Migrator().HasTable("alpha_channels"))
	assert.True(t, db.Migrator().HasTable("beta_acks"))
}

func TestNewStoreIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)

	s1, err := NewStore(ctx, db, "pu")
	require.NoError(t, err)
	require.NoError(t, s1.SaveChannel(ctx, datastore.Channel{UAID: "ua", ChannelID: "ch", EndpointToken: "t"}))

	s2, err := NewStore(ctx, db, "pu")
	require.NoError(t, err)
	ch, err := s2.Channel(ctx, "ch")
	require.NoError(t, err)
	assert.Equal(t, "ua", ch.UAID)
}

func TestStoreClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewStore(ctx, openSQLite(t), "pu")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ChannelIDs(ctx, "ua")
	assert.ErrorIs(t, err, datastore.ErrClosed)
}

func TestServiceUsesBoundDatasource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := service.NewContainer(nil)
	nc := naming.NewContext()

	binder, err := datasource.Install(ctx, c, nc, datasource.Config{
		JNDIName: "java:jboss/datasources/ExampleDS",
		Type:     datasource.TypeSQLite,
		SQLite:   datasource.SQLiteConfig{Path: filepath.Join(t.TempDir(), "example.db")},
	})
	require.NoError(t, err)

	svc := NewService("pu1")
	assert.Equal(t, "pu1", svc.PersistenceUnit())
	assert.Equal(t, datastore.KindJPA, svc.Kind())

	h, err := c.Register(ctx, service.Request{
		Name:         datastore.ServiceName("default"),
		Service:      svc,
		Dependencies: []service.Name{binder.Name()},
	})
	require.NoError(t, err)
	require.Equal(t, service.StateUp, h.State())

	v, err := h.Value()
	require.NoError(t, err)
	store := v.(datastore.Store)
	require.NoError(t, store.SavePrivateKeySalt(ctx, []byte("salt")))

	require.NoError(t, c.Shutdown(ctx))
	assert.Nil(t, svc.Value())
}

func TestServiceWithoutDatasourceFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := service.NewContainer(nil)

	ctrl, err := c.Install(ctx, service.Request{Name: datastore.ServiceName("default"), Service: NewService("pu1")})
	require.NoError(t, err)
	assert.Equal(t, service.StateStartFailed, ctrl.State())
	assert.ErrorContains(t, ctrl.Err(), "pu1")
}
