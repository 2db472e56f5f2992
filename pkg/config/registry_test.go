package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marmos91/pushstore/pkg/datasource"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/service"
)

func newContainer(t *testing.T) *service.Container {
	t.Helper()
	c := service.NewContainer(nil)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func TestInitializeServices_InMemory(t *testing.T) {
	c := newContainer(t)

	svcs, err := InitializeServices(t.Context(), GetDefaultConfig(), c)
	require.NoError(t, err)
	require.NoError(t, svcs.Verify())

	require.Len(t, svcs.Servers, 1)
	h := svcs.Servers[0]
	assert.Equal(t, "simplepush.datastore.default", h.Name().String())
	assert.Equal(t, service.StateUp, h.State())

	v, err := h.Value()
	require.NoError(t, err)
	assert.Implements(t, (*datastore.Store)(nil), v)
	assert.Empty(t, svcs.Datasources)
}

func TestInitializeServices_JPA(t *testing.T) {
	c := newContainer(t)

	cfg := GetDefaultConfig()
	cfg.Datasources = []datasource.Config{{
		JNDIName: "java:jboss/datasources/ExampleDS",
		Type:     datasource.TypeSQLite,
		SQLite:   datasource.SQLiteConfig{Path: filepath.Join(t.TempDir(), "example.db")},
	}}
	cfg.Servers = []ServerConfig{
		{Name: "default", Datastore: DatastoreConfig{
			Type: "jpa",
			Attributes: map[string]any{
				"datasource-reference": "java:jboss/datasources/ExampleDS",
				"persistence-unit":     "SimplePushPU",
			},
		}},
		{Name: "scratch", Datastore: DatastoreConfig{Type: "in-memory"}},
	}
	require.NoError(t, Validate(cfg))

	svcs, err := InitializeServices(t.Context(), cfg, c)
	require.NoError(t, err)
	require.NoError(t, svcs.Verify())

	require.Len(t, svcs.Datasources, 1)
	assert.Equal(t, "naming.context.java.jboss.datasources.ExampleDS", svcs.Datasources[0].Name().String())
	assert.Equal(t, service.StateUp, svcs.Datasources[0].State(), "started on demand by the JPA datastore")

	require.Len(t, svcs.Servers, 2)
	for _, h := range svcs.Servers {
		assert.Equal(t, service.StateUp, h.State(), h.Name().String())
	}

	bound, err := svcs.Naming.Lookup("java:jboss/datasources/ExampleDS")
	require.NoError(t, err)
	assert.IsType(t, &gorm.DB{}, bound)

	ctrl, ok := c.Lookup(service.ParseName("simplepush.datastore.default"))
	require.True(t, ok)
	assert.Equal(t, []service.Name{svcs.Datasources[0].Name()}, ctrl.Dependencies())
}

func TestInitializeServices_Errors(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		_, err := InitializeServices(t.Context(), nil, newContainer(t))
		assert.EqualError(t, err, "configuration is nil")
	})

	t.Run("NilTarget", func(t *testing.T) {
		_, err := InitializeServices(t.Context(), GetDefaultConfig(), nil)
		assert.EqualError(t, err, "service target is nil")
	})

	t.Run("NoServers", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Servers = nil
		_, err := InitializeServices(t.Context(), cfg, newContainer(t))
		assert.ErrorContains(t, err, "no servers configured")
	})

	t.Run("NameConflict", func(t *testing.T) {
		c := newContainer(t)
		_, err := InitializeServices(t.Context(), GetDefaultConfig(), c)
		require.NoError(t, err)

		_, err = InitializeServices(t.Context(), GetDefaultConfig(), c)
		require.ErrorIs(t, err, service.ErrNameConflict)
		assert.ErrorContains(t, err, `failed to provision server "default"`)
		assert.Equal(t, 1, c.Count())
	})

	t.Run("DependencyUnsatisfiable", func(t *testing.T) {
		c := newContainer(t)
		cfg := GetDefaultConfig()
		cfg.Servers[0].Datastore = DatastoreConfig{Type: "jpa", Attributes: map[string]any{
			"datasource-reference": "java:jboss/datasources/Missing",
			"persistence-unit":     "pu",
		}}

		_, err := InitializeServices(t.Context(), cfg, c)
		require.ErrorIs(t, err, service.ErrDependencyUnsatisfiable)
		assert.Zero(t, c.Count())
	})

	t.Run("InvalidDatasource", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Datasources = []datasource.Config{{JNDIName: "jbossdata/x", Type: datasource.TypeSQLite}}

		_, err := InitializeServices(t.Context(), cfg, newContainer(t))
		require.ErrorIs(t, err, datasource.ErrInvalidJNDIName)
	})
}
