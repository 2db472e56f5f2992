package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/datastore/storetest"
	"github.com/marmos91/pushstore/pkg/service"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) datastore.Store { return NewStore() })
}

func TestStoreClosed(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Close())

	_, err := s.Channel(context.Background(), "x")
	assert.ErrorIs(t, err, datastore.ErrClosed)
	assert.ErrorIs(t, s.SaveChannel(context.Background(), datastore.Channel{ChannelID: "x"}), datastore.ErrClosed)
}

func TestStoreSaltIsCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	salt := []byte("salt")
	require.NoError(t, s.SavePrivateKeySalt(ctx, salt))
	salt[0] = 'X'

	got, err := s.PrivateKeySalt(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("salt"), got)
}

func TestService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := service.NewContainer(nil)

	svc := NewService()
	assert.Nil(t, svc.Value())
	assert.Equal(t, datastore.KindInMemory, svc.Kind())

	h, err := c.Register(ctx, service.Request{Name: datastore.ServiceName("default"), Service: svc})
	require.NoError(t, err)
	require.Equal(t, service.StateUp, h.State())

	v, err := h.Value()
	require.NoError(t, err)
	store, ok := v.(datastore.Store)
	require.True(t, ok)
	require.NoError(t, store.SaveChannel(ctx, datastore.Channel{UAID: "ua", ChannelID: "ch", EndpointToken: "t"}))

	require.NoError(t, c.Shutdown(ctx))
	assert.Nil(t, svc.Value())
	assert.ErrorIs(t, store.SaveChannel(ctx, datastore.Channel{ChannelID: "other"}), datastore.ErrClosed)
}
