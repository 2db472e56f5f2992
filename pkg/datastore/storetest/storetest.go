// Package storetest holds the behaviour every datastore.Store implementation
// must share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/datastore"
)

// Factory returns a new, empty store. It is called once per subtest and the
// store is closed by the suite.
type Factory func(t *testing.T) datastore.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s datastore.Store)
	}{
		{"PrivateKeySalt", testPrivateKeySalt},
		{"SaveChannel", testSaveChannel},
		{"EndpointTokenUnique", testEndpointTokenUnique},
		{"ChannelNotFound", testChannelNotFound},
		{"ChannelIDsSorted", testChannelIDsSorted},
		{"UpdateVersion", testUpdateVersion},
		{"RemoveChannels", testRemoveChannels},
		{"RemoveUserAgent", testRemoveUserAgent},
		{"Unacknowledged", testUnacknowledged},
		{"RemoveAcknowledged", testRemoveAcknowledged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func channel(uaid, id string) datastore.Channel {
	return datastore.Channel{UAID: uaid, ChannelID: id, Version: 0, EndpointToken: "token-" + id}
}

func testPrivateKeySalt(t *testing.T, s datastore.Store) {
	ctx := context.Background()

	_, err := s.PrivateKeySalt(ctx)
	assert.ErrorIs(t, err, datastore.ErrSaltNotSet)

	require.NoError(t, s.SavePrivateKeySalt(ctx, []byte("first")))
	require.NoError(t, s.SavePrivateKeySalt(ctx, []byte("second")))

	salt, err := s.PrivateKeySalt(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), salt)
}

func testSaveChannel(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	ch := channel("ua-1", "ch-1")

	require.NoError(t, s.SaveChannel(ctx, ch))
	assert.ErrorIs(t, s.SaveChannel(ctx, ch), datastore.ErrChannelExists)

	got, err := s.Channel(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, ch, got)
}

func testEndpointTokenUnique(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	a := datastore.Channel{UAID: "ua-1", ChannelID: "a", EndpointToken: "shared"}
	b := datastore.Channel{UAID: "ua-2", ChannelID: "b", EndpointToken: "shared"}

	require.NoError(t, s.SaveChannel(ctx, a))
	assert.ErrorIs(t, s.SaveChannel(ctx, b), datastore.ErrEndpointTokenExists)

	_, err := s.Channel(ctx, "b")
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)
	ids, err := s.ChannelIDs(ctx, "ua-2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Removing an unsaved channel must not release the token of the owner.
	require.NoError(t, s.RemoveChannels(ctx, []string{"b"}))
	id, err := s.UpdateVersion(ctx, "shared", 5)
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	// The token is free again once its owner is gone.
	require.NoError(t, s.RemoveChannels(ctx, []string{"a"}))
	require.NoError(t, s.SaveChannel(ctx, b))
	id, err = s.UpdateVersion(ctx, "shared", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	// Channels without a token do not collide.
	require.NoError(t, s.SaveChannel(ctx, datastore.Channel{UAID: "ua-3", ChannelID: "c"}))
	require.NoError(t, s.SaveChannel(ctx, datastore.Channel{UAID: "ua-3", ChannelID: "d"}))
}

func testChannelNotFound(t *testing.T, s datastore.Store) {
	ctx := context.Background()

	_, err := s.Channel(ctx, "missing")
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)

	_, err = s.UpdateVersion(ctx, "token-missing", 1)
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)

	_, err = s.SaveUnacknowledged(ctx, "missing", 1)
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)
}

func testChannelIDsSorted(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.SaveChannel(ctx, channel("ua-1", id)))
	}
	require.NoError(t, s.SaveChannel(ctx, channel("ua-2", "z")))

	ids, err := s.ChannelIDs(ctx, "ua-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	ids, err = s.ChannelIDs(ctx, "ua-unknown")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testUpdateVersion(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveChannel(ctx, channel("ua-1", "ch-1")))

	id, err := s.UpdateVersion(ctx, "token-ch-1", 5)
	require.NoError(t, err)
	assert.Equal(t, "ch-1", id)

	_, err = s.UpdateVersion(ctx, "token-ch-1", 5)
	assert.ErrorIs(t, err, datastore.ErrVersionConflict)
	_, err = s.UpdateVersion(ctx, "token-ch-1", 4)
	assert.ErrorIs(t, err, datastore.ErrVersionConflict)

	got, err := s.Channel(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)
}

func testRemoveChannels(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveChannel(ctx, channel("ua-1", id)))
	}
	_, err := s.SaveUnacknowledged(ctx, "a", 1)
	require.NoError(t, err)

	require.NoError(t, s.RemoveChannels(ctx, []string{"a", "b", "missing"}))

	ids, err := s.ChannelIDs(ctx, "ua-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)

	_, err = s.Channel(ctx, "a")
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)
	_, err = s.UpdateVersion(ctx, "token-a", 2)
	assert.ErrorIs(t, err, datastore.ErrChannelNotFound)

	acks, err := s.Unacknowledged(ctx, "ua-1")
	require.NoError(t, err)
	assert.Empty(t, acks)
}

func testRemoveUserAgent(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveChannel(ctx, channel("ua-1", "a")))
	require.NoError(t, s.SaveChannel(ctx, channel("ua-1", "b")))
	require.NoError(t, s.SaveChannel(ctx, channel("ua-2", "c")))
	_, err := s.SaveUnacknowledged(ctx, "a", 3)
	require.NoError(t, err)

	require.NoError(t, s.RemoveUserAgent(ctx, "ua-1"))

	ids, err := s.ChannelIDs(ctx, "ua-1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	acks, err := s.Unacknowledged(ctx, "ua-1")
	require.NoError(t, err)
	assert.Empty(t, acks)

	ids, err = s.ChannelIDs(ctx, "ua-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func testUnacknowledged(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveChannel(ctx, channel("ua-1", "b")))
	require.NoError(t, s.SaveChannel(ctx, channel("ua-1", "a")))
	require.NoError(t, s.SaveChannel(ctx, channel("ua-2", "c")))

	uaid, err := s.SaveUnacknowledged(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, "ua-1", uaid)
	_, err = s.SaveUnacknowledged(ctx, "a", 1)
	require.NoError(t, err)
	_, err = s.SaveUnacknowledged(ctx, "b", 7)
	require.NoError(t, err)
	_, err = s.SaveUnacknowledged(ctx, "c", 1)
	require.NoError(t, err)

	acks, err := s.Unacknowledged(ctx, "ua-1")
	require.NoError(t, err)
	assert.Equal(t, []datastore.Ack{{ChannelID: "a", Version: 1}, {ChannelID: "b", Version: 7}}, acks)
}

func testRemoveAcknowledged(t *testing.T, s datastore.Store) {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveChannel(ctx, channel("ua-1", id)))
		_, err := s.SaveUnacknowledged(ctx, id, 1)
		require.NoError(t, err)
	}
	require.NoError(t, s.SaveChannel(ctx, channel("ua-2", "d")))
	_, err := s.SaveUnacknowledged(ctx, "d", 1)
	require.NoError(t, err)

	left, err := s.RemoveAcknowledged(ctx, "ua-1", []datastore.Ack{{ChannelID: "a"}, {ChannelID: "c", Version: 9}, {ChannelID: "d"}})
	require.NoError(t, err)
	assert.Equal(t, []datastore.Ack{{ChannelID: "b", Version: 1}}, left)

	other, err := s.Unacknowledged(ctx, "ua-2")
	require.NoError(t, err)
	assert.Equal(t, []datastore.Ack{{ChannelID: "d", Version: 1}}, other)
}
