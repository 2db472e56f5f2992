package datastore

import (
	"cmp"
	"context"
	"errors"
	"slices"
)

var (
	// ErrChannelExists is returned when saving a channel id that is taken.
	ErrChannelExists = errors.New("channel already exists")

	// ErrEndpointTokenExists is returned when saving a channel whose endpoint
	// token is already held by another channel.
	ErrEndpointTokenExists = errors.New("endpoint token already in use")

	// ErrChannelNotFound is returned for unknown channel ids or endpoint tokens.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrVersionConflict is returned when a version update does not increase
	// the stored version.
	ErrVersionConflict = errors.New("version is not newer than the stored version")

	// ErrSaltNotSet is returned by PrivateKeySalt before a salt was saved.
	ErrSaltNotSet = errors.New("private key salt not set")

	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("datastore closed")
)

// Channel is a SimplePush channel registered by a user agent.
type Channel struct {
	UAID          string `json:"uaid"`
	ChannelID     string `json:"channel_id"`
	Version       int64  `json:"version"`
	EndpointToken string `json:"endpoint_token"`
}

// Ack is a notification version that a user agent has not acknowledged yet.
type Ack struct {
	ChannelID string `json:"channel_id"`
	Version   int64  `json:"version"`
}

// Store is the capability every datastore backend provides.
//
// Implementations must be safe for concurrent use. ChannelIDs and
// Unacknowledged results are sorted by channel id.
type Store interface {
	// SavePrivateKeySalt stores the server-wide salt, replacing any previous one.
	SavePrivateKeySalt(ctx context.Context, salt []byte) error

	// PrivateKeySalt returns the stored salt or ErrSaltNotSet.
	PrivateKeySalt(ctx context.Context) ([]byte, error)

	// SaveChannel registers a new channel. Duplicate ids fail with
	// ErrChannelExists, a non-empty endpoint token held by another channel
	// with ErrEndpointTokenExists. Nothing is written on failure.
	SaveChannel(ctx context.Context, ch Channel) error

	// Channel returns the channel with the given id or ErrChannelNotFound.
	Channel(ctx context.Context, channelID string) (Channel, error)

	// ChannelIDs returns the channel ids registered by uaid.
	ChannelIDs(ctx context.Context, uaid string) ([]string, error)

	// RemoveChannels deletes the given channels and their pending acks.
	// Unknown ids are ignored.
	RemoveChannels(ctx context.Context, channelIDs []string) error

	// RemoveUserAgent deletes every channel and pending ack of uaid.
	RemoveUserAgent(ctx context.Context, uaid string) error

	// UpdateVersion sets the version of the channel owning endpointToken and
	// returns its channel id. The version must increase.
	UpdateVersion(ctx context.Context, endpointToken string, version int64) (string, error)

	// SaveUnacknowledged records a pending ack for channelID and returns the
	// owning uaid.
	SaveUnacknowledged(ctx context.Context, channelID string, version int64) (string, error)

	// Unacknowledged returns the pending acks of uaid.
	Unacknowledged(ctx context.Context, uaid string) ([]Ack, error)

	// RemoveAcknowledged drops the pending acks of uaid matching acks by
	// channel id and returns the ones left.
	RemoveAcknowledged(ctx context.Context, uaid string, acks []Ack) ([]Ack, error)

	// Close releases the resources held by the store.
	Close() error
}

// SortAcks orders acks by channel id, then version.
func SortAcks(acks []Ack) {
	slices.SortFunc(acks, func(a, b Ack) int {
		if c := cmp.Compare(a.ChannelID, b.ChannelID); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
}
