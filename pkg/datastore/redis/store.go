// Package redis implements datastore.Store on a Redis server.
//
// Key layout, relative to the store prefix:
//
//	salt                 string   private key salt
//	channel:<id>         hash     uaid, version, token
//	token:<token>        string   channel id
//	ua:<uaid>:channels   set      channel ids
//	ua:<uaid>:acks       hash     channel id -> pending version
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/marmos91/pushstore/pkg/datastore"
)

// DefaultKeyPrefix namespaces every key written by a Store.
const DefaultKeyPrefix = "simplepush:"

const (
	fieldUAID    = "uaid"
	fieldVersion = "version"
	fieldToken   = "token"

	// optimistic transaction attempts
	txAttempts = 5
)

// Store implements datastore.Store with go-redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	closed atomic.Bool
}

// NewStore wraps client. An empty prefix selects DefaultKeyPrefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) saltKey() string              { return s.prefix + "salt" }
func (s *Store) channelKey(id string) string  { return s.prefix + "channel:" + id }
func (s *Store) tokenKey(token string) string { return s.prefix + "token:" + token }
func (s *Store) uaChannelsKey(uaid string) string {
	return s.prefix + "ua:" + uaid + ":channels"
}
func (s *Store) uaAcksKey(uaid string) string {
	return s.prefix + "ua:" + uaid + ":acks"
}

func (s *Store) check() error {
	if s.closed.Load() {
		return datastore.ErrClosed
	}
	return nil
}

func (s *Store) SavePrivateKeySalt(ctx context.Context, salt []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.client.Set(ctx, s.saltKey(), salt, 0).Err()
}

func (s *Store) PrivateKeySalt(ctx context.Context) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	salt, err := s.client.Get(ctx, s.saltKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, datastore.ErrSaltNotSet
	}
	return salt, err
}

func (s *Store) SaveChannel(ctx context.Context, ch datastore.Channel) error {
	if err := s.check(); err != nil {
		return err
	}
	key := s.channelKey(ch.ChannelID)
	keys := []string{key}
	if ch.EndpointToken != "" {
		keys = append(keys, s.tokenKey(ch.EndpointToken))
	}
	// The existence checks and every write commit together or not at all.
	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return datastore.ErrChannelExists
		}
		if ch.EndpointToken != "" {
			n, err := tx.Exists(ctx, s.tokenKey(ch.EndpointToken)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return datastore.ErrEndpointTokenExists
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, fieldUAID, ch.UAID, fieldVersion, ch.Version, fieldToken, ch.EndpointToken)
			if ch.EndpointToken != "" {
				p.Set(ctx, s.tokenKey(ch.EndpointToken), ch.ChannelID, 0)
			}
			p.SAdd(ctx, s.uaChannelsKey(ch.UAID), ch.ChannelID)
			return nil
		})
		return err
	}, keys...)
}

// watch runs fn in a WATCH transaction on keys, retrying when a concurrent
// writer touched one of them.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	b := retry.WithMaxRetries(txAttempts, retry.NewConstant(10*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Store) Channel(ctx context.Context, channelID string) (datastore.Channel, error) {
	if err := s.check(); err != nil {
		return datastore.Channel{}, err
	}
	fields, err := s.client.HGetAll(ctx, s.channelKey(channelID)).Result()
	if err != nil {
		return datastore.Channel{}, err
	}
	return parseChannel(channelID, fields)
}

func parseChannel(id string, fields map[string]string) (datastore.Channel, error) {
	uaid, ok := fields[fieldUAID]
	if !ok {
		return datastore.Channel{}, datastore.ErrChannelNotFound
	}
	ch := datastore.Channel{UAID: uaid, ChannelID: id, EndpointToken: fields[fieldToken]}
	if v := fields[fieldVersion]; v != "" {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return datastore.Channel{}, fmt.Errorf("channel %s: corrupt version %q: %w", id, v, err)
		}
		ch.Version = version
	}
	return ch, nil
}

func (s *Store) ChannelIDs(ctx context.Context, uaid string) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.uaChannelsKey(uaid)).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) RemoveChannels(ctx context.Context, channelIDs []string) error {
	if err := s.check(); err != nil {
		return err
	}
	for _, id := range channelIDs {
		if err := s.removeChannel(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) removeChannel(ctx context.Context, id string) error {
	ch, err := s.Channel(ctx, id)
	if errors.Is(err, datastore.ErrChannelNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	key := s.channelKey(id)
	keys := []string{key}
	if ch.EndpointToken != "" {
		keys = append(keys, s.tokenKey(ch.EndpointToken))
	}
	return s.watch(ctx, func(tx *redis.Tx) error {
		// The token is released only while it still points at this channel.
		var owned bool
		if ch.EndpointToken != "" {
			owner, err := tx.Get(ctx, s.tokenKey(ch.EndpointToken)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			owned = owner == id
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			if owned {
				p.Del(ctx, s.tokenKey(ch.EndpointToken))
			}
			p.SRem(ctx, s.uaChannelsKey(ch.UAID), id)
			p.HDel(ctx, s.uaAcksKey(ch.UAID), id)
			return nil
		})
		return err
	}, keys...)
}

func (s *Store) RemoveUserAgent(ctx context.Context, uaid string) error {
	ids, err := s.ChannelIDs(ctx, uaid)
	if err != nil {
		return err
	}
	if err := s.RemoveChannels(ctx, ids); err != nil {
		return err
	}
	return s.client.Del(ctx, s.uaChannelsKey(uaid), s.uaAcksKey(uaid)).Err()
}

func (s *Store) UpdateVersion(ctx context.Context, endpointToken string, version int64) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	id, err := s.client.Get(ctx, s.tokenKey(endpointToken)).Result()
	if errors.Is(err, redis.Nil) {
		return "", datastore.ErrChannelNotFound
	}
	if err != nil {
		return "", err
	}

	key := s.channelKey(id)
	update := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		ch, err := parseChannel(id, fields)
		if err != nil {
			return err
		}
		if version <= ch.Version {
			return datastore.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, fieldVersion, version)
			return nil
		})
		return err
	}

	if err := s.watch(ctx, update, key); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SaveUnacknowledged(ctx context.Context, channelID string, version int64) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	uaid, err := s.client.HGet(ctx, s.channelKey(channelID), fieldUAID).Result()
	if errors.Is(err, redis.Nil) {
		return "", datastore.ErrChannelNotFound
	}
	if err != nil {
		return "", err
	}
	if err := s.client.HSet(ctx, s.uaAcksKey(uaid), channelID, version).Err(); err != nil {
		return "", err
	}
	return uaid, nil
}

func (s *Store) Unacknowledged(ctx context.Context, uaid string) ([]datastore.Ack, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	fields, err := s.client.HGetAll(ctx, s.uaAcksKey(uaid)).Result()
	if err != nil {
		return nil, err
	}
	acks := make([]datastore.Ack, 0, len(fields))
	for id, v := range fields {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ack %s: corrupt version %q: %w", id, v, err)
		}
		acks = append(acks, datastore.Ack{ChannelID: id, Version: version})
	}
	datastore.SortAcks(acks)
	return acks, nil
}

func (s *Store) RemoveAcknowledged(ctx context.Context, uaid string, acks []datastore.Ack) ([]datastore.Ack, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(acks) > 0 {
		ids := make([]string, 0, len(acks))
		for _, a := range acks {
			ids = append(ids, a.ChannelID)
		}
		if err := s.client.HDel(ctx, s.uaAcksKey(uaid), ids...).Err(); err != nil {
			return nil, err
		}
	}
	return s.Unacknowledged(ctx, uaid)
}

// Close marks the store closed. The client is owned by the caller.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

var _ datastore.Store = (*Store)(nil)
