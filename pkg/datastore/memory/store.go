// Package memory implements an in-process datastore.Store. Data does not
// survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/marmos91/pushstore/pkg/datastore"
)

// Store keeps channels and pending acks in maps guarded by a RWMutex.
type Store struct {
	mu       sync.RWMutex
	closed   bool
	salt     []byte
	channels map[string]datastore.Channel // by channel id
	tokens   map[string]string            // endpoint token -> channel id
	acks     map[string]int64             // channel id -> pending version
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		channels: make(map[string]datastore.Channel),
		tokens:   make(map[string]string),
		acks:     make(map[string]int64),
	}
}

func (s *Store) SavePrivateKeySalt(_ context.Context, salt []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return datastore.ErrClosed
	}
	s.salt = slices.Clone(salt)
	return nil
}

func (s *Store) PrivateKeySalt(context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, datastore.ErrClosed
	}
	if s.salt == nil {
		return nil, datastore.ErrSaltNotSet
	}
	return slices.Clone(s.salt), nil
}

func (s *Store) SaveChannel(_ context.Context, ch datastore.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return datastore.ErrClosed
	}
	if _, exists := s.channels[ch.ChannelID]; exists {
		return datastore.ErrChannelExists
	}
	if _, taken := s.tokens[ch.EndpointToken]; taken && ch.EndpointToken != "" {
		return datastore.ErrEndpointTokenExists
	}
	s.channels[ch.ChannelID] = ch
	if ch.EndpointToken != "" {
		s.tokens[ch.EndpointToken] = ch.ChannelID
	}
	return nil
}

func (s *Store) Channel(_ context.Context, channelID string) (datastore.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return datastore.Channel{}, datastore.ErrClosed
	}
	ch, ok := s.channels[channelID]
	if !ok {
		return datastore.Channel{}, datastore.ErrChannelNotFound
	}
	return ch, nil
}

func (s *Store) ChannelIDs(_ context.Context, uaid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, datastore.ErrClosed
	}
	var ids []string
	for id, ch := range s.channels {
		if ch.UAID == uaid {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) RemoveChannels(_ context.Context, channelIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return datastore.ErrClosed
	}
	for _, id := range channelIDs {
		s.removeChannelLocked(id)
	}
	return nil
}

func (s *Store) RemoveUserAgent(_ context.Context, uaid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return datastore.ErrClosed
	}
	for id, ch := range s.channels {
		if ch.UAID == uaid {
			s.removeChannelLocked(id)
		}
	}
	return nil
}

func (s *Store) removeChannelLocked(id string) {
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	delete(s.channels, id)
	if s.tokens[ch.EndpointToken] == id {
		delete(s.tokens, ch.EndpointToken)
	}
	delete(s.acks, id)
}

func (s *Store) UpdateVersion(_ context.Context, endpointToken string, version int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", datastore.ErrClosed
	}
	id, ok := s.tokens[endpointToken]
	if !ok {
		return "", datastore.ErrChannelNotFound
	}
	ch := s.channels[id]
	if version <= ch.Version {
		return "", datastore.ErrVersionConflict
	}
	ch.Version = version
	s.channels[id] = ch
	return id, nil
}

func (s *Store) SaveUnacknowledged(_ context.Context, channelID string, version int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", datastore.ErrClosed
	}
	ch, ok := s.channels[channelID]
	if !ok {
		return "", datastore.ErrChannelNotFound
	}
	s.acks[channelID] = version
	return ch.UAID, nil
}

func (s *Store) Unacknowledged(_ context.Context, uaid string) ([]datastore.Ack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, datastore.ErrClosed
	}
	return s.unacknowledgedLocked(uaid), nil
}

func (s *Store) RemoveAcknowledged(_ context.Context, uaid string, acks []datastore.Ack) ([]datastore.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, datastore.ErrClosed
	}
	for _, ack := range acks {
		if ch, ok := s.channels[ack.ChannelID]; ok && ch.UAID == uaid {
			delete(s.acks, ack.ChannelID)
		}
	}
	return s.unacknowledgedLocked(uaid), nil
}

func (s *Store) unacknowledgedLocked(uaid string) []datastore.Ack {
	var out []datastore.Ack
	for id, version := range s.acks {
		if s.channels[id].UAID == uaid {
			out = append(out, datastore.Ack{ChannelID: id, Version: version})
		}
	}
	datastore.SortAcks(out)
	return out
}

// Close marks the store closed. Subsequent calls fail with datastore.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ datastore.Store = (*Store)(nil)
