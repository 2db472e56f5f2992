// Package couchdb implements datastore.Store on a CouchDB database.
//
// Each channel is one document ("channel:<id>") holding its user agent,
// version, endpoint token and pending ack. A "token:<token>" document names
// the channel owning an endpoint token, so creating it claims the token. The
// private key salt lives in the "server" document. Updates use the document revision for optimistic
// concurrency and are retried on conflict.
package couchdb

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/marmos91/pushstore/pkg/datastore"
)

const (
	docTypeChannel = "channel"
	docTypeToken   = "token"
	channelPrefix  = "channel:"
	tokenPrefix    = "token:"
	serverDocID    = "server"

	conflictRetries = 5
)

type channelDoc struct {
	ID    string `json:"_id"`
	Rev   string `json:"_rev,omitempty"`
	Type  string `json:"type"`
	UAID  string `json:"uaid"`
	Ver   int64  `json:"version"`
	Token string `json:"token"`
	Ack   *int64 `json:"ack,omitempty"`
}

func (d channelDoc) channelID() string { return d.ID[len(channelPrefix):] }

func (d channelDoc) channel() datastore.Channel {
	return datastore.Channel{UAID: d.UAID, ChannelID: d.channelID(), Version: d.Ver, EndpointToken: d.Token}
}

type tokenDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type serverDoc struct {
	ID   string `json:"_id"`
	Rev  string `json:"_rev,omitempty"`
	Salt []byte `json:"salt"`
}

// Store implements datastore.Store over the CouchDB HTTP API.
type Store struct {
	c      *client
	closed atomic.Bool
}

func newStore(c *client) *Store {
	return &Store{c: c}
}

func (s *Store) check() error {
	if s.closed.Load() {
		return datastore.ErrClosed
	}
	return nil
}

// onConflict retries fn while it fails with a revision conflict.
func onConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(conflictRetries, retry.NewExponential(5*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, errConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Store) SavePrivateKeySalt(ctx context.Context, salt []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	return onConflict(ctx, func(ctx context.Context) error {
		doc := serverDoc{ID: serverDocID}
		if err := s.c.get(ctx, serverDocID, &doc); err != nil && !errors.Is(err, errNotFound) {
			return err
		}
		doc.Salt = salt
		_, err := s.c.put(ctx, serverDocID, doc)
		return err
	})
}

func (s *Store) PrivateKeySalt(ctx context.Context) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var doc serverDoc
	if err := s.c.get(ctx, serverDocID, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, datastore.ErrSaltNotSet
		}
		return nil, err
	}
	return doc.Salt, nil
}

func (s *Store) SaveChannel(ctx context.Context, ch datastore.Channel) error {
	if err := s.check(); err != nil {
		return err
	}
	doc := channelDoc{
		ID:    channelPrefix + ch.ChannelID,
		Type:  docTypeChannel,
		UAID:  ch.UAID,
		Ver:   ch.Version,
		Token: ch.EndpointToken,
	}
	rev, err := s.c.put(ctx, doc.ID, doc)
	if errors.Is(err, errConflict) {
		return datastore.ErrChannelExists
	}
	if err != nil || ch.EndpointToken == "" {
		return err
	}

	tok := tokenDoc{ID: tokenPrefix + ch.EndpointToken, Type: docTypeToken, Channel: ch.ChannelID}
	if _, err := s.c.put(ctx, tok.ID, tok); err != nil {
		if errors.Is(err, errConflict) {
			err = datastore.ErrEndpointTokenExists
		}
		// Give the channel id back.
		if derr := s.c.delete(context.WithoutCancel(ctx), doc.ID, rev); derr != nil {
			return errors.Join(err, derr)
		}
		return err
	}
	return nil
}

// tokenOwner returns the id of the channel holding token.
func (s *Store) tokenOwner(ctx context.Context, token string) (tokenDoc, error) {
	var tok tokenDoc
	if err := s.c.get(ctx, tokenPrefix+token, &tok); err != nil {
		if errors.Is(err, errNotFound) {
			return tok, datastore.ErrChannelNotFound
		}
		return tok, err
	}
	return tok, nil
}

// tombstones lists the deletions for docs and the token documents they
// still own.
func (s *Store) tombstones(ctx context.Context, docs []channelDoc) ([]bulkDoc, error) {
	dead := make([]bulkDoc, 0, 2*len(docs))
	for _, d := range docs {
		dead = append(dead, bulkDoc{ID: d.ID, Rev: d.Rev, Deleted: true})
		if d.Token == "" {
			continue
		}
		tok, err := s.tokenOwner(ctx, d.Token)
		if errors.Is(err, datastore.ErrChannelNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if tok.Channel == d.channelID() {
			dead = append(dead, bulkDoc{ID: tok.ID, Rev: tok.Rev, Deleted: true})
		}
	}
	return dead, nil
}

func (s *Store) channelDoc(ctx context.Context, channelID string) (channelDoc, error) {
	var doc channelDoc
	if err := s.c.get(ctx, channelPrefix+channelID, &doc); err != nil {
		if errors.Is(err, errNotFound) {
			return doc, datastore.ErrChannelNotFound
		}
		return doc, err
	}
	return doc, nil
}

func (s *Store) Channel(ctx context.Context, channelID string) (datastore.Channel, error) {
	if err := s.check(); err != nil {
		return datastore.Channel{}, err
	}
	doc, err := s.channelDoc(ctx, channelID)
	if err != nil {
		return datastore.Channel{}, err
	}
	return doc.channel(), nil
}

func (s *Store) findChannels(ctx context.Context, selector map[string]any) ([]channelDoc, error) {
	selector["type"] = docTypeChannel
	raw, err := s.c.find(ctx, selector)
	if err != nil {
		return nil, err
	}
	docs := make([]channelDoc, 0, len(raw))
	for _, r := range raw {
		var d channelDoc
		if err := json.Unmarshal(r, &d); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b channelDoc) int { return cmp.Compare(a.ID, b.ID) })
	return docs, nil
}

func (s *Store) ChannelIDs(ctx context.Context, uaid string) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	docs, err := s.findChannels(ctx, map[string]any{"uaid": uaid})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.channelID())
	}
	return ids, nil
}

func (s *Store) RemoveChannels(ctx context.Context, channelIDs []string) error {
	if err := s.check(); err != nil {
		return err
	}
	var docs []channelDoc
	for _, id := range channelIDs {
		doc, err := s.channelDoc(ctx, id)
		if errors.Is(err, datastore.ErrChannelNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	dead, err := s.tombstones(ctx, docs)
	if err != nil {
		return err
	}
	return s.c.deleteAll(ctx, dead)
}

func (s *Store) RemoveUserAgent(ctx context.Context, uaid string) error {
	if err := s.check(); err != nil {
		return err
	}
	docs, err := s.findChannels(ctx, map[string]any{"uaid": uaid})
	if err != nil {
		return err
	}
	dead, err := s.tombstones(ctx, docs)
	if err != nil {
		return err
	}
	return s.c.deleteAll(ctx, dead)
}

func (s *Store) UpdateVersion(ctx context.Context, endpointToken string, version int64) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	tok, err := s.tokenOwner(ctx, endpointToken)
	if err != nil {
		return "", err
	}
	err = onConflict(ctx, func(ctx context.Context) error {
		doc, err := s.channelDoc(ctx, tok.Channel)
		if err != nil {
			return err
		}
		if version <= doc.Ver {
			return datastore.ErrVersionConflict
		}
		doc.Ver = version
		_, err = s.c.put(ctx, doc.ID, doc)
		return err
	})
	if err != nil {
		return "", err
	}
	return tok.Channel, nil
}

func (s *Store) SaveUnacknowledged(ctx context.Context, channelID string, version int64) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	var uaid string
	err := onConflict(ctx, func(ctx context.Context) error {
		doc, err := s.channelDoc(ctx, channelID)
		if err != nil {
			return err
		}
		doc.Ack = &version
		if _, err := s.c.put(ctx, doc.ID, doc); err != nil {
			return err
		}
		uaid = doc.UAID
		return nil
	})
	return uaid, err
}

func (s *Store) Unacknowledged(ctx context.Context, uaid string) ([]datastore.Ack, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	docs, err := s.findChannels(ctx, map[string]any{
		"uaid": uaid,
		"ack":  map[string]any{"$exists": true},
	})
	if err != nil {
		return nil, err
	}
	acks := make([]datastore.Ack, 0, len(docs))
	for _, d := range docs {
		if d.Ack != nil {
			acks = append(acks, datastore.Ack{ChannelID: d.channelID(), Version: *d.Ack})
		}
	}
	return acks, nil
}

func (s *Store) RemoveAcknowledged(ctx context.Context, uaid string, acks []datastore.Ack) ([]datastore.Ack, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	for _, ack := range acks {
		err := onConflict(ctx, func(ctx context.Context) error {
			doc, err := s.channelDoc(ctx, ack.ChannelID)
			if err != nil {
				return err
			}
			if doc.UAID != uaid || doc.Ack == nil {
				return nil
			}
			doc.Ack = nil
			_, err = s.c.put(ctx, doc.ID, doc)
			return err
		})
		if err != nil && !errors.Is(err, datastore.ErrChannelNotFound) {
			return nil, err
		}
	}
	return s.Unacknowledged(ctx, uaid)
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

var _ datastore.Store = (*Store)(nil)
