package couchdb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/service"
)

// Connection defaults.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
	DefaultPingTimeout    = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Service is the document store datastore service. On start it waits for
// the server, creates the database if missing and exposes a Store.
type Service struct {
	url      string
	database string

	// ConnectRetries bounds the ping retries on start.
	ConnectRetries uint64
	// ConnectBackoff is the base delay between ping attempts.
	ConnectBackoff time.Duration
	// PingTimeout bounds each ping attempt on start.
	PingTimeout time.Duration
	// RequestTimeout bounds every request to the server.
	RequestTimeout time.Duration

	store *Store
}

// NewService returns a fresh, unstarted descriptor.
func NewService(serverURL, databaseName string) *Service {
	return &Service{
		url:            serverURL,
		database:       databaseName,
		ConnectRetries: DefaultConnectRetries,
		ConnectBackoff: DefaultConnectBackoff,
		PingTimeout:    DefaultPingTimeout,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// URL returns the configured server URL.
func (s *Service) URL() string { return s.url }

// DatabaseName returns the configured database name.
func (s *Service) DatabaseName() string { return s.database }

// Kind returns datastore.KindDocumentStore.
func (s *Service) Kind() datastore.Kind { return datastore.KindDocumentStore }

// Start implements service.Service.
func (s *Service) Start(ctx context.Context, _ service.Dependencies) error {
	u, err := url.Parse(s.url)
	if err != nil {
		return fmt.Errorf("invalid couchdb url: %w", err)
	}
	c := newClient(u, s.database, s.RequestTimeout)

	b := retry.WithMaxRetries(s.ConnectRetries, retry.NewFibonacci(s.ConnectBackoff))
	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, s.PingTimeout)
		defer cancel()
		if err := c.ping(pingCtx); err != nil {
			logger.Debug("CouchDB ping failed", logger.KeyURL, u.Redacted(),
				logger.KeyAttempt, attempt, logger.KeyError, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to couchdb at %s: %w", u.Redacted(), err)
	}

	if err := c.ensureDatabase(ctx); err != nil {
		return fmt.Errorf("create database %s: %w", s.database, err)
	}

	s.store = newStore(c)
	logger.Info("CouchDB datastore started", logger.KeyURL, u.Redacted(), logger.KeyDatabase, s.database)
	return nil
}

// Stop implements service.Service.
func (s *Service) Stop(context.Context) error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Value returns the running datastore.Store, or nil when stopped.
func (s *Service) Value() any {
	if s.store == nil {
		return nil
	}
	return datastore.Store(s.store)
}
