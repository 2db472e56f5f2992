package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/service"
)

// Connection defaults.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
)

// Service is the Redis datastore service. It connects on start, retrying
// the initial ping with a Fibonacci backoff.
type Service struct {
	host string
	port int

	// KeyPrefix overrides DefaultKeyPrefix.
	KeyPrefix string
	// ConnectRetries bounds the ping retries on start.
	ConnectRetries uint64
	// ConnectBackoff is the base delay between ping attempts.
	ConnectBackoff time.Duration

	client *redis.Client
	store  *Store
}

// NewService returns a fresh, unstarted descriptor for host:port.
func NewService(host string, port int) *Service {
	return &Service{
		host:           host,
		port:           port,
		ConnectRetries: DefaultConnectRetries,
		ConnectBackoff: DefaultConnectBackoff,
	}
}

// Host returns the configured host.
func (s *Service) Host() string { return s.host }

// Port returns the configured port.
func (s *Service) Port() int { return s.port }

// Addr returns host:port.
func (s *Service) Addr() string { return net.JoinHostPort(s.host, strconv.Itoa(s.port)) }

// Kind returns datastore.KindRedis.
func (s *Service) Kind() datastore.Kind { return datastore.KindRedis }

// Start implements service.Service.
func (s *Service) Start(ctx context.Context, _ service.Dependencies) error {
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

	b := retry.WithMaxRetries(s.ConnectRetries, retry.NewFibonacci(s.ConnectBackoff))
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Debug("Redis ping failed", logger.KeyHost, s.host, logger.KeyPort, s.port,
				logger.KeyAttempt, attempt, logger.KeyMaxRetries, s.ConnectRetries, logger.KeyError, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis at %s: %w", s.Addr(), err)
	}

	s.client = client
	s.store = NewStore(client, s.KeyPrefix)
	logger.Info("Redis datastore started", logger.KeyHost, s.host, logger.KeyPort, s.port)
	return nil
}

// Stop implements service.Service.
func (s *Service) Stop(context.Context) error {
	if s.client == nil {
		return nil
	}
	_ = s.store.Close()
	err := s.client.Close()
	s.client, s.store = nil, nil
	return err
}

// Value returns the running datastore.Store, or nil when stopped.
func (s *Service) Value() any {
	if s.store == nil {
		return nil
	}
	return datastore.Store(s.store)
}
