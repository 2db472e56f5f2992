package memory

import (
	"context"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/service"
)

// Service is the in-memory datastore service. It takes no parameters and
// has no dependencies.
type Service struct {
	store *Store
}

// NewService returns a fresh, unstarted descriptor.
func NewService() *Service {
	return &Service{}
}

// Start implements service.Service.
func (s *Service) Start(context.Context, service.Dependencies) error {
	s.store = NewStore()
	logger.Debug("In-memory datastore started")
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

// Kind returns datastore.KindInMemory.
func (s *Service) Kind() datastore.Kind { return datastore.KindInMemory }
