package jpa

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marmos91/pushstore/internal/logger"
	"github.com/marmos91/pushstore/pkg/datastore"
	"github.com/marmos91/pushstore/pkg/service"
)

// Service is the JPA datastore service. It is constructed with its
// persistence unit only; the *gorm.DB comes from the binder service of the
// referenced datasource, which must be its dependency.
type Service struct {
	persistenceUnit string
	store           *Store
}

// NewService returns a fresh, unstarted descriptor for persistenceUnit.
func NewService(persistenceUnit string) *Service {
	return &Service{persistenceUnit: persistenceUnit}
}

// PersistenceUnit returns the configured persistence unit.
func (s *Service) PersistenceUnit() string { return s.persistenceUnit }

// Kind returns datastore.KindJPA.
func (s *Service) Kind() datastore.Kind { return datastore.KindJPA }

// Start implements service.Service.
func (s *Service) Start(ctx context.Context, deps service.Dependencies) error {
	db, err := service.DependencyOf[*gorm.DB](deps)
	if err != nil {
		return fmt.Errorf("persistence unit %s: %w", s.persistenceUnit, err)
	}
	store, err := NewStore(ctx, db, s.persistenceUnit)
	if err != nil {
		return err
	}
	s.store = store
	logger.Info("JPA datastore started", logger.KeyUnit, s.persistenceUnit)
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
