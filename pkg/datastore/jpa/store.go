// Package jpa implements datastore.Store on top of a relational datasource
// through gorm. All tables of a store are prefixed with its persistence unit,
// so several servers can share one datasource.
package jpa

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marmos91/pushstore/pkg/datastore"
)

// Store implements datastore.Store with gorm.
type Store struct {
	db     *gorm.DB
	t      tables
	closed atomic.Bool
}

// NewStore creates the tables of persistenceUnit if needed and returns a
// store using them. The caller keeps ownership of db.
func NewStore(ctx context.Context, db *gorm.DB, persistenceUnit string) (*Store, error) {
	s := &Store{db: db, t: tablesFor(persistenceUnit)}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate persistence unit %s: %w", persistenceUnit, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range []struct {
		table string
		model any
	}{
		{s.t.channels, &channelRow{}},
		{s.t.acks, &ackRow{}},
		{s.t.server, &serverRow{}},
	} {
		if err := db.Table(m.table).AutoMigrate(m.model); err != nil {
			return err
		}
	}
	// Index names are global in postgres, so they carry the table prefix.
	for _, stmt := range []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_uaid ON %[1]s (uaid)", s.t.channels),
		fmt.Sprintf("DROP INDEX IF EXISTS %[1]s_token", s.t.channels),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_token_key ON %[1]s (endpoint_token) WHERE endpoint_token <> ''", s.t.channels),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_uaid ON %[1]s (uaid)", s.t.acks),
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if s.closed.Load() {
		return nil, datastore.ErrClosed
	}
	return s.db.WithContext(ctx), nil
}

func (s *Store) SavePrivateKeySalt(ctx context.Context, salt []byte) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	row := serverRow{ID: serverRowID, Salt: salt}
	return db.Table(s.t.server).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"salt"}),
	}).Create(&row).Error
}

func (s *Store) PrivateKeySalt(ctx context.Context) ([]byte, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var row serverRow
	if err := db.Table(s.t.server).Where("id = ?", serverRowID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, datastore.ErrSaltNotSet
		}
		return nil, err
	}
	return row.Salt, nil
}

func (s *Store) SaveChannel(ctx context.Context, ch datastore.Channel) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	row := channelRow{
		ChannelID:     ch.ChannelID,
		UAID:          ch.UAID,
		Version:       ch.Version,
		EndpointToken: ch.EndpointToken,
	}
	res := db.Table(s.t.channels).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.saveConflict(db, ch.ChannelID)
	}
	return nil
}

// saveConflict tells which unique key rejected an insert of channelID.
func (s *Store) saveConflict(db *gorm.DB, channelID string) error {
	var n int64
	if err := db.Table(s.t.channels).Where("channel_id = ?", channelID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return datastore.ErrChannelExists
	}
	return datastore.ErrEndpointTokenExists
}

func (s *Store) Channel(ctx context.Context, channelID string) (datastore.Channel, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return datastore.Channel{}, err
	}
	row, err := s.findChannel(db, "channel_id = ?", channelID)
	if err != nil {
		return datastore.Channel{}, err
	}
	return toChannel(row), nil
}

func (s *Store) findChannel(db *gorm.DB, query string, arg any) (channelRow, error) {
	var row channelRow
	if err := db.Table(s.t.channels).Where(query, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, datastore.ErrChannelNotFound
		}
		return row, err
	}
	return row, nil
}

func (s *Store) ChannelIDs(ctx context.Context, uaid string) ([]string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = db.Table(s.t.channels).Where("uaid = ?", uaid).Order("channel_id").Pluck("channel_id", &ids).Error
	return ids, err
}

func (s *Store) RemoveChannels(ctx context.Context, channelIDs []string) error {
	if len(channelIDs) == 0 {
		return nil
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.t.acks).Where("channel_id IN ?", channelIDs).Delete(&ackRow{}).Error; err != nil {
			return err
		}
		return tx.Table(s.t.channels).Where("channel_id IN ?", channelIDs).Delete(&channelRow{}).Error
	})
}

func (s *Store) RemoveUserAgent(ctx context.Context, uaid string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.t.acks).Where("uaid = ?", uaid).Delete(&ackRow{}).Error; err != nil {
			return err
		}
		return tx.Table(s.t.channels).Where("uaid = ?", uaid).Delete(&channelRow{}).Error
	})
}

func (s *Store) UpdateVersion(ctx context.Context, endpointToken string, version int64) (string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}
	var channelID string
	err = db.Transaction(func(tx *gorm.DB) error {
		row, err := s.findChannel(tx, "endpoint_token = ?", endpointToken)
		if err != nil {
			return err
		}
		res := tx.Table(s.t.channels).
			Where("channel_id = ? AND version < ?", row.ChannelID, version).
			Update("version", version)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return datastore.ErrVersionConflict
		}
		channelID = row.ChannelID
		return nil
	})
	return channelID, err
}

func (s *Store) SaveUnacknowledged(ctx context.Context, channelID string, version int64) (string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}
	var uaid string
	err = db.Transaction(func(tx *gorm.DB) error {
		row, err := s.findChannel(tx, "channel_id = ?", channelID)
		if err != nil {
			return err
		}
		ack := ackRow{ChannelID: channelID, UAID: row.UAID, Version: version}
		if err := tx.Table(s.t.acks).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version"}),
		}).Create(&ack).Error; err != nil {
			return err
		}
		uaid = row.UAID
		return nil
	})
	return uaid, err
}

func (s *Store) Unacknowledged(ctx context.Context, uaid string) ([]datastore.Ack, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return s.unacknowledged(db, uaid)
}

func (s *Store) unacknowledged(db *gorm.DB, uaid string) ([]datastore.Ack, error) {
	var rows []ackRow
	if err := db.Table(s.t.acks).Where("uaid = ?", uaid).Order("channel_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	acks := make([]datastore.Ack, 0, len(rows))
	for _, r := range rows {
		acks = append(acks, datastore.Ack{ChannelID: r.ChannelID, Version: r.Version})
	}
	return acks, nil
}

func (s *Store) RemoveAcknowledged(ctx context.Context, uaid string, acks []datastore.Ack) ([]datastore.Ack, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var left []datastore.Ack
	err = db.Transaction(func(tx *gorm.DB) error {
		if len(acks) > 0 {
			ids := make([]string, 0, len(acks))
			for _, a := range acks {
				ids = append(ids, a.ChannelID)
			}
			if err := tx.Table(s.t.acks).Where("uaid = ? AND channel_id IN ?", uaid, ids).Delete(&ackRow{}).Error; err != nil {
				return err
			}
		}
		var err error
		left, err = s.unacknowledged(tx, uaid)
		return err
	})
	return left, err
}

// Close detaches the store. The datasource stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func toChannel(r channelRow) datastore.Channel {
	return datastore.Channel{
		UAID:          r.UAID,
		ChannelID:     r.ChannelID,
		Version:       r.Version,
		EndpointToken: r.EndpointToken,
	}
}

var _ datastore.Store = (*Store)(nil)
