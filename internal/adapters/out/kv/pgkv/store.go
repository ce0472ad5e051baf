// Package pgkv is a KeyValue backed by a PostgreSQL table, so that both store
// engines can persist across process restarts and hosts.
package pgkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cargotrust/internal/pkg/errs"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db       *gorm.DB
	table    string
	capacity int64
}

// New returns a store over table (DefaultTable when empty). capacity <= 0
// means unbounded. Call Migrate before first use.
func New(db *gorm.DB, table string, capacity int64) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{db: db, table: table, capacity: capacity}
}

// Migrate creates the table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&EntryDTO{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var dto EntryDTO
	err := s.db.WithContext(ctx).Table(s.table).Where("key = ?", key).Take(&dto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return dto.Value, true, nil
}

// Set upserts key. Writers are serialized with a transaction scoped advisory
// lock so that the capacity check and the write see the same total.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", s.table).Error; err != nil {
			return fmt.Errorf("lock %s: %w", s.table, err)
		}

		if s.capacity > 0 {
			others, err := s.sum(tx, "WHERE key <> ?", key)
			if err != nil {
				return err
			}
			used := others + int64(len(key)+len(value))
			if used > s.capacity {
				return fmt.Errorf("set %q: %d of %d bytes: %w", key, used, s.capacity, errs.ErrCapacityExceeded)
			}
		}

		dto := EntryDTO{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		err := tx.Table(s.table).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&dto).Error
		if err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Table(s.table).Where("key = ?", key).Delete(&EntryDTO{}).Error; err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *Store) Usage(ctx context.Context) (int64, int64, error) {
	used, err := s.sum(s.db.WithContext(ctx), "")
	if err != nil {
		return 0, 0, err
	}
	return used, s.capacity, nil
}

// sum counts bytes the same way memkv does: key length plus value length.
func (s *Store) sum(db *gorm.DB, where string, args ...any) (int64, error) {
	query := "SELECT COALESCE(SUM(octet_length(key) + octet_length(value)), 0) FROM " +
		pq.QuoteIdentifier(s.table) + " " + where
	var total int64
	if err := db.Raw(query, args...).Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("usage of %s: %w", s.table, err)
	}
	return total, nil
}
