// Package sqlstore is the Store engine built on an embedded relational
// database. Records live in an in-memory SQLite database whose serialized
// image is persisted under a single key after every mutation.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/logging"
	"cargotrust/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	// KeyDatabase holds the base64 encoded database image.
	KeyDatabase = "cargotrust_db"

	backendName = "structured"
)

const (
	tableDeliveries   = "deliveries"
	tableUsers        = "users"
	tableTransactions = "blockchain_transactions"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	kv      ports.KeyValue
	clock   kernel.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	initialized bool
	db          *sql.DB
	// image is the last database image known to be persisted. A failed
	// write restores the database from it.
	image []byte
}

var _ ports.Store = (*Store)(nil)

func New(kv ports.KeyValue, clock kernel.Clock, logger *zap.Logger, m *metrics.Metrics) *Store {
	return &Store{
		kv:      kv,
		clock:   clock,
		logger:  logging.Component(logger, "sqlstore"),
		metrics: m,
	}
}

func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	blob, ok, err := s.kv.Get(ctx, KeyDatabase)
	if err != nil {
		return errs.NewPersistenceReadError("load "+KeyDatabase, err)
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}

	contents, err := s.open(ctx, db, blob, ok)
	if err != nil {
		_ = db.Close()
		if ok {
			return s.corrupt(err)
		}
		return err
	}

	image, err := serialize(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.image = image
	s.initialized = true
	s.logger.Info("store loaded",
		zap.Int("deliveries", len(contents.Deliveries)),
		zap.Int("users", len(contents.Users)),
		zap.Int("transactions", len(contents.Transactions)),
		zap.Int("image_bytes", len(image)))
	return nil
}

// open loads the persisted image into db when there is one, brings the
// schema up to date and reads every row back as a consistency check.
func (s *Store) open(ctx context.Context, db *sql.DB, blob string, persisted bool) (codec.Contents, error) {
	if persisted {
		image, err := codec.DecodeImage(blob)
		if err != nil {
			return codec.Contents{}, err
		}
		if err := deserialize(ctx, db, image); err != nil {
			return codec.Contents{}, err
		}
	}
	if err := migrate(db); err != nil {
		return codec.Contents{}, err
	}
	return readContents(ctx, db)
}

func (s *Store) corrupt(err error) error {
	s.logger.Error("persisted state is unreadable", zap.String("key", KeyDatabase), zap.Error(err))
	return errs.NewInitializationError(KeyDatabase, err)
}

// Close releases the database. The persisted image is not touched.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.initialized = false
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) checkInitialized() error {
	if !s.initialized {
		return errs.ErrNotInitialized
	}
	return nil
}

func (s *Store) read(fn func(q querier) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitialized(); err != nil {
		return err
	}
	return fn(s.db)
}

// mutate runs fn in a transaction and persists the resulting image. If fn
// fails nothing is committed; if the write fails the database is restored
// from the last persisted image.
func (s *Store) mutate(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitialized(); err != nil {
		return err
	}
	return s.commit(ctx, fn)
}

func (s *Store) commit(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	image, err := serialize(ctx, s.db)
	if err != nil {
		s.rollback(ctx)
		return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
	}

	blob := codec.EncodeImage(image)
	if err := s.kv.Set(ctx, KeyDatabase, blob); err != nil {
		s.metrics.ObservePersistenceFailure(backendName)
		s.logger.Warn("persist failed, rolling back",
			zap.String("key", KeyDatabase), zap.Int("bytes", len(blob)), zap.Error(err))
		s.rollback(ctx)
		return errs.NewPersistenceWriteError(KeyDatabase, len(blob), err)
	}
	s.image = image
	return nil
}

func (s *Store) rollback(ctx context.Context) {
	if err := deserialize(context.WithoutCancel(ctx), s.db, s.image); err != nil {
		s.logger.Error("rollback of database image failed", zap.Error(err))
	}
}
