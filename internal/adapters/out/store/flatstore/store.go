// Package flatstore is the Store engine built on plain in-memory lists. Each
// collection is persisted as its own JSON blob, plus one blob for the id
// counters.
package flatstore

import (
	"context"
	"errors"
	"sync"

	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/logging"
	"cargotrust/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	KeyDeliveries   = "cargotrust_deliveries"
	KeyUsers        = "cargotrust_users"
	KeyTransactions = "cargotrust_transactions"
	KeyNextIDs      = "cargotrust_next_ids"

	backendName = "flat"
)

// Keys lists the primitive keys owned by the engine, in write order.
func Keys() []string {
	return []string{KeyDeliveries, KeyUsers, KeyTransactions, KeyNextIDs}
}

// state is one consistent version of the store. Mutations build a new state
// and only install it once it has been persisted. Entities are never changed
// in place: a mutation replaces the pointer with a modified clone.
type state struct {
	deliveries   []*delivery.Delivery
	users        []*user.User
	transactions []*ledgertx.Transaction
	next         codec.NextIDs
}

func (s state) copy() state {
	return state{
		deliveries:   append([]*delivery.Delivery(nil), s.deliveries...),
		users:        append([]*user.User(nil), s.users...),
		transactions: append([]*ledgertx.Transaction(nil), s.transactions...),
		next:         s.next,
	}
}

type Store struct {
	kv      ports.KeyValue
	clock   kernel.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	initialized bool
	current     state
	// blobs caches what is known to be persisted, per key.
	blobs map[string]string
}

var _ ports.Store = (*Store)(nil)

func New(kv ports.KeyValue, clock kernel.Clock, logger *zap.Logger, m *metrics.Metrics) *Store {
	return &Store{
		kv:      kv,
		clock:   clock,
		logger:  logging.Component(logger, "flatstore"),
		metrics: m,
		blobs:   map[string]string{},
		current: state{next: codec.InitialNextIDs()},
	}
}

func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	blobs := map[string]string{}
	for _, key := range Keys() {
		blob, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return errs.NewPersistenceReadError("load "+key, err)
		}
		if ok {
			blobs[key] = blob
		}
	}

	snapshot := codec.Snapshot{Version: codec.Version, NextIDs: codec.InitialNextIDs()}
	var decodeErr error
	if blob, ok := blobs[KeyDeliveries]; ok {
		snapshot.Deliveries, decodeErr = codec.DecodeTable[codec.DeliveryRecord](blob)
		if decodeErr != nil {
			return s.corrupt(KeyDeliveries, decodeErr)
		}
	}
	if blob, ok := blobs[KeyUsers]; ok {
		snapshot.Users, decodeErr = codec.DecodeTable[codec.UserRecord](blob)
		if decodeErr != nil {
			return s.corrupt(KeyUsers, decodeErr)
		}
	}
	if blob, ok := blobs[KeyTransactions]; ok {
		snapshot.Transactions, decodeErr = codec.DecodeTable[codec.TransactionRecord](blob)
		if decodeErr != nil {
			return s.corrupt(KeyTransactions, decodeErr)
		}
	}
	if blob, ok := blobs[KeyNextIDs]; ok {
		snapshot.NextIDs, decodeErr = codec.DecodeNextIDs(blob)
		if decodeErr != nil {
			return s.corrupt(KeyNextIDs, decodeErr)
		}
	}

	contents, err := snapshot.Contents()
	if err != nil {
		return s.corrupt(KeyDeliveries, err)
	}

	s.current = state{
		deliveries:   contents.Deliveries,
		users:        contents.Users,
		transactions: contents.Transactions,
		next:         contents.NextIDs,
	}
	s.blobs = blobs
	s.initialized = true
	s.logger.Info("store loaded",
		zap.Int("deliveries", len(s.current.deliveries)),
		zap.Int("users", len(s.current.users)),
		zap.Int("transactions", len(s.current.transactions)))
	return nil
}

func (s *Store) corrupt(key string, err error) error {
	s.logger.Error("persisted state is unreadable", zap.String("key", key), zap.Error(err))
	return errs.NewInitializationError(key, err)
}

func (s *Store) checkInitialized() error {
	if !s.initialized {
		return errs.ErrNotInitialized
	}
	return nil
}

// read runs fn under the shared lock.
func (s *Store) read(fn func(st state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitialized(); err != nil {
		return err
	}
	return fn(s.current)
}

// mutate applies fn to a copy of the current state, persists the result and
// installs it. If persisting fails the current state is kept.
func (s *Store) mutate(ctx context.Context, fn func(next *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitialized(); err != nil {
		return err
	}
	return s.commit(ctx, s.current.copy(), fn)
}

func (s *Store) commit(ctx context.Context, next state, fn func(next *state) error) error {
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}

// persist writes the blobs that changed. When a write fails, keys already
// written in this call are restored to their previous value so the
// primitive keeps matching the installed state.
func (s *Store) persist(ctx context.Context, next state) error {
	blobs, err := encode(next)
	if err != nil {
		return err
	}

	var written []string
	for _, key := range Keys() {
		blob := blobs[key]
		if old, ok := s.blobs[key]; ok && old == blob {
			continue
		}
		if err := s.kv.Set(ctx, key, blob); err != nil {
			s.metrics.ObservePersistenceFailure(backendName)
			s.logger.Warn("persist failed, rolling back",
				zap.String("key", key), zap.Int("bytes", len(blob)), zap.Error(err))
			s.restore(ctx, written)
			return errs.NewPersistenceWriteError(key, len(blob), err)
		}
		written = append(written, key)
	}

	for _, key := range written {
		s.blobs[key] = blobs[key]
	}
	return nil
}

func (s *Store) restore(ctx context.Context, keys []string) {
	for _, key := range keys {
		old, ok := s.blobs[key]
		var err error
		if ok {
			err = s.kv.Set(ctx, key, old)
		} else {
			err = s.kv.Remove(ctx, key)
		}
		if err != nil {
			s.logger.Error("rollback of persisted blob failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func encode(st state) (map[string]string, error) {
	snapshot := codec.NewSnapshot(codec.Contents{
		Deliveries:   st.deliveries,
		Users:        st.users,
		Transactions: st.transactions,
		NextIDs:      st.next,
	})

	deliveries, errDeliveries := codec.EncodeTable(snapshot.Deliveries)
	users, errUsers := codec.EncodeTable(snapshot.Users)
	transactions, errTransactions := codec.EncodeTable(snapshot.Transactions)
	next, errNext := codec.EncodeNextIDs(snapshot.NextIDs)
	if err := errors.Join(errDeliveries, errUsers, errTransactions, errNext); err != nil {
		return nil, err
	}

	return map[string]string{
		KeyDeliveries:   deliveries,
		KeyUsers:        users,
		KeyTransactions: transactions,
		KeyNextIDs:      next,
	}, nil
}
