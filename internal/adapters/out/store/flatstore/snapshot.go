package flatstore

import (
	"context"

	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
)

// ClearAll removes every record. Counters keep their values so ids are
// never handed out twice.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func(next *state) error {
		next.deliveries = nil
		next.users = nil
		next.transactions = nil
		return nil
	})
}

func (s *Store) ExportSnapshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitialized(); err != nil {
		return nil, err
	}
	return codec.Encode(codec.NewSnapshot(codec.Contents{
		Deliveries:   s.current.deliveries,
		Users:        s.current.users,
		Transactions: s.current.transactions,
		NextIDs:      s.current.next,
	}))
}

// ImportSnapshot replaces the whole store. An invalid snapshot changes nothing.
func (s *Store) ImportSnapshot(ctx context.Context, snapshot []byte) error {
	contents, err := codec.Decode(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitialized(); err != nil {
		return err
	}
	return s.commit(ctx, state{}, func(next *state) error {
		next.deliveries = contents.Deliveries
		next.users = contents.Users
		next.transactions = contents.Transactions
		next.next = contents.NextIDs
		return nil
	})
}

func (s *Store) Stats(ctx context.Context) (ports.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitialized(); err != nil {
		return ports.StoreStats{}, err
	}

	used, capacity, err := s.kv.Usage(ctx)
	if err != nil {
		return ports.StoreStats{}, errs.NewPersistenceReadError("usage", err)
	}
	s.metrics.SetStoreUsage(used, capacity)

	byStatus := make(map[delivery.Status]int)
	for _, d := range s.current.deliveries {
		byStatus[d.Status()]++
	}
	return ports.StoreStats{
		Backend:       backendName,
		Deliveries:    len(s.current.deliveries),
		Users:         len(s.current.users),
		Transactions:  len(s.current.transactions),
		ByStatus:      byStatus,
		UsedBytes:     used,
		CapacityBytes: capacity,
	}, nil
}
