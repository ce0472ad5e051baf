package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
)

// ClearAll removes every row. sqlite_sequence is kept, so ids keep counting.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		return deleteAll(ctx, tx)
	})
}

func deleteAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{tableDeliveries, tableUsers, tableTransactions} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
	}
	return nil
}

func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitialized(); err != nil {
		return nil, err
	}
	contents, err := readContents(ctx, s.db)
	if err != nil {
		return nil, errs.NewPersistenceReadError("export", err)
	}
	return codec.Encode(codec.NewSnapshot(contents))
}

// ImportSnapshot replaces every row and the id counters. An invalid snapshot
// changes nothing.
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
	return s.commit(ctx, func(tx *sql.Tx) error {
		if err := deleteAll(ctx, tx); err != nil {
			return err
		}
		var errList []error
		for _, d := range contents.Deliveries {
			errList = append(errList, insertDelivery(ctx, tx, d))
		}
		for _, u := range contents.Users {
			errList = append(errList, insertUser(ctx, tx, u))
		}
		for _, t := range contents.Transactions {
			errList = append(errList, insertTransaction(ctx, tx, t))
		}
		errList = append(errList,
			setNextID(ctx, tx, tableDeliveries, contents.NextIDs.DeliveryID),
			setNextID(ctx, tx, tableUsers, contents.NextIDs.UserID),
			setNextID(ctx, tx, tableTransactions, contents.NextIDs.TransactionID),
		)
		if err := errors.Join(errList...); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		return nil
	})
}

// readContents reads every row in id order together with the id counters.
func readContents(ctx context.Context, q querier) (codec.Contents, error) {
	deliveries, err := queryDeliveries(ctx, q, `ORDER BY id`)
	if err != nil {
		return codec.Contents{}, err
	}

	users, err := queryUsers(ctx, q)
	if err != nil {
		return codec.Contents{}, err
	}

	transactions, err := queryTransactions(ctx, q, `ORDER BY id`)
	if err != nil {
		return codec.Contents{}, err
	}

	var next codec.NextIDs
	var errDeliveries, errUsers, errTransactions error
	next.DeliveryID, errDeliveries = nextID(ctx, q, tableDeliveries)
	next.UserID, errUsers = nextID(ctx, q, tableUsers)
	next.TransactionID, errTransactions = nextID(ctx, q, tableTransactions)
	if err := errors.Join(errDeliveries, errUsers, errTransactions); err != nil {
		return codec.Contents{}, err
	}

	return codec.Contents{
		Deliveries:   deliveries,
		Users:        users,
		Transactions: transactions,
		NextIDs:      next,
	}, nil
}

func (s *Store) Stats(ctx context.Context) (ports.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitialized(); err != nil {
		return ports.StoreStats{}, err
	}

	stats := ports.StoreStats{Backend: backendName, ByStatus: make(map[delivery.Status]int)}
	for table, count := range map[string]*int{
		tableDeliveries:   &stats.Deliveries,
		tableUsers:        &stats.Users,
		tableTransactions: &stats.Transactions,
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(count); err != nil {
			return ports.StoreStats{}, errs.NewPersistenceReadError("count "+table, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM deliveries GROUP BY status`)
	if err != nil {
		return ports.StoreStats{}, errs.NewPersistenceReadError("count by status", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return ports.StoreStats{}, errs.NewPersistenceReadError("count by status", err)
		}
		stats.ByStatus[delivery.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return ports.StoreStats{}, errs.NewPersistenceReadError("count by status", err)
	}

	used, capacity, err := s.kv.Usage(ctx)
	if err != nil {
		return ports.StoreStats{}, errs.NewPersistenceReadError("usage", err)
	}
	s.metrics.SetStoreUsage(used, capacity)
	stats.UsedBytes = used
	stats.CapacityBytes = capacity
	return stats, nil
}
