package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
)

const (
	deliveryColumns = `id, origin, destination, description, amount, status, deadline, requester, carrier,
		created_at, updated_at, distance, estimated_time, contract_address, transaction_hash`
	userColumns        = `id, address, name, email, phone, created_at, updated_at`
	transactionColumns = `id, delivery_id, transaction_hash, transaction_type, block_number, gas_used, status, created_at`

	newestFirst = ` ORDER BY created_at DESC, id ASC`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(sc scanner) (*delivery.Delivery, error) {
	var (
		st                                       delivery.State
		status                                   string
		carrier, distance, eta, contract, txHash sql.NullString
		createdAt, updatedAt                     int64
	)
	if err := sc.Scan(
		&st.ID, &st.Origin, &st.Destination, &st.Description, &st.Amount, &status, &st.Deadline,
		&st.Requester, &carrier, &createdAt, &updatedAt, &distance, &eta, &contract, &txHash,
	); err != nil {
		return nil, err
	}
	st.Status = delivery.Status(status)
	st.Carrier = carrier.String
	st.Distance = distance.String
	st.EstimatedTime = eta.String
	st.ContractAddress = contract.String
	st.TransactionHash = txHash.String
	st.CreatedAt = time.UnixMilli(createdAt)
	st.UpdatedAt = time.UnixMilli(updatedAt)
	return delivery.Restore(st)
}

func insertDelivery(ctx context.Context, q querier, d *delivery.Delivery) error {
	st := d.State()
	_, err := q.ExecContext(ctx,
		`INSERT INTO deliveries (`+deliveryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Origin, st.Destination, st.Description, st.Amount, string(st.Status), st.Deadline,
		st.Requester, nullable(st.Carrier), st.CreatedAt.UnixMilli(), st.UpdatedAt.UnixMilli(),
		nullable(st.Distance), nullable(st.EstimatedTime), nullable(st.ContractAddress), nullable(st.TransactionHash),
	)
	return err
}

func updateDelivery(ctx context.Context, q querier, d *delivery.Delivery) error {
	st := d.State()
	_, err := q.ExecContext(ctx,
		`UPDATE deliveries SET origin = ?, destination = ?, description = ?, amount = ?, status = ?,
			deadline = ?, requester = ?, carrier = ?, updated_at = ?, distance = ?, estimated_time = ?,
			contract_address = ?, transaction_hash = ?
		WHERE id = ?`,
		st.Origin, st.Destination, st.Description, st.Amount, string(st.Status),
		st.Deadline, st.Requester, nullable(st.Carrier), st.UpdatedAt.UnixMilli(), nullable(st.Distance),
		nullable(st.EstimatedTime), nullable(st.ContractAddress), nullable(st.TransactionHash),
		st.ID,
	)
	return err
}

func queryDeliveries(ctx context.Context, q querier, where string, args ...any) ([]*delivery.Delivery, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*delivery.Delivery, 0)
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanUser(sc scanner) (*user.User, error) {
	var (
		id                   int64
		address              string
		name, email, phone   sql.NullString
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&id, &address, &name, &email, &phone, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return codec.UserRecord{
		ID:        id,
		Address:   address,
		Name:      name.String,
		Email:     email.String,
		Phone:     phone.String,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}.ToDomain()
}

func insertUser(ctx context.Context, q querier, u *user.User) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Address.String(), nullable(u.Name), nullable(u.Email), nullable(u.Phone),
		u.CreatedAt.UnixMilli(), u.UpdatedAt.UnixMilli(),
	)
	return err
}

// queryUsers closes its rows before returning: the pool has one connection.
func queryUsers(ctx context.Context, q querier) ([]*user.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func findUser(ctx context.Context, q querier, address kernel.Address) (*user.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE address = ?`, address.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func scanTransaction(sc scanner) (*ledgertx.Transaction, error) {
	var (
		r                    codec.TransactionRecord
		blockNumber, gasUsed sql.NullInt64
	)
	if err := sc.Scan(&r.ID, &r.DeliveryID, &r.TransactionHash, &r.TransactionType,
		&blockNumber, &gasUsed, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	if blockNumber.Valid {
		r.BlockNumber = &blockNumber.Int64
	}
	if gasUsed.Valid {
		r.GasUsed = &gasUsed.Int64
	}
	return r.ToDomain()
}

func insertTransaction(ctx context.Context, q querier, t *ledgertx.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO blockchain_transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.DeliveryID, t.TransactionHash, string(t.Type), t.BlockNumber, t.GasUsed,
		string(t.Status), t.CreatedAt.UnixMilli(),
	)
	return err
}

func queryTransactions(ctx context.Context, q querier, where string, args ...any) ([]*ledgertx.Transaction, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+transactionColumns+` FROM blockchain_transactions `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*ledgertx.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// nextID is the id the next insert into table receives. sqlite_sequence
// survives deletes, so ids are never reused.
func nextID(ctx context.Context, q querier, table string) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT seq FROM sqlite_sequence WHERE name = ?), 0)`, table).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq + 1, nil
}

func setNextID(ctx context.Context, q querier, table string, next int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = ?`, table); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, next-1)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
