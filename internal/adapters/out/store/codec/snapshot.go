// Package codec defines the persisted and exported forms of the store: the
// snapshot document shared by every engine, the per-table blobs of the flat
// engine and the base64 image of the structured engine.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"cmp"
	"errors"
	"fmt"
	"slices"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/pkg/errs"
)

// Version is the snapshot format written by this release.
const Version = 1

// Snapshot is the complete, engine independent export of a store. Rows are
// kept in id order so that export, import and export again is byte identical.
type Snapshot struct {
	Version      int                 `json:"version"`
	Deliveries   []DeliveryRecord    `json:"deliveries"`
	Users        []UserRecord        `json:"users"`
	Transactions []TransactionRecord `json:"transactions"`
	NextIDs      NextIDs             `json:"nextIds"`
}

// Contents is a snapshot turned back into validated domain objects.
type Contents struct {
	Deliveries   []*delivery.Delivery
	Users        []*user.User
	Transactions []*ledgertx.Transaction
	NextIDs      NextIDs
}

// NewSnapshot builds a snapshot from domain collections given in id order.
func NewSnapshot(c Contents) Snapshot {
	s := Snapshot{
		Version:      Version,
		Deliveries:   make([]DeliveryRecord, 0, len(c.Deliveries)),
		Users:        make([]UserRecord, 0, len(c.Users)),
		Transactions: make([]TransactionRecord, 0, len(c.Transactions)),
		NextIDs:      c.NextIDs,
	}
	for _, d := range c.Deliveries {
		s.Deliveries = append(s.Deliveries, FromDelivery(d))
	}
	for _, u := range c.Users {
		s.Users = append(s.Users, FromUser(u))
	}
	for _, t := range c.Transactions {
		s.Transactions = append(s.Transactions, FromTransaction(t))
	}
	return s
}

// Encode renders the snapshot as indented JSON.
func Encode(s Snapshot) ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses and validates a snapshot. Missing collections are treated as
// empty, a missing version as 1, and missing or stale counters are raised
// above the highest id present. Every row is validated.
func Decode(b []byte) (Contents, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Contents{}, errs.NewValueIsInvalidErrorWithCause("snapshot", err)
	}
	if s.Version == 0 {
		s.Version = Version
	}
	if s.Version > Version {
		return Contents{}, errs.NewVersionIsInvalidError("snapshot",
			fmt.Errorf("version %d is newer than supported version %d", s.Version, Version))
	}
	return s.Contents()
}

// Contents validates the rows of s and returns every collection in id
// order, whatever order the document lists them in.
func (s Snapshot) Contents() (Contents, error) {
	c := Contents{NextIDs: s.NextIDs}
	var errList []error

	seen := map[int64]bool{}
	var maxDelivery int64
	for _, r := range s.Deliveries {
		if seen[r.ID] {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause("delivery id", fmt.Errorf("%d is duplicated", r.ID)))
			continue
		}
		seen[r.ID] = true
		d, err := r.ToDomain()
		if err != nil {
			errList = append(errList, err)
			continue
		}
		c.Deliveries = append(c.Deliveries, d)
		maxDelivery = max(maxDelivery, r.ID)
	}

	addresses := map[string]bool{}
	seen = map[int64]bool{}
	var maxUser int64
	for _, r := range s.Users {
		if seen[r.ID] || addresses[r.Address] {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause("user", fmt.Errorf("%d (%s) is duplicated", r.ID, r.Address)))
			continue
		}
		seen[r.ID] = true
		addresses[r.Address] = true
		u, err := r.ToDomain()
		if err != nil {
			errList = append(errList, fmt.Errorf("user %d: %w", r.ID, err))
			continue
		}
		c.Users = append(c.Users, u)
		maxUser = max(maxUser, r.ID)
	}

	seen = map[int64]bool{}
	var maxTx int64
	for _, r := range s.Transactions {
		if seen[r.ID] {
			errList = append(errList, errs.NewValueIsInvalidErrorWithCause("transaction id", fmt.Errorf("%d is duplicated", r.ID)))
			continue
		}
		seen[r.ID] = true
		t, err := r.ToDomain()
		if err != nil {
			errList = append(errList, fmt.Errorf("transaction %d: %w", r.ID, err))
			continue
		}
		c.Transactions = append(c.Transactions, t)
		maxTx = max(maxTx, r.ID)
	}

	if err := errors.Join(errList...); err != nil {
		return Contents{}, err
	}

	slices.SortFunc(c.Deliveries, func(a, b *delivery.Delivery) int { return cmp.Compare(a.ID(), b.ID()) })
	slices.SortFunc(c.Users, func(a, b *user.User) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(c.Transactions, func(a, b *ledgertx.Transaction) int { return cmp.Compare(a.ID, b.ID) })

	c.NextIDs.DeliveryID = max(c.NextIDs.DeliveryID, maxDelivery+1)
	c.NextIDs.UserID = max(c.NextIDs.UserID, maxUser+1)
	c.NextIDs.TransactionID = max(c.NextIDs.TransactionID, maxTx+1)
	return c, nil
}

// EncodeTable renders one collection as a compact JSON array; nil encodes as [].
func EncodeTable[T any](rows []T) (string, error) {
	if rows == nil {
		rows = []T{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode table: %w", err)
	}
	return string(b), nil
}

// DecodeTable parses a blob written by EncodeTable.
func DecodeTable[T any](blob string) ([]T, error) {
	var rows []T
	if err := json.Unmarshal([]byte(blob), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func EncodeNextIDs(n NextIDs) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encode next ids: %w", err)
	}
	return string(b), nil
}

func DecodeNextIDs(blob string) (NextIDs, error) {
	var n NextIDs
	if err := json.Unmarshal([]byte(blob), &n); err != nil {
		return NextIDs{}, err
	}
	return n, nil
}

// EncodeImage turns a binary database image into text the primitive can hold.
func EncodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

func DecodeImage(blob string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(blob)
}
