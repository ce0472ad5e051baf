package ports

import "context"

// KeyValue is the durable primitive every Store engine persists through:
// string keys to string values with a total capacity. It has no transactions.
type KeyValue interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. Writes that would exceed the capacity fail
	// with an error matching errs.ErrCapacityExceeded and store nothing.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Usage reports bytes in use and the capacity (0 means unbounded).
	Usage(ctx context.Context) (used, capacity int64, err error)
}
