package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized   = errors.New("store is not initialized")
	ErrInitialization   = errors.New("persisted state is unreadable")
	ErrPersistenceWrite = errors.New("persistence write failed")
	ErrPersistenceRead  = errors.New("persistence read failed")
	ErrCapacityExceeded = errors.New("storage capacity exceeded")
	ErrLedger           = errors.New("ledger call failed")
)

// InitializationError is returned when a persisted blob exists but cannot be
// decoded. The blob is left untouched so an operator can recover it.
type InitializationError struct {
	Key   string
	Cause error
}

func NewInitializationError(key string, cause error) *InitializationError {
	return &InitializationError{Key: key, Cause: cause}
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s: key %q (cause: %v)", ErrInitialization, e.Key, e.Cause)
}

func (e *InitializationError) Unwrap() []error {
	return []error{ErrInitialization, e.Cause}
}

// PersistenceWriteError is returned when the persistence primitive rejects a
// write. The in-memory state is rolled back before it is returned.
type PersistenceWriteError struct {
	Key   string
	Size  int
	Cause error
}

func NewPersistenceWriteError(key string, size int, cause error) *PersistenceWriteError {
	return &PersistenceWriteError{Key: key, Size: size, Cause: cause}
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("%s: key %q, %d bytes (cause: %v)", ErrPersistenceWrite, e.Key, e.Size, e.Cause)
}

func (e *PersistenceWriteError) Unwrap() []error {
	return []error{ErrPersistenceWrite, e.Cause}
}

type PersistenceReadError struct {
	Operation string
	Cause     error
}

func NewPersistenceReadError(operation string, cause error) *PersistenceReadError {
	return &PersistenceReadError{Operation: operation, Cause: cause}
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("%s: %s (cause: %v)", ErrPersistenceRead, e.Operation, e.Cause)
}

func (e *PersistenceReadError) Unwrap() []error {
	return []error{ErrPersistenceRead, e.Cause}
}

// LedgerError wraps a failed or timed out call to the escrow ledger.
// errors.Is(err, context.DeadlineExceeded) holds for timeouts.
type LedgerError struct {
	Operation string
	Cause     error
}

func NewLedgerError(operation string, cause error) *LedgerError {
	return &LedgerError{Operation: operation, Cause: cause}
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s (cause: %v)", ErrLedger, e.Operation, e.Cause)
}

func (e *LedgerError) Unwrap() []error {
	return []error{ErrLedger, e.Cause}
}

// NewDeliveryNotFoundError reports a delivery id that does not exist.
func NewDeliveryNotFoundError(id int64) *ObjectNotFoundError {
	return NewObjectNotFoundError("delivery", fmt.Sprintf("delivery %d", id))
}
