// Package errs provides standardized error types for the cargotrust application.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes two families of error types:
//   - Validation: ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError,
//     VersionIsInvalidError, and ObjectNotFoundError for missing entities
//   - Infrastructure: InitializationError, PersistenceWriteError,
//     PersistenceReadError and LedgerError, plus the ErrNotInitialized and
//     ErrCapacityExceeded sentinels
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Infrastructure errors unwrap to both their sentinel and their cause, so
// errors.Is(err, errs.ErrPersistenceWrite) and
// errors.Is(err, errs.ErrCapacityExceeded) hold for the same value.
package errs
