package errs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceWriteError(t *testing.T) {
	t.Run("should match both sentinel and cause", func(t *testing.T) {
		err := errs.NewPersistenceWriteError("cargotrust_db", 2048, errs.ErrCapacityExceeded)

		require.ErrorIs(t, err, errs.ErrPersistenceWrite)
		require.ErrorIs(t, err, errs.ErrCapacityExceeded)
		assert.Equal(t,
			`persistence write failed: key "cargotrust_db", 2048 bytes (cause: storage capacity exceeded)`,
			err.Error())
	})

	t.Run("should survive fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("create delivery: %w", errs.NewPersistenceWriteError("k", 1, errors.New("disk")))

		var target *errs.PersistenceWriteError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "k", target.Key)
	})
}

func TestInitializationError(t *testing.T) {
	err := errs.NewInitializationError("cargotrust_deliveries", errors.New("unexpected end of JSON input"))

	require.ErrorIs(t, err, errs.ErrInitialization)
	assert.Contains(t, err.Error(), "cargotrust_deliveries")
	assert.NotErrorIs(t, err, errs.ErrPersistenceWrite)
}

func TestLedgerError(t *testing.T) {
	t.Run("should expose timeout cause", func(t *testing.T) {
		err := errs.NewLedgerError("release", context.DeadlineExceeded)

		require.ErrorIs(t, err, errs.ErrLedger)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, "ledger call failed: release (cause: context deadline exceeded)", err.Error())
	})
}

func TestPersistenceReadError(t *testing.T) {
	err := errs.NewPersistenceReadError("get delivery", errors.New("database is locked"))

	require.ErrorIs(t, err, errs.ErrPersistenceRead)
	assert.Equal(t, "persistence read failed: get delivery (cause: database is locked)", err.Error())
}

func TestIsValidation(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "invalid", err: errs.NewValueIsInvalidError("amount"), want: true},
		{name: "required", err: errs.NewValueIsRequiredError("origin"), want: true},
		{name: "out_of_range", err: errs.NewValueIsOutOfRangeError("amount", -1, 0, 10), want: true},
		{name: "not_found", err: errs.NewObjectNotFoundError("id", "1"), want: false},
		{name: "ledger", err: errs.NewLedgerError("fund", errors.New("boom")), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errs.IsValidation(tc.err))
		})
	}
}

func TestNewDeliveryNotFoundError(t *testing.T) {
	err := errs.NewDeliveryNotFoundError(42)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	assert.Equal(t, "object not found: delivery 42", err.Error())
	assert.False(t, errs.IsValidation(err))
}
