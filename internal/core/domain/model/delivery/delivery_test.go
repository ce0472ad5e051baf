package delivery_test

import (
	"testing"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func validDraft() delivery.Draft {
	return delivery.Draft{
		Origin:      "Lagos",
		Destination: "Abuja",
		Description: "two boxes",
		Amount:      kernel.MustAmount("10"),
		Deadline:    "2025-12-31",
		Requester:   kernel.MustAddress("R1"),
	}
}

func TestNew(t *testing.T) {
	t.Run("should create an open delivery without carrier", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)

		require.NoError(t, err)
		require.NoError(t, d.Validate())
		assert.Equal(t, int64(1), d.ID())
		assert.Equal(t, delivery.Open, d.Status())
		_, hasCarrier := d.Carrier()
		assert.False(t, hasCarrier)
		assert.Equal(t, t0, d.CreatedAt())
		assert.Equal(t, d.CreatedAt(), d.UpdatedAt())
	})

	t.Run("should report every missing field", func(t *testing.T) {
		_, err := delivery.New(0, delivery.Draft{}, t0)

		require.Error(t, err)
		for _, field := range []string{"id", "origin", "destination", "amount", "deadline", "requester"} {
			assert.Contains(t, err.Error(), field)
		}
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var d *delivery.Delivery

		assert.Equal(t, delivery.ErrDeliveryIsNotConstructed, d.Validate())
	})
}

func TestDelivery_SetStatus(t *testing.T) {
	t.Run("should set carrier with accepted status", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)

		err = d.SetStatus(delivery.Accepted, kernel.MustAddress("C1"), t0.Add(time.Minute))

		require.NoError(t, err)
		carrier, ok := d.Carrier()
		assert.True(t, ok)
		assert.Equal(t, "C1", carrier.String())
		assert.Equal(t, t0.Add(time.Minute), d.UpdatedAt())
	})

	t.Run("should keep carrier when none is given", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)
		require.NoError(t, d.SetStatus(delivery.Accepted, kernel.MustAddress("C1"), t0))

		require.NoError(t, d.SetStatus(delivery.PickedUp, kernel.Address{}, t0))

		carrier, _ := d.Carrier()
		assert.Equal(t, "C1", carrier.String())
	})

	t.Run("should refuse accepted without carrier and leave state untouched", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)

		err = d.SetStatus(delivery.Accepted, kernel.Address{}, t0.Add(time.Hour))

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Equal(t, delivery.Open, d.Status())
		assert.Equal(t, t0, d.UpdatedAt())
	})

	t.Run("should never move updatedAt before createdAt", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)

		require.NoError(t, d.SetStatus(delivery.Refunded, kernel.Address{}, t0.Add(-time.Hour)))

		assert.Equal(t, d.CreatedAt(), d.UpdatedAt())
	})
}

func TestDelivery_ApplyPatch(t *testing.T) {
	t.Run("should merge only provided fields", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)
		description := "fragile"

		err = d.ApplyPatch(delivery.Patch{Description: &description}, t0.Add(time.Second))

		require.NoError(t, err)
		assert.Equal(t, "fragile", d.Description())
		assert.Equal(t, "Lagos", d.Origin())
		assert.Equal(t, t0.Add(time.Second), d.UpdatedAt())
	})

	t.Run("empty patch refreshes updatedAt", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)

		require.NoError(t, d.ApplyPatch(delivery.Patch{}, t0.Add(time.Second)))

		assert.Equal(t, t0.Add(time.Second), d.UpdatedAt())
	})

	t.Run("should apply nothing when the result breaks the carrier invariant", func(t *testing.T) {
		d, err := delivery.New(1, validDraft(), t0)
		require.NoError(t, err)
		status := delivery.Accepted
		origin := "Kano"

		err = d.ApplyPatch(delivery.Patch{Status: &status, Origin: &origin}, t0.Add(time.Second))

		require.Error(t, err)
		assert.Equal(t, delivery.Open, d.Status())
		assert.Equal(t, "Lagos", d.Origin())
		assert.Equal(t, t0, d.UpdatedAt())
	})
}

func TestRestore(t *testing.T) {
	t.Run("should round trip through State", func(t *testing.T) {
		d, err := delivery.New(3, validDraft(), t0)
		require.NoError(t, err)
		require.NoError(t, d.SetStatus(delivery.Accepted, kernel.MustAddress("C1"), t0.Add(time.Minute)))

		restored, err := delivery.Restore(d.State())

		require.NoError(t, err)
		assert.Equal(t, d.State(), restored.State())
	})

	t.Run("should reject a carrier on an open delivery", func(t *testing.T) {
		d, err := delivery.New(3, validDraft(), t0)
		require.NoError(t, err)
		state := d.State()
		state.Carrier = "C1"

		_, err = delivery.Restore(state)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject negative amounts", func(t *testing.T) {
		d, err := delivery.New(3, validDraft(), t0)
		require.NoError(t, err)
		state := d.State()
		state.Amount = "-5"

		_, err = delivery.Restore(state)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})
}

func TestValidateRoute(t *testing.T) {
	require.NoError(t, delivery.ValidateRoute("Lagos", "Abuja"))
	require.ErrorIs(t, delivery.ValidateRoute("Lagos", " lagos "), errs.ErrValueIsInvalid)
}
