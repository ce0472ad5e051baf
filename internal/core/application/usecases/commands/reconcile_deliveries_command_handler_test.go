package commands_test

import (
	"errors"
	"testing"

	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileDeliveriesCommandHandler_RepairsMissedTransition(t *testing.T) {
	// Given a transition whose store write failed after the ledger call
	f := newFixture(t)
	d := f.create(t)
	f.kv.FailWrites(true)
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())
	require.ErrorIs(t, err, errs.ErrPersistenceWrite)
	f.kv.FailWrites(false)

	h := commands.NewReconcileDeliveriesCommandHandler(f.deps)

	// When
	report, err := h.Handle(t.Context(), commands.ReconcileDeliveriesCommand{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, commands.ReconcileReport{Checked: 1, Repaired: 2}, report)
	got := f.get(t, d.ID())
	assert.Equal(t, delivery.Accepted, got.Status())
	assigned, ok := got.Carrier()
	require.True(t, ok)
	assert.Equal(t, carrier, assigned)
	assert.Equal(t, []ledgertx.Type{ledgertx.TypeAccept, ledgertx.TypeCreate}, f.txTypes(t, d.ID()))

	// And the lifecycle continues from the repaired state
	_, err = f.transition(t, d.ID(), delivery.EventPickup, "")
	require.NoError(t, err)
}

func TestReconcileDeliveriesCommandHandler_IsIdempotent(t *testing.T) {
	// Given
	f := newFixture(t)
	first := f.create(t)
	second := f.create(t)
	_, err := f.transition(t, first.ID(), delivery.EventAccept, carrier.String())
	require.NoError(t, err)
	_, err = f.transition(t, second.ID(), delivery.EventCancel, "")
	require.NoError(t, err)
	h := commands.NewReconcileDeliveriesCommandHandler(f.deps)

	for range 2 {
		// When
		report, err := h.Handle(t.Context(), commands.ReconcileDeliveriesCommand{})

		// Then
		require.NoError(t, err)
		assert.Equal(t, commands.ReconcileReport{Checked: 2}, report)
	}
	assert.Equal(t, delivery.Accepted, f.get(t, first.ID()).Status())
	assert.Equal(t, delivery.Refunded, f.get(t, second.ID()).Status())
}

func TestReconcileDeliveriesCommandHandler_ReplaysSeveralMilestones(t *testing.T) {
	// Given two milestones the store never saw
	f := newFixture(t)
	d := f.create(t)
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())
	require.NoError(t, err)

	f.kv.FailWrites(true)
	_, err = f.transition(t, d.ID(), delivery.EventPickup, "")
	require.Error(t, err)
	// The store is still accepted, so the ledger accepts the next step too.
	_, err = f.ledger.Attest(t.Context(), d.ContractAddress(), "transit", carrier)
	require.NoError(t, err)
	f.kv.FailWrites(false)

	h := commands.NewReconcileDeliveriesCommandHandler(f.deps)

	// When
	report, err := h.Handle(t.Context(), commands.ReconcileDeliveriesCommand{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, 4, report.Repaired)
	assert.Equal(t, delivery.InTransit, f.get(t, d.ID()).Status())
	assert.Equal(t, []ledgertx.Type{
		ledgertx.TypeTransit,
		ledgertx.TypePickup,
		ledgertx.TypeAccept,
		ledgertx.TypeCreate,
	}, f.txTypes(t, d.ID()))
}

func TestReconcileDeliveriesCommandHandler_SkipsDeliveriesWithoutEscrow(t *testing.T) {
	// Given
	f := newFixture(t)
	_, err := f.store.CreateDelivery(t.Context(), delivery.Draft{
		Origin:      "Kano",
		Destination: "Jos",
		Amount:      kernel.MustAmount("1"),
		Deadline:    "2025-06-01",
		Requester:   requester,
	})
	require.NoError(t, err)
	h := commands.NewReconcileDeliveriesCommandHandler(f.deps)

	// When
	report, err := h.Handle(t.Context(), commands.ReconcileDeliveriesCommand{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, commands.ReconcileReport{}, report)
}

func TestReconcileDeliveriesCommandHandler_ContinuesPastLedgerFailures(t *testing.T) {
	// Given
	f := newFixture(t)
	first := f.create(t)
	second := f.create(t)
	f.ledger.FailNext(simledger.OpHistory, errors.New("node unreachable"))
	h := commands.NewReconcileDeliveriesCommandHandler(f.deps)

	// When
	report, err := h.Handle(t.Context(), commands.ReconcileDeliveriesCommand{})

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	assert.Equal(t, commands.ReconcileReport{Checked: 2, Failed: 1}, report)
	assert.Equal(t, delivery.Open, f.get(t, first.ID()).Status())
	assert.Equal(t, delivery.Open, f.get(t, second.ID()).Status())
}
