package commands_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransitionCommandHandler_FullLifecycle(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)

	steps := []struct {
		event delivery.Event
		actor string
		want  delivery.Status
	}{
		{delivery.EventAccept, carrier.String(), delivery.Accepted},
		{delivery.EventPickup, "", delivery.PickedUp},
		{delivery.EventTransit, "", delivery.InTransit},
		{delivery.EventDeliver, "", delivery.Delivered},
		{delivery.EventRelease, "", delivery.Completed},
	}

	for i, step := range steps {
		// When
		got, err := f.transition(t, d.ID(), step.event, step.actor)

		// Then
		require.NoError(t, err, step.event)
		assert.Equal(t, step.want, got.Status())
		assigned, ok := got.Carrier()
		require.True(t, ok)
		assert.Equal(t, carrier, assigned)
		assert.Len(t, f.txTypes(t, d.ID()), i+2)
	}

	assert.Equal(t, []ledgertx.Type{
		ledgertx.TypeComplete,
		ledgertx.TypeDeliver,
		ledgertx.TypeTransit,
		ledgertx.TypePickup,
		ledgertx.TypeAccept,
		ledgertx.TypeCreate,
	}, f.txTypes(t, d.ID()))
	assert.Equal(t, []ports.Milestone{
		ports.MilestoneFund,
		ports.MilestoneAccept,
		ports.MilestonePickup,
		ports.MilestoneTransit,
		ports.MilestoneDeliver,
		ports.MilestoneRelease,
	}, f.milestones(t, d.ContractAddress()))
}

func TestTransitionCommandHandler_CancelOpenDelivery(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)

	// When
	got, err := f.transition(t, d.ID(), delivery.EventCancel, "")

	// Then
	require.NoError(t, err)
	assert.Equal(t, delivery.Refunded, got.Status())
	assert.Equal(t, []ledgertx.Type{ledgertx.TypeRefund, ledgertx.TypeCreate}, f.txTypes(t, d.ID()))

	_, err = f.transition(t, d.ID(), delivery.EventAccept, carrier.String())
	assert.True(t, errs.IsValidation(err))
}

func TestTransitionCommandHandler_RejectedEventsNeverReachLedger(t *testing.T) {
	tests := []struct {
		name  string
		event delivery.Event
		setup []delivery.Event
	}{
		{name: "pickup_while_open", event: delivery.EventPickup},
		{name: "release_while_open", event: delivery.EventRelease},
		{name: "cancel_after_accept", event: delivery.EventCancel, setup: []delivery.Event{delivery.EventAccept}},
		{name: "accept_twice", event: delivery.EventAccept, setup: []delivery.Event{delivery.EventAccept}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			f := newFixture(t)
			d := f.create(t)
			for _, e := range tt.setup {
				_, err := f.transition(t, d.ID(), e, carrier.String())
				require.NoError(t, err)
			}
			before := f.get(t, d.ID())
			milestones := f.milestones(t, d.ContractAddress())

			// When
			_, err := f.transition(t, d.ID(), tt.event, carrier.String())

			// Then
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
			assert.Equal(t, before.State(), f.get(t, d.ID()).State())
			assert.Equal(t, milestones, f.milestones(t, d.ContractAddress()))
			assert.Len(t, f.txTypes(t, d.ID()), 1+len(tt.setup))
		})
	}
}

func TestTransitionCommandHandler_MissingDelivery(t *testing.T) {
	f := newFixture(t)

	_, err := f.transition(t, 99, delivery.EventPickup, "")

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	assert.Equal(t, "object not found: delivery 99", err.Error())
}

func TestTransitionCommandHandler_DeliveryWithoutEscrow(t *testing.T) {
	// Given
	f := newFixture(t)
	d, err := f.store.CreateDelivery(t.Context(), delivery.Draft{
		Origin:      "Lagos",
		Destination: "Abuja",
		Amount:      kernel.MustAmount("5"),
		Deadline:    "2025-12-31",
		Requester:   requester,
	})
	require.NoError(t, err)

	// When
	_, err = f.transition(t, d.ID(), delivery.EventAccept, carrier.String())

	// Then
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestTransitionCommandHandler_LedgerTimeoutLeavesStoreUnchanged(t *testing.T) {
	// Given
	f := newFixture(t, simledger.WithLatency(200*time.Millisecond))
	d := f.create(t)
	f.deps.LedgerTimeout = 10 * time.Millisecond

	// When
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, delivery.Open, f.get(t, d.ID()).Status())
	assert.Equal(t, []ledgertx.Type{ledgertx.TypeCreate}, f.txTypes(t, d.ID()))
}

func TestTransitionCommandHandler_LedgerFailureOnPickupChangesNothing(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())
	require.NoError(t, err)
	before, err := f.store.ExportSnapshot(t.Context())
	require.NoError(t, err)
	f.ledger.FailNext(simledger.OpAttest, errors.New("node unreachable"))

	// When
	_, err = f.transition(t, d.ID(), delivery.EventPickup, "")

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	assert.False(t, errs.IsValidation(err))
	assert.Equal(t, delivery.Accepted, f.get(t, d.ID()).Status())
	assert.Equal(t, []ledgertx.Type{ledgertx.TypeAccept, ledgertx.TypeCreate}, f.txTypes(t, d.ID()))
	after, err := f.store.ExportSnapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// And the pickup succeeds once the ledger answers again.
	got, err := f.transition(t, d.ID(), delivery.EventPickup, "")
	require.NoError(t, err)
	assert.Equal(t, delivery.PickedUp, got.Status())
}

func TestTransitionCommandHandler_LedgerRejectsWrongCaller(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)

	// When
	_, err := f.transition(t, d.ID(), delivery.EventCancel, "GSTRANGER")

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	require.ErrorIs(t, err, simledger.ErrUnauthorized)
	assert.Equal(t, delivery.Open, f.get(t, d.ID()).Status())
}

func TestTransitionCommandHandler_StoreFailureAfterLedgerCall(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)
	f.kv.FailWrites(true)

	// When
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())

	// Then
	require.ErrorIs(t, err, errs.ErrPersistenceWrite)
	assert.Equal(t, delivery.Open, f.get(t, d.ID()).Status())
	assert.Equal(t, []ports.Milestone{ports.MilestoneFund, ports.MilestoneAccept}, f.milestones(t, d.ContractAddress()))
}

func TestTransitionCommandHandler_ConcurrentAcceptsHaveOneWinner(t *testing.T) {
	// Given
	f := newFixture(t, simledger.WithLatency(5*time.Millisecond))
	d := f.create(t)
	h := commands.NewTransitionCommandHandler(f.deps)

	const contenders = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		rejected int
	)

	// When
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := commands.NewAcceptDeliveryCommand(d.ID(), fmt.Sprintf("GCARRIER%d", i))
			if !assert.NoError(t, err) {
				return
			}
			_, err = h.Handle(context.Background(), cmd)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errs.IsValidation(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Then
	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, rejected)
	assert.Equal(t, []ledgertx.Type{ledgertx.TypeAccept, ledgertx.TypeCreate}, f.txTypes(t, d.ID()))
	assert.Zero(t, f.deps.Locks.Len())
}

func TestTransitionCommandHandler_PublishesStatusChange(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)
	publisher := new(MockPublisher)
	f.deps.Publisher = publisher
	publisher.On("PublishStatusChanged", mock.Anything, mock.MatchedBy(func(e ports.DeliveryStatusChanged) bool {
		return e.DeliveryID == d.ID() &&
			e.From == delivery.Open &&
			e.To == delivery.Accepted &&
			e.Carrier == carrier.String() &&
			e.TxHash != ""
	})).Return(errors.New("broker down")).Once()

	// When
	got, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())

	// Then
	require.NoError(t, err, "publishing is best effort")
	assert.Equal(t, delivery.Accepted, got.Status())
	publisher.AssertExpectations(t)
}

func TestTransitionCommandHandler_AttestsWithAssignedCarrier(t *testing.T) {
	// Given
	f := newFixture(t)
	d := f.create(t)
	_, err := f.transition(t, d.ID(), delivery.EventAccept, carrier.String())
	require.NoError(t, err)

	// When
	_, err = f.transition(t, d.ID(), delivery.EventPickup, "")

	// Then
	require.NoError(t, err)
	history, err := f.ledger.History(t.Context(), d.ContractAddress())
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, carrier, history[2].Actor)
}
