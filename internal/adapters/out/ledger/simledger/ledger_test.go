package simledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyer   = kernel.MustAddress("GBUYER")
	seller  = kernel.MustAddress("GSELLER")
	arbiter = kernel.MustAddress("GARBITER")
	carrier = kernel.MustAddress("GCARRIER")
)

func funded(t *testing.T, l *simledger.Ledger) string {
	t.Helper()
	id, _, err := l.InitEscrow(t.Context(), buyer, seller, arbiter, 100_000_000)
	require.NoError(t, err)
	_, err = l.Fund(t.Context(), id, buyer)
	require.NoError(t, err)
	return id
}

func TestLedger_EscrowLifecycle(t *testing.T) {
	// Given
	ctx := t.Context()
	l := simledger.New(testutil.NewStepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	// When
	id, initReceipt, err := l.InitEscrow(ctx, buyer, seller, arbiter, 100_000_000)
	require.NoError(t, err)
	fundReceipt, err := l.Fund(ctx, id, buyer)
	require.NoError(t, err)
	_, err = l.Attest(ctx, id, ports.MilestoneAccept, carrier)
	require.NoError(t, err)
	releaseReceipt, err := l.Release(ctx, id, arbiter)
	require.NoError(t, err)

	// Then
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^0x[0-9a-f]{32}$`, fundReceipt.Hash)
	assert.Equal(t, initReceipt.BlockNumber+1, fundReceipt.BlockNumber)
	assert.Positive(t, releaseReceipt.GasUsed)

	history, err := l.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ports.MilestoneFund, history[0].Milestone)
	assert.Equal(t, buyer, history[0].Actor)
	assert.Equal(t, ports.MilestoneAccept, history[1].Milestone)
	assert.Equal(t, carrier, history[1].Actor)
	assert.Equal(t, ports.MilestoneRelease, history[2].Milestone)
	assert.Equal(t, releaseReceipt, history[2].Receipt)
}

func TestLedger_Rules(t *testing.T) {
	ctx := t.Context()
	l := simledger.New(testutil.NewStepClock(time.Now()))

	t.Run("only the buyer funds", func(t *testing.T) {
		id, _, err := l.InitEscrow(ctx, buyer, seller, arbiter, 1)
		require.NoError(t, err)

		_, err = l.Fund(ctx, id, seller)

		assert.ErrorIs(t, err, simledger.ErrUnauthorized)
	})

	t.Run("cannot fund twice", func(t *testing.T) {
		id := funded(t, l)

		_, err := l.Fund(ctx, id, buyer)

		assert.ErrorIs(t, err, simledger.ErrInvalidState)
	})

	t.Run("only the arbiter releases or refunds", func(t *testing.T) {
		id := funded(t, l)

		_, err := l.Release(ctx, id, buyer)
		assert.ErrorIs(t, err, simledger.ErrUnauthorized)

		_, err = l.Refund(ctx, id, seller)
		assert.ErrorIs(t, err, simledger.ErrUnauthorized)
	})

	t.Run("settled escrow is final", func(t *testing.T) {
		id := funded(t, l)
		_, err := l.Refund(ctx, id, arbiter)
		require.NoError(t, err)

		_, err = l.Release(ctx, id, arbiter)
		assert.ErrorIs(t, err, simledger.ErrInvalidState)

		_, err = l.Attest(ctx, id, ports.MilestonePickup, carrier)
		assert.ErrorIs(t, err, simledger.ErrInvalidState)
	})

	t.Run("unfunded escrow cannot be released", func(t *testing.T) {
		id, _, err := l.InitEscrow(ctx, buyer, seller, arbiter, 1)
		require.NoError(t, err)

		_, err = l.Release(ctx, id, arbiter)

		assert.ErrorIs(t, err, simledger.ErrInvalidState)
	})

	t.Run("milestones are attested once", func(t *testing.T) {
		id := funded(t, l)
		_, err := l.Attest(ctx, id, ports.MilestonePickup, carrier)
		require.NoError(t, err)

		_, err = l.Attest(ctx, id, ports.MilestonePickup, carrier)

		assert.ErrorIs(t, err, simledger.ErrInvalidState)
	})

	t.Run("settlement milestones cannot be attested", func(t *testing.T) {
		id := funded(t, l)

		_, err := l.Attest(ctx, id, ports.MilestoneRelease, arbiter)

		assert.ErrorIs(t, err, simledger.ErrInvalidState)
	})

	t.Run("amount must be positive", func(t *testing.T) {
		_, _, err := l.InitEscrow(ctx, buyer, seller, arbiter, 0)
		assert.ErrorIs(t, err, simledger.ErrInvalidAmount)
	})

	t.Run("parties are required", func(t *testing.T) {
		_, _, err := l.InitEscrow(ctx, buyer, kernel.Address{}, arbiter, 1)
		assert.ErrorIs(t, err, simledger.ErrMissingParty)
	})

	t.Run("unknown escrow", func(t *testing.T) {
		_, err := l.History(ctx, "missing")
		assert.ErrorIs(t, err, simledger.ErrEscrowNotFound)
	})
}

func TestLedger_FailNext(t *testing.T) {
	ctx := t.Context()
	l := simledger.New(testutil.NewStepClock(time.Now()))
	id, _, err := l.InitEscrow(ctx, buyer, seller, arbiter, 1)
	require.NoError(t, err)
	boom := errors.New("node unreachable")

	l.FailNext(simledger.OpFund, boom)

	_, err = l.Fund(ctx, id, buyer)
	require.ErrorIs(t, err, boom)

	history, err := l.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = l.Fund(ctx, id, buyer)
	assert.NoError(t, err)
}

func TestLedger_LatencyRespectsContext(t *testing.T) {
	l := simledger.New(testutil.NewStepClock(time.Now()), simledger.WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, _, err := l.InitEscrow(ctx, buyer, seller, arbiter, 1)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
