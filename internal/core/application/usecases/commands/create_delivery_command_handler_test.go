package commands_test

import (
	"errors"
	"testing"

	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreateDeliveryCommandHandler_FundsEscrowAndStoresDelivery(t *testing.T) {
	// Given
	f := newFixture(t)

	// When
	d := f.create(t)

	// Then
	assert.Equal(t, int64(1), d.ID())
	assert.Equal(t, delivery.Open, d.Status())
	assert.Equal(t, "2025-01-04", d.Deadline())
	require.True(t, d.HasEscrow())
	assert.NotEmpty(t, d.TransactionHash())
	_, hasCarrier := d.Carrier()
	assert.False(t, hasCarrier)

	assert.Equal(t, []ports.Milestone{ports.MilestoneFund}, f.milestones(t, d.ContractAddress()))

	txs, err := f.store.GetTransactionsByDeliveryID(t.Context(), d.ID())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledgertx.TypeCreate, txs[0].Type)
	assert.Equal(t, ledgertx.StatusConfirmed, txs[0].Status)
	assert.Equal(t, d.TransactionHash(), txs[0].TransactionHash)
	require.NotNil(t, txs[0].GasUsed)
	assert.Positive(t, *txs[0].GasUsed)
}

func TestCreateDeliveryCommandHandler_PastPickupDeadlineNeverReachesLedger(t *testing.T) {
	// Given
	f := newFixture(t)
	ledger := new(MockLedger)
	f.deps.Ledger = ledger
	f.clock.Set(epoch.AddDate(0, 0, 2))

	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)

	// When
	_, err = h.Handle(t.Context(), cmd)

	// Then
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	ledger.AssertExpectations(t)
	all, err := f.store.GetAllDeliveries(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDeliveryCommandHandler_LedgerFailureStoresNothing(t *testing.T) {
	// Given
	f := newFixture(t)
	f.ledger.FailNext(simledger.OpFund, errors.New("node unreachable"))
	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)

	// When
	_, err = h.Handle(t.Context(), cmd)

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	all, err := f.store.GetAllDeliveries(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDeliveryCommandHandler_LogsEscrowLeftUnfunded(t *testing.T) {
	// Given
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	f.deps.Logger = zap.New(core)
	ledger := new(MockLedger)
	f.deps.Ledger = ledger
	ledger.On("InitEscrow", mock.Anything, requester, requester, requester, int64(255_000_000)).
		Return("escrow-7", ports.Receipt{Hash: "0xinit"}, nil).Once()
	ledger.On("Fund", mock.Anything, "escrow-7", requester).
		Return(ports.Receipt{}, errors.New("node unreachable")).Once()
	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)

	// When
	_, err = h.Handle(t.Context(), cmd)

	// Then
	require.ErrorIs(t, err, errs.ErrLedger)
	ledger.AssertExpectations(t)
	entries := logs.FilterField(zap.String("escrow_id", "escrow-7")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "not funded")
}

func TestCreateDeliveryCommandHandler_RefundsEscrowWhenStoreFails(t *testing.T) {
	// Given
	f := newFixture(t)
	ledger := new(MockLedger)
	f.deps.Ledger = ledger
	f.kv.FailWrites(true)

	mock.InOrder(
		ledger.On("InitEscrow", mock.Anything, requester, requester, requester, int64(255_000_000)).
			Return("escrow-1", ports.Receipt{Hash: "0x01"}, nil).Once(),
		ledger.On("Fund", mock.Anything, "escrow-1", requester).
			Return(ports.Receipt{Hash: "0x02"}, nil).Once(),
		ledger.On("Refund", mock.Anything, "escrow-1", requester).
			Return(ports.Receipt{Hash: "0x03"}, nil).Once(),
	)

	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)

	// When
	_, err = h.Handle(t.Context(), cmd)

	// Then
	require.ErrorIs(t, err, errs.ErrPersistenceWrite)
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	ledger.AssertExpectations(t)
}

func TestCreateDeliveryCommandHandler_UsesConfiguredArbiter(t *testing.T) {
	// Given
	f := newFixture(t)
	ledger := new(MockLedger)
	arbiter := carrier
	f.deps.Ledger = ledger
	f.deps.Arbiter = arbiter

	ledger.On("InitEscrow", mock.Anything, requester, requester, arbiter, mock.AnythingOfType("int64")).
		Return("escrow-1", ports.Receipt{Hash: "0x01"}, nil).Once()
	ledger.On("Fund", mock.Anything, "escrow-1", requester).
		Return(ports.Receipt{Hash: "0x02", BlockNumber: 7, GasUsed: 21000}, nil).Once()

	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)

	// When
	d, err := h.Handle(t.Context(), cmd)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "escrow-1", d.ContractAddress())
	assert.Equal(t, "0x02", d.TransactionHash())
	ledger.AssertExpectations(t)
}

func TestCreateDeliveryCommandHandler_PublishesOpenStatus(t *testing.T) {
	// Given
	f := newFixture(t)
	publisher := new(MockPublisher)
	f.deps.Publisher = publisher
	publisher.On("PublishStatusChanged", mock.Anything, mock.MatchedBy(func(e ports.DeliveryStatusChanged) bool {
		return e.DeliveryID == 1 && e.From == delivery.Unknown && e.To == delivery.Open
	})).Return(nil).Once()

	// When
	f.create(t)

	// Then
	publisher.AssertExpectations(t)
}
