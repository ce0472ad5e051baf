package commands_test

import (
	"context"
	"testing"
	"time"

	"cargotrust/internal/adapters/out/kv/memkv"
	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/adapters/out/store/flatstore"
	"cargotrust/internal/adapters/out/store/storetest"
	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/testutil"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	epoch     = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	requester = kernel.MustAddress("GREQUESTER")
	carrier   = kernel.MustAddress("GCARRIER")
)

type fixture struct {
	kv     *storetest.FlakyKV
	store  *flatstore.Store
	ledger *simledger.Ledger
	clock  *testutil.StepClock
	deps   commands.LifecycleDeps
}

func newFixture(t *testing.T, opts ...simledger.Option) *fixture {
	t.Helper()
	clock := testutil.NewStepClock(epoch)
	kv := storetest.NewFlakyKV(memkv.New(0))
	store := flatstore.New(kv, clock, zap.NewNop(), nil)
	require.NoError(t, store.Initialize(t.Context()))
	ledger := simledger.New(clock, opts...)

	return &fixture{
		kv:     kv,
		store:  store,
		ledger: ledger,
		clock:  clock,
		deps: commands.LifecycleDeps{
			Store:  store,
			Ledger: ledger,
			Locks:  commands.NewDeliveryLocks(),
			Clock:  clock,
			Logger: zap.NewNop(),
		},
	}
}

func createInput(origin, destination string) commands.CreateDeliveryInput {
	return commands.CreateDeliveryInput{
		Origin:           origin,
		Destination:      destination,
		Description:      "documents",
		Amount:           "25.50",
		PickupDeadline:   epoch.Add(24 * time.Hour),
		DeliveryDeadline: epoch.Add(72 * time.Hour),
		Requester:        requester.String(),
	}
}

func (f *fixture) create(t *testing.T) *delivery.Delivery {
	t.Helper()
	cmd, err := commands.NewCreateDeliveryCommand(createInput("Lagos", "Abuja"))
	require.NoError(t, err)
	h := commands.NewCreateDeliveryCommandHandler(f.deps)
	d, err := h.Handle(t.Context(), cmd)
	require.NoError(t, err)
	return d
}

func (f *fixture) transition(t *testing.T, id int64, event delivery.Event, actor string) (*delivery.Delivery, error) {
	t.Helper()
	cmd, err := commands.NewTransitionCommand(id, event, actor)
	require.NoError(t, err)
	h := commands.NewTransitionCommandHandler(f.deps)
	return h.Handle(t.Context(), cmd)
}

func (f *fixture) get(t *testing.T, id int64) *delivery.Delivery {
	t.Helper()
	d, err := f.store.GetDeliveryByID(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func (f *fixture) txTypes(t *testing.T, id int64) []ledgertx.Type {
	t.Helper()
	txs, err := f.store.GetTransactionsByDeliveryID(t.Context(), id)
	require.NoError(t, err)
	types := make([]ledgertx.Type, 0, len(txs))
	for _, tx := range txs {
		types = append(types, tx.Type)
	}
	return types
}

func (f *fixture) milestones(t *testing.T, escrowID string) []ports.Milestone {
	t.Helper()
	history, err := f.ledger.History(t.Context(), escrowID)
	require.NoError(t, err)
	out := make([]ports.Milestone, 0, len(history))
	for _, ev := range history {
		out = append(out, ev.Milestone)
	}
	return out
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) InitEscrow(
	ctx context.Context,
	buyer, seller, arbiter kernel.Address,
	amountStroops int64,
) (string, ports.Receipt, error) {
	args := m.Called(ctx, buyer, seller, arbiter, amountStroops)
	return args.String(0), args.Get(1).(ports.Receipt), args.Error(2)
}

func (m *MockLedger) Fund(ctx context.Context, escrowID string, payer kernel.Address) (ports.Receipt, error) {
	args := m.Called(ctx, escrowID, payer)
	return args.Get(0).(ports.Receipt), args.Error(1)
}

func (m *MockLedger) Attest(
	ctx context.Context,
	escrowID string,
	milestone ports.Milestone,
	actor kernel.Address,
) (ports.Receipt, error) {
	args := m.Called(ctx, escrowID, milestone, actor)
	return args.Get(0).(ports.Receipt), args.Error(1)
}

func (m *MockLedger) Release(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	args := m.Called(ctx, escrowID, caller)
	return args.Get(0).(ports.Receipt), args.Error(1)
}

func (m *MockLedger) Refund(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	args := m.Called(ctx, escrowID, caller)
	return args.Get(0).(ports.Receipt), args.Error(1)
}

func (m *MockLedger) History(ctx context.Context, escrowID string) ([]ports.LedgerEvent, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.LedgerEvent), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishStatusChanged(ctx context.Context, event ports.DeliveryStatusChanged) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
