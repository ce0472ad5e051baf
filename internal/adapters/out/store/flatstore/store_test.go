package flatstore_test

import (
	"testing"

	"cargotrust/internal/adapters/out/kv/memkv"
	"cargotrust/internal/adapters/out/store/codec"
	"cargotrust/internal/adapters/out/store/flatstore"
	"cargotrust/internal/adapters/out/store/storetest"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func newStore(kv ports.KeyValue, clock kernel.Clock) ports.Store {
	return flatstore.New(kv, clock, zap.NewNop(), nil)
}

func TestFlatStoreContract(t *testing.T) {
	suite.Run(t, &storetest.Suite{
		NewStore: newStore,
		CorruptBlobs: []storetest.Blob{
			{Name: "deliveries_not_json", Key: flatstore.KeyDeliveries, Value: "not json{"},
			{Name: "users_wrong_shape", Key: flatstore.KeyUsers, Value: `{"id": 1}`},
			{Name: "transactions_truncated", Key: flatstore.KeyTransactions, Value: `[{"id": 1,`},
			{Name: "next_ids_not_json", Key: flatstore.KeyNextIDs, Value: "[]"},
			{Name: "delivery_breaks_invariant", Key: flatstore.KeyDeliveries,
				Value: `[{"id":1,"origin":"A","destination":"B","description":"","amount":"1","status":"accepted",` +
					`"deadline":"d","requester":"R","createdAt":1,"updatedAt":1}]`},
		},
	})
}

func TestStore_PersistsOneBlobPerCollection(t *testing.T) {
	// Given
	ctx := t.Context()
	kv := memkv.New(0)
	store := flatstore.New(kv, testutil.NewStepClock(storetest.Epoch), zap.NewNop(), nil)
	require.NoError(t, store.Initialize(ctx))

	// When
	_, err := store.CreateDelivery(ctx, storetest.Draft("Lagos", "Abuja"))
	require.NoError(t, err)

	// Then
	blob, ok, err := kv.Get(ctx, flatstore.KeyDeliveries)
	require.NoError(t, err)
	require.True(t, ok)
	rows, err := codec.DecodeTable[codec.DeliveryRecord](blob)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lagos", rows[0].Origin)

	next, ok, err := kv.Get(ctx, flatstore.KeyNextIDs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"deliveryId":2,"userId":1,"transactionId":1}`, next)
}

func TestStore_CapacityExceeded(t *testing.T) {
	ctx := t.Context()
	kv := memkv.New(600)
	store := flatstore.New(kv, testutil.NewStepClock(storetest.Epoch), zap.NewNop(), nil)
	require.NoError(t, store.Initialize(ctx))

	var err error
	created := 0
	for range 20 {
		if _, err = store.CreateDelivery(ctx, storetest.Draft("Lagos", "Abuja")); err != nil {
			break
		}
		created++
	}

	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	var writeErr *errs.PersistenceWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, flatstore.KeyDeliveries, writeErr.Key)
	assert.Positive(t, created)

	all, err := store.GetAllDeliveries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, created)

	reopened := flatstore.New(kv, testutil.NewStepClock(storetest.Epoch), zap.NewNop(), nil)
	require.NoError(t, reopened.Initialize(ctx))
	all, err = reopened.GetAllDeliveries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, created)
}

// The deliveries blob fits but the counters blob does not: the deliveries
// blob must be put back so the primitive matches the store again.
func TestStore_PartialWriteIsRestored(t *testing.T) {
	ctx := t.Context()
	kv := storetest.NewFlakyKV(memkv.New(0))
	store := flatstore.New(&failOnKey{FlakyKV: kv, key: flatstore.KeyNextIDs}, testutil.NewStepClock(storetest.Epoch), zap.NewNop(), nil)
	require.NoError(t, store.Initialize(ctx))

	_, err := store.CreateDelivery(ctx, storetest.Draft("Lagos", "Abuja"))

	require.ErrorIs(t, err, errs.ErrPersistenceWrite)
	_, ok, err := kv.Get(ctx, flatstore.KeyDeliveries)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := store.GetAllDeliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
