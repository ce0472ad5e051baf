package storetest

import (
	"context"
	"time"

	"cargotrust/internal/adapters/out/kv/memkv"
	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

// Factory builds an uninitialized engine on top of kv.
type Factory func(kv ports.KeyValue, clock kernel.Clock) ports.Store

// Blob is one persisted key and its value.
type Blob struct {
	Name  string
	Key   string
	Value string
}

// Epoch is the time the suite clock starts at.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type Suite struct {
	suite.Suite

	NewStore Factory
	// CorruptBlobs are persisted values the engine must refuse to load.
	CorruptBlobs []Blob

	kv    *FlakyKV
	clock *testutil.StepClock
	store ports.Store
}

func (s *Suite) SetupTest() {
	s.kv = NewFlakyKV(memkv.New(memkv.DefaultCapacity))
	s.clock = testutil.NewStepClock(Epoch)
	s.store = s.NewStore(s.kv, s.clock)
	s.Require().NoError(s.store.Initialize(s.ctx()))
}

func (s *Suite) ctx() context.Context {
	return s.T().Context()
}

// Draft returns a valid draft for requester "GREQ".
func Draft(origin, destination string) delivery.Draft {
	return delivery.Draft{
		Origin:      origin,
		Destination: destination,
		Description: "parcel",
		Amount:      kernel.MustAmount("10.00"),
		Deadline:    "2025-12-31",
		Requester:   kernel.MustAddress("GREQ"),
	}
}

func (s *Suite) create(origin, destination string) *delivery.Delivery {
	d, err := s.store.CreateDelivery(s.ctx(), Draft(origin, destination))
	s.Require().NoError(err)
	return d
}

func (s *Suite) createAt(at time.Time, draft delivery.Draft) *delivery.Delivery {
	s.clock.Set(at)
	d, err := s.store.CreateDelivery(s.ctx(), draft)
	s.Require().NoError(err)
	return d
}

func (s *Suite) get(id int64) *delivery.Delivery {
	d, err := s.store.GetDeliveryByID(s.ctx(), id)
	s.Require().NoError(err)
	s.Require().NotNil(d)
	return d
}

func (s *Suite) export() []byte {
	b, err := s.store.ExportSnapshot(s.ctx())
	s.Require().NoError(err)
	return b
}

func ids(ds []*delivery.Delivery) []int64 {
	out := make([]int64, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID())
	}
	return out
}

func (s *Suite) TestOperationsFailBeforeInitialize() {
	store := s.NewStore(memkv.New(0), s.clock)

	_, err := store.GetAllDeliveries(s.ctx())
	s.ErrorIs(err, errs.ErrNotInitialized)

	_, err = store.CreateDelivery(s.ctx(), Draft("A", "B"))
	s.ErrorIs(err, errs.ErrNotInitialized)

	_, err = store.ExportSnapshot(s.ctx())
	s.ErrorIs(err, errs.ErrNotInitialized)
}

func (s *Suite) TestInitializeIsIdempotent() {
	s.create("A", "B")
	before := s.export()

	s.Require().NoError(s.store.Initialize(s.ctx()))

	s.Equal(string(before), string(s.export()))
}

func (s *Suite) TestCreateDelivery() {
	// When
	d := s.create("A", "B")

	// Then
	s.Equal(int64(1), d.ID())
	s.Equal(delivery.Open, d.Status())
	_, hasCarrier := d.Carrier()
	s.False(hasCarrier)
	s.Equal("10.00", d.Amount().String())
	s.Equal(d.CreatedAt(), d.UpdatedAt())
	s.Equal(Epoch, d.CreatedAt())

	stored := s.get(1)
	s.Equal(d.State(), stored.State())
}

func (s *Suite) TestCreateDeliveryRejectsInvalidDraft() {
	draft := Draft("", "B")

	_, err := s.store.CreateDelivery(s.ctx(), draft)

	s.True(errs.IsValidation(err))
	s.Equal(int64(1), s.create("A", "B").ID())
}

func (s *Suite) TestGetDeliveryByIDMissing() {
	d, err := s.store.GetDeliveryByID(s.ctx(), 99)

	s.NoError(err)
	s.Nil(d)
}

func (s *Suite) TestUpdateDeliveryStatus() {
	s.create("A", "B")
	carrier := kernel.MustAddress("GCARRIER")

	s.Run("sets status and carrier", func() {
		s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 1, delivery.Accepted, carrier))

		d := s.get(1)
		s.Equal(delivery.Accepted, d.Status())
		got, ok := d.Carrier()
		s.True(ok)
		s.Equal(carrier, got)
		s.True(d.UpdatedAt().After(d.CreatedAt()))
	})

	s.Run("keeps carrier when none is given", func() {
		s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 1, delivery.PickedUp, kernel.Address{}))

		got, ok := s.get(1).Carrier()
		s.True(ok)
		s.Equal(carrier, got)
	})

	s.Run("rejects a carrier on an open status", func() {
		before := s.export()

		err := s.store.UpdateDeliveryStatus(s.ctx(), 1, delivery.Open, kernel.Address{})

		s.True(errs.IsValidation(err))
		s.Equal(string(before), string(s.export()))
	})
}

func (s *Suite) TestUpdateDelivery() {
	created := s.create("A", "B")
	description := "fragile"
	distance := "12 km"

	err := s.store.UpdateDelivery(s.ctx(), 1, delivery.Patch{Description: &description, Distance: &distance})

	s.Require().NoError(err)
	d := s.get(1)
	s.Equal("fragile", d.Description())
	s.Equal("12 km", d.Distance())
	s.Equal(created.Origin(), d.Origin())
	s.Equal(created.Amount(), d.Amount())
	s.True(d.UpdatedAt().After(created.UpdatedAt()))
}

func (s *Suite) TestEmptyPatchRefreshesUpdatedAt() {
	created := s.create("A", "B")

	s.Require().NoError(s.store.UpdateDelivery(s.ctx(), 1, delivery.Patch{}))

	s.True(s.get(1).UpdatedAt().After(created.UpdatedAt()))
}

func (s *Suite) TestMissingIDIsNotFound() {
	description := "x"
	for name, op := range map[string]func() error{
		"update status": func() error {
			return s.store.UpdateDeliveryStatus(s.ctx(), 7, delivery.Accepted, kernel.MustAddress("GC"))
		},
		"update": func() error {
			return s.store.UpdateDelivery(s.ctx(), 7, delivery.Patch{Description: &description})
		},
		"delete": func() error {
			return s.store.DeleteDelivery(s.ctx(), 7)
		},
	} {
		s.Run(name, func() {
			s.ErrorIs(op(), errs.ErrObjectNotFound)
		})
	}
}

func (s *Suite) TestDeleteDelivery() {
	s.create("A", "B")
	s.create("C", "D")

	s.Require().NoError(s.store.DeleteDelivery(s.ctx(), 1))

	all, err := s.store.GetAllDeliveries(s.ctx())
	s.Require().NoError(err)
	s.Equal([]int64{2}, ids(all))
}

func (s *Suite) TestIDsAreNeverReused() {
	s.create("A", "B")
	s.create("A", "B")
	s.Require().NoError(s.store.DeleteDelivery(s.ctx(), 2))
	s.Equal(int64(3), s.create("A", "B").ID())

	_, err := s.store.CreateUser(s.ctx(), user.Draft{Address: kernel.MustAddress("GU1")})
	s.Require().NoError(err)
	s.Require().NoError(s.store.ClearAll(s.ctx()))

	all, err := s.store.GetAllDeliveries(s.ctx())
	s.Require().NoError(err)
	s.Empty(all)
	s.Equal(int64(4), s.create("A", "B").ID())

	u, err := s.store.CreateUser(s.ctx(), user.Draft{Address: kernel.MustAddress("GU1")})
	s.Require().NoError(err)
	s.Equal(int64(2), u.ID)
}

func (s *Suite) TestListsAreNewestFirst() {
	// Given deliveries created out of chronological order
	s.createAt(Epoch.Add(2*time.Hour), Draft("A", "B"))
	s.createAt(Epoch, Draft("C", "D"))
	s.createAt(Epoch.Add(3*time.Hour), Draft("E", "F"))

	// When
	all, err := s.store.GetAllDeliveries(s.ctx())

	// Then
	s.Require().NoError(err)
	s.Equal([]int64{3, 1, 2}, ids(all))
}

func (s *Suite) TestTiesKeepInsertionOrder() {
	s.clock.Step = 0
	s.create("A", "B")
	s.create("C", "D")
	s.create("E", "F")

	all, err := s.store.GetAllDeliveries(s.ctx())

	s.Require().NoError(err)
	s.Equal([]int64{1, 2, 3}, ids(all))
}

func (s *Suite) TestFilters() {
	other := Draft("Kano", "Jos")
	other.Requester = kernel.MustAddress("GOTHER")

	s.createAt(Epoch, Draft("Lagos", "Abuja"))
	s.createAt(Epoch.Add(time.Hour), other)
	s.createAt(Epoch.Add(2*time.Hour), Draft("Ibadan", "Enugu"))
	s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 3, delivery.Accepted, kernel.MustAddress("GCARRIER")))

	s.Run("by requester", func() {
		got, err := s.store.GetDeliveriesByRequester(s.ctx(), kernel.MustAddress("GREQ"))
		s.Require().NoError(err)
		s.Equal([]int64{3, 1}, ids(got))
	})

	s.Run("by carrier", func() {
		got, err := s.store.GetDeliveriesByCarrier(s.ctx(), kernel.MustAddress("GCARRIER"))
		s.Require().NoError(err)
		s.Equal([]int64{3}, ids(got))
	})

	s.Run("open", func() {
		got, err := s.store.GetOpenDeliveries(s.ctx())
		s.Require().NoError(err)
		s.Equal([]int64{2, 1}, ids(got))
	})

	s.Run("by status", func() {
		got, err := s.store.GetDeliveriesByStatus(s.ctx(), delivery.Accepted)
		s.Require().NoError(err)
		s.Equal([]int64{3}, ids(got))

		got, err = s.store.GetDeliveriesByStatus(s.ctx(), delivery.Completed)
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})

	s.Run("date range is inclusive", func() {
		got, err := s.store.GetDeliveriesByDateRange(s.ctx(), Epoch, Epoch.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal([]int64{2, 1}, ids(got))

		got, err = s.store.GetDeliveriesByDateRange(s.ctx(), Epoch.Add(time.Nanosecond), Epoch.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal([]int64{2}, ids(got))
	})
}

func (s *Suite) TestSearchDeliveries() {
	s.create("Lisbon", "Rio de Janeiro")
	s.create("Porto", "Madrid")
	s.create("Berlin", "Hauptstraße 5")
	s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 2, delivery.Accepted, kernel.MustAddress("GCARRIERX")))

	cases := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "destination_case_insensitive", query: "rio", want: []int64{1}},
		{name: "upper_case_query", query: "RIO DE", want: []int64{1}},
		{name: "unicode_folding", query: "STRASSE", want: []int64{3}},
		{name: "carrier", query: "carrierx", want: []int64{2}},
		{name: "requester", query: "greq", want: []int64{3, 2, 1}},
		{name: "no_match", query: "Tokyo", want: []int64{}},
		{name: "empty_query_matches_all", query: "", want: []int64{3, 2, 1}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			got, err := s.store.SearchDeliveries(s.ctx(), tc.query)
			s.Require().NoError(err)
			s.Equal(tc.want, ids(got))
		})
	}
}

func (s *Suite) TestReturnedDeliveriesAreCopies() {
	s.create("A", "B")
	d := s.get(1)

	s.Require().NoError(d.SetStatus(delivery.Accepted, kernel.MustAddress("GC"), s.clock.Now()))

	s.Equal(delivery.Open, s.get(1).Status())
}

func (s *Suite) TestUsers() {
	draft := user.Draft{Address: kernel.MustAddress("GADA"), Name: "Ada", Email: "ada@example.com"}

	created, err := s.store.CreateUser(s.ctx(), draft)
	s.Require().NoError(err)
	s.Equal(int64(1), created.ID)

	s.Run("duplicate address is rejected", func() {
		_, err := s.store.CreateUser(s.ctx(), draft)
		s.True(errs.IsValidation(err))
	})

	s.Run("lookup by address", func() {
		u, err := s.store.GetUserByAddress(s.ctx(), kernel.MustAddress("GADA"))
		s.Require().NoError(err)
		s.Require().NotNil(u)
		s.Equal("Ada", u.Name)
		s.Equal("ada@example.com", u.Email)
	})

	s.Run("missing address", func() {
		u, err := s.store.GetUserByAddress(s.ctx(), kernel.MustAddress("GNOBODY"))
		s.NoError(err)
		s.Nil(u)
	})
}

func (s *Suite) TestTransactionsAreNewestFirst() {
	block := int64(42)
	for _, typ := range []ledgertx.Type{ledgertx.TypeCreate, ledgertx.TypeAccept, ledgertx.TypePickup} {
		_, err := s.store.CreateTransaction(s.ctx(), ledgertx.Draft{
			DeliveryID:      1,
			TransactionHash: "0x" + string(typ),
			Type:            typ,
			BlockNumber:     &block,
			Status:          ledgertx.StatusConfirmed,
		})
		s.Require().NoError(err)
	}
	_, err := s.store.CreateTransaction(s.ctx(), ledgertx.Draft{
		DeliveryID: 2, TransactionHash: "0xother", Type: ledgertx.TypeCreate, Status: ledgertx.StatusPending,
	})
	s.Require().NoError(err)

	got, err := s.store.GetTransactionsByDeliveryID(s.ctx(), 1)

	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(ledgertx.TypePickup, got[0].Type)
	s.Equal(ledgertx.TypeAccept, got[1].Type)
	s.Equal(ledgertx.TypeCreate, got[2].Type)
	s.Require().NotNil(got[0].BlockNumber)
	s.Equal(int64(42), *got[0].BlockNumber)
	s.Nil(got[0].GasUsed)

	none, err := s.store.GetTransactionsByDeliveryID(s.ctx(), 99)
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *Suite) TestWriteFailureLeavesStateUnchanged() {
	s.create("A", "B")
	before := s.export()
	s.kv.FailWrites(true)

	s.Run("create", func() {
		_, err := s.store.CreateDelivery(s.ctx(), Draft("C", "D"))

		s.ErrorIs(err, errs.ErrPersistenceWrite)
		s.ErrorIs(err, errs.ErrCapacityExceeded)
		var writeErr *errs.PersistenceWriteError
		s.ErrorAs(err, &writeErr)
	})

	s.Run("status update", func() {
		err := s.store.UpdateDeliveryStatus(s.ctx(), 1, delivery.Accepted, kernel.MustAddress("GC"))
		s.ErrorIs(err, errs.ErrPersistenceWrite)
	})

	s.Run("clear", func() {
		s.ErrorIs(s.store.ClearAll(s.ctx()), errs.ErrPersistenceWrite)
	})

	s.Equal(string(before), string(s.export()))

	s.kv.FailWrites(false)
	s.Equal(int64(2), s.create("C", "D").ID())
}

func (s *Suite) TestStatePersistsAcrossRestart() {
	s.create("A", "B")
	s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 1, delivery.Accepted, kernel.MustAddress("GC")))
	_, err := s.store.CreateUser(s.ctx(), user.Draft{Address: kernel.MustAddress("GU")})
	s.Require().NoError(err)
	before := s.export()

	reopened := s.NewStore(s.kv, s.clock)
	s.Require().NoError(reopened.Initialize(s.ctx()))

	after, err := reopened.ExportSnapshot(s.ctx())
	s.Require().NoError(err)
	s.Equal(string(before), string(after))
}

func (s *Suite) TestCorruptStateFailsInitialize() {
	for _, blob := range s.CorruptBlobs {
		s.Run(blob.Name, func() {
			kv := memkv.New(0)
			s.Require().NoError(kv.Set(s.ctx(), blob.Key, blob.Value))
			store := s.NewStore(kv, s.clock)

			err := store.Initialize(s.ctx())

			s.ErrorIs(err, errs.ErrInitialization)
			var initErr *errs.InitializationError
			s.Require().ErrorAs(err, &initErr)
			s.Equal(blob.Key, initErr.Key)

			kept, ok, err := kv.Get(s.ctx(), blob.Key)
			s.Require().NoError(err)
			s.True(ok)
			s.Equal(blob.Value, kept)

			_, err = store.GetAllDeliveries(s.ctx())
			s.ErrorIs(err, errs.ErrNotInitialized)
		})
	}
}

func (s *Suite) populate() {
	s.create("Lagos", "Abuja")
	s.create("Kano", "Jos")
	s.Require().NoError(s.store.UpdateDeliveryStatus(s.ctx(), 2, delivery.Accepted, kernel.MustAddress("GCARRIER")))
	s.Require().NoError(s.store.DeleteDelivery(s.ctx(), 1))
	s.create("Ibadan", "Enugu")
	_, err := s.store.CreateUser(s.ctx(), user.Draft{Address: kernel.MustAddress("GADA"), Name: "Ada"})
	s.Require().NoError(err)
	gas := int64(21000)
	_, err = s.store.CreateTransaction(s.ctx(), ledgertx.Draft{
		DeliveryID: 2, TransactionHash: "0xaccept", Type: ledgertx.TypeAccept, GasUsed: &gas, Status: ledgertx.StatusConfirmed,
	})
	s.Require().NoError(err)
}

func (s *Suite) TestSnapshotRoundTrip() {
	s.populate()
	exported := s.export()

	s.Run("into a fresh store", func() {
		fresh := s.NewStore(memkv.New(0), testutil.NewStepClock(Epoch))
		s.Require().NoError(fresh.Initialize(s.ctx()))

		s.Require().NoError(fresh.ImportSnapshot(s.ctx(), exported))

		again, err := fresh.ExportSnapshot(s.ctx())
		s.Require().NoError(err)
		s.Equal(string(exported), string(again))

		next, err := fresh.CreateDelivery(s.ctx(), Draft("A", "B"))
		s.Require().NoError(err)
		s.Equal(int64(4), next.ID())
	})

	s.Run("over existing data", func() {
		s.create("X", "Y")

		s.Require().NoError(s.store.ImportSnapshot(s.ctx(), exported))

		s.Equal(string(exported), string(s.export()))
	})
}

func (s *Suite) TestInvalidSnapshotChangesNothing() {
	s.populate()
	before := s.export()

	for name, blob := range map[string]string{
		"malformed":      `{"deliveries": [`,
		"future_version": `{"version": 99, "deliveries": [], "users": [], "transactions": []}`,
		"broken_invariant": `{"deliveries": [{"id": 1, "origin": "A", "destination": "B", "amount": "1",
			"status": "open", "deadline": "d", "requester": "R", "carrier": "C", "createdAt": 1, "updatedAt": 1}]}`,
	} {
		s.Run(name, func() {
			s.Error(s.store.ImportSnapshot(s.ctx(), []byte(blob)))
			s.Equal(string(before), string(s.export()))
		})
	}
}

func (s *Suite) TestImportWriteFailureChangesNothing() {
	s.populate()
	before := s.export()
	empty := s.NewStore(memkv.New(0), s.clock)
	s.Require().NoError(empty.Initialize(s.ctx()))
	emptySnapshot, err := empty.ExportSnapshot(s.ctx())
	s.Require().NoError(err)
	s.kv.FailWrites(true)

	err = s.store.ImportSnapshot(s.ctx(), emptySnapshot)

	s.ErrorIs(err, errs.ErrPersistenceWrite)
	s.Equal(string(before), string(s.export()))
}

func (s *Suite) TestStats() {
	s.populate()

	stats, err := s.store.Stats(s.ctx())

	s.Require().NoError(err)
	s.Equal(2, stats.Deliveries)
	s.Equal(1, stats.Users)
	s.Equal(1, stats.Transactions)
	s.Equal(1, stats.ByStatus[delivery.Open])
	s.Equal(1, stats.ByStatus[delivery.Accepted])
	s.Positive(stats.UsedBytes)
	s.Equal(int64(memkv.DefaultCapacity), stats.CapacityBytes)
	s.NotEmpty(stats.Backend)
}
