package pgkv_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"cargotrust/internal/adapters/out/kv/pgkv"
	"cargotrust/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTable = "kv_entries"

// StoreIntegrationTestSuite runs the primitive against a real PostgreSQL.
type StoreIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
}

func (suite *StoreIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(pgkv.New(db, testTable, 0).Migrate(ctx))
}

func (suite *StoreIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + testTable).Error)
}

func (suite *StoreIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *StoreIntegrationTestSuite) TestSetGetRemove() {
	ctx := context.Background()
	kv := pgkv.New(suite.db, testTable, 0)

	_, ok, err := kv.Get(ctx, "cargotrust_db")
	suite.Require().NoError(err)
	suite.False(ok)

	suite.Require().NoError(kv.Set(ctx, "cargotrust_db", "v1"))
	suite.Require().NoError(kv.Set(ctx, "cargotrust_db", "v2"))

	value, ok, err := kv.Get(ctx, "cargotrust_db")
	suite.Require().NoError(err)
	suite.True(ok)
	suite.Equal("v2", value)

	used, _, err := kv.Usage(ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(len("cargotrust_db")+2), used)

	suite.Require().NoError(kv.Remove(ctx, "cargotrust_db"))
	suite.Require().NoError(kv.Remove(ctx, "cargotrust_db"))
	_, ok, err = kv.Get(ctx, "cargotrust_db")
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *StoreIntegrationTestSuite) TestCapacity() {
	ctx := context.Background()
	kv := pgkv.New(suite.db, testTable, 16)

	suite.Require().NoError(kv.Set(ctx, "a", "123456789"))

	err := kv.Set(ctx, "b", strings.Repeat("x", 10))
	suite.Require().ErrorIs(err, errs.ErrCapacityExceeded)

	_, ok, err := kv.Get(ctx, "b")
	suite.Require().NoError(err)
	suite.False(ok)

	// Replacing a key only counts its new size.
	suite.Require().NoError(kv.Set(ctx, "a", "987654321"))
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container based test in short mode")
	}
	suite.Run(t, new(StoreIntegrationTestSuite))
}
