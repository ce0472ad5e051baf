package cmd

import (
	"context"
	"errors"
	"fmt"

	"cargotrust/internal/adapters/in/cli"
	api "cargotrust/internal/adapters/in/http"
	"cargotrust/internal/adapters/out/kafka"
	"cargotrust/internal/adapters/out/kv/memkv"
	"cargotrust/internal/adapters/out/kv/pgkv"
	"cargotrust/internal/adapters/out/ledger/breaker"
	"cargotrust/internal/adapters/out/ledger/simledger"
	"cargotrust/internal/adapters/out/postgres"
	"cargotrust/internal/adapters/out/store/flatstore"
	"cargotrust/internal/adapters/out/store/sqlstore"
	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/application/usecases/queries"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/jobs"
	"cargotrust/internal/pkg/logging"
	"cargotrust/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// CompositionRoot owns the long-lived adapters and builds the use case
// handlers over them.
type CompositionRoot struct {
	cfg      Config
	logger   *zap.Logger
	registry *prometheus.Registry
	store    ports.Store
	deps     commands.LifecycleDeps
	closers  []func() error
}

// NewCompositionRoot opens the persistence primitive, initializes the store
// engine selected by cfg and wires the ledger and the event publisher.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *zap.Logger) (*CompositionRoot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CompositionRoot{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(c.registry)

	arbiter, err := parseArbiter(cfg.LedgerArbiter)
	if err != nil {
		return nil, err
	}

	kv, err := c.openKeyValue(ctx)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}

	clock := kernel.SystemClock{}
	storeLogger := logging.Component(logger, "store")
	switch cfg.StoreBackend {
	case StoreBackendFlat:
		c.store = flatstore.New(kv, clock, storeLogger, m)
	default:
		s := sqlstore.New(kv, clock, storeLogger, m)
		c.closers = append(c.closers, s.Close)
		c.store = s
	}
	if err = c.store.Initialize(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize %s store: %w", cfg.StoreBackend, err), c.Close())
	}

	var opts []simledger.Option
	if cfg.LedgerLatency > 0 {
		opts = append(opts, simledger.WithLatency(cfg.LedgerLatency))
	}
	ledger := breaker.New(simledger.New(clock, opts...), breaker.Config{
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
	}, logger)

	c.deps = commands.LifecycleDeps{
		Store:         c.store,
		Ledger:        ledger,
		Locks:         commands.NewDeliveryLocks(),
		Clock:         clock,
		Logger:        logging.Component(logger, "lifecycle"),
		Metrics:       m,
		LedgerTimeout: cfg.LedgerTimeout,
		Arbiter:       arbiter,
	}
	if cfg.KafkaHost != "" {
		publisher := kafka.NewPublisher(cfg.KafkaHost, cfg.KafkaDeliveryChangedTopic)
		c.closers = append(c.closers, publisher.Close)
		c.deps.Publisher = publisher
	}

	logger.Info("store ready",
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("kv_backend", cfg.KVBackend),
		zap.Bool("kafka", cfg.KafkaHost != ""))
	return c, nil
}

func (c *CompositionRoot) openKeyValue(ctx context.Context) (ports.KeyValue, error) {
	if c.cfg.KVBackend != KVBackendPostgres {
		return memkv.New(c.cfg.KVCapacityBytes), nil
	}

	db, err := postgres.Open(ctx, postgres.Settings{
		Host:     c.cfg.DBHost,
		Port:     c.cfg.DBPort,
		User:     c.cfg.DBUser,
		Password: c.cfg.DBPassword,
		DBName:   c.cfg.DBName,
		SSLMode:  c.cfg.DBSslMode,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func() error { return postgres.Close(db) })

	kv := pgkv.New(db, c.cfg.KVTable, c.cfg.KVCapacityBytes)
	if err = kv.Migrate(ctx); err != nil {
		return nil, err
	}
	return kv, nil
}

func parseArbiter(s string) (kernel.Address, error) {
	if s == "" {
		return kernel.Address{}, nil
	}
	arbiter, err := kernel.NewAddress(s)
	if err != nil {
		return kernel.Address{}, fmt.Errorf("LEDGER_ARBITER: %w", err)
	}
	return arbiter, nil
}

// Gatherer exposes the metrics registry for /metrics.
func (c *CompositionRoot) Gatherer() prometheus.Gatherer {
	return c.registry
}

func (c *CompositionRoot) CreateCreateDeliveryCommandHandler() commands.CreateDeliveryCommandHandler {
	return commands.NewCreateDeliveryCommandHandler(c.deps)
}

func (c *CompositionRoot) CreateTransitionCommandHandler() commands.TransitionCommandHandler {
	return commands.NewTransitionCommandHandler(c.deps)
}

func (c *CompositionRoot) CreateUpdateDeliveryCommandHandler() commands.UpdateDeliveryCommandHandler {
	return commands.NewUpdateDeliveryCommandHandler(c.deps)
}

func (c *CompositionRoot) CreateDeleteDeliveryCommandHandler() commands.DeleteDeliveryCommandHandler {
	return commands.NewDeleteDeliveryCommandHandler(c.deps)
}

func (c *CompositionRoot) CreateRegisterUserCommandHandler() commands.RegisterUserCommandHandler {
	return commands.NewRegisterUserCommandHandler(c.store, logging.Component(c.logger, "users"))
}

func (c *CompositionRoot) CreateStoreAdminCommandHandler() commands.StoreAdminCommandHandler {
	return commands.NewStoreAdminCommandHandler(c.store, logging.Component(c.logger, "store_admin"))
}

func (c *CompositionRoot) CreateReconcileDeliveriesCommandHandler() commands.ReconcileDeliveriesCommandHandler {
	deps := c.deps
	deps.Logger = logging.Component(c.logger, "reconciliation")
	return commands.NewReconcileDeliveriesCommandHandler(deps)
}

func (c *CompositionRoot) CreateStoreQueryHandler() queries.StoreQueryHandler {
	return queries.NewStoreQueryHandler(c.store)
}

// CreateHTTPServer builds the API server over every use case.
func (c *CompositionRoot) CreateHTTPServer() *api.Server {
	return api.NewServer(api.Handlers{
		CreateDelivery:  c.CreateCreateDeliveryCommandHandler(),
		Transition:      c.CreateTransitionCommandHandler(),
		UpdateDelivery:  c.CreateUpdateDeliveryCommandHandler(),
		DeleteDelivery:  c.CreateDeleteDeliveryCommandHandler(),
		RegisterUser:    c.CreateRegisterUserCommandHandler(),
		StoreAdmin:      c.CreateStoreAdminCommandHandler(),
		Reconcile:       c.CreateReconcileDeliveriesCommandHandler(),
		GetDelivery:     queries.NewGetDeliveryQueryHandler(c.store),
		ListDeliveries:  queries.NewListDeliveriesQueryHandler(c.store),
		GetTransactions: queries.NewGetDeliveryTransactionsQueryHandler(c.store),
		GetUser:         queries.NewGetUserQueryHandler(c.store),
		Store:           c.CreateStoreQueryHandler(),
	}, logging.Component(c.logger, "http"))
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(
		c.CreateReconcileDeliveriesCommandHandler(),
		c.CreateStoreQueryHandler(),
		jobs.Schedules{Reconcile: c.cfg.ReconcileSchedule, StoreUsage: c.cfg.StoreUsageSchedule},
		c.logger,
	)
}

// ErrCLIStoreNotDurable is returned when cargoctl is pointed at a store
// that dies with the cargoctl process.
var ErrCLIStoreNotDurable = errors.New(
	"KV_BACKEND=memory lives inside one process; set KV_BACKEND=postgres to administer a shared store",
)

// OpenCLIBackend builds the store handlers for one cargoctl invocation.
func OpenCLIBackend(ctx context.Context, cfg Config, logger *zap.Logger) (*cli.Backend, error) {
	if cfg.KVBackend == KVBackendMemory {
		return nil, ErrCLIStoreNotDurable
	}
	app, err := NewCompositionRoot(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return app.CreateCLIBackend(), nil
}

// CreateCLIBackend hands the admin handlers to cargoctl. Closing the
// backend closes the composition root.
func (c *CompositionRoot) CreateCLIBackend() *cli.Backend {
	return &cli.Backend{
		StoreAdmin: c.CreateStoreAdminCommandHandler(),
		Store:      c.CreateStoreQueryHandler(),
		Close:      c.Close,
	}
}

// Close releases the adapters in reverse order of creation. It is safe to
// call more than once.
func (c *CompositionRoot) Close() error {
	var errList []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	c.closers = nil
	return errors.Join(errList...)
}
