package jobs

import (
	"fmt"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/application/usecases/queries"

	"go.uber.org/zap"
)

// Schedules are six-field cron expressions (with seconds).
type Schedules struct {
	Reconcile  string
	StoreUsage string
}

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	reconciliationJob *ReconciliationJob
	storeUsageJob     *StoreUsageJob
}

func NewJobManager(
	reconcileHandler commands.ReconcileDeliveriesCommandHandler,
	storeQueries queries.StoreQueryHandler,
	schedules Schedules,
	logger *zap.Logger,
) *JobManager {
	return &JobManager{
		reconciliationJob: NewReconciliationJob(reconcileHandler, schedules.Reconcile, logger),
		storeUsageJob:     NewStoreUsageJob(storeQueries, schedules.StoreUsage, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.reconciliationJob.Start(); err != nil {
		return fmt.Errorf("failed to start reconciliation job: %w", err)
	}

	if err := jm.storeUsageJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.reconciliationJob.Stop()
		return fmt.Errorf("failed to start store usage job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.storeUsageJob.Stop()
	jm.reconciliationJob.Stop()
}
