package jobs

import (
	"context"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/pkg/logging"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReconciliationJob periodically replays ledger history into the store so
// that transitions whose store write failed are eventually recorded.
type ReconciliationJob struct {
	handler  commands.ReconcileDeliveriesCommandHandler
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewReconciliationJob(
	handler commands.ReconcileDeliveriesCommandHandler,
	schedule string,
	logger *zap.Logger,
) *ReconciliationJob {
	return &ReconciliationJob{
		handler:  handler,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logging.Component(logger, "reconciliation_job"),
	}
}

// Run performs a single reconciliation pass.
func (j *ReconciliationJob) Run(ctx context.Context) commands.ReconcileReport {
	report, err := j.handler.Handle(ctx, commands.ReconcileDeliveriesCommand{})
	if err != nil {
		j.logger.Error("reconciliation pass failed",
			zap.Int("checked", report.Checked),
			zap.Int("failed", report.Failed),
			zap.Error(err))
	}
	return report
}

func (j *ReconciliationJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("reconciliation job started", zap.String("schedule", j.schedule))
	return nil
}

// Stop stops scheduling and waits for a running pass to finish.
func (j *ReconciliationJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("reconciliation job stopped")
}
