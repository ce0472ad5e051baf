package jobs

import (
	"context"

	"cargotrust/internal/core/application/usecases/queries"
	"cargotrust/internal/pkg/logging"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StoreUsageJob refreshes the storage usage gauges and warns when the
// persistence primitive is close to its capacity.
type StoreUsageJob struct {
	handler  queries.StoreQueryHandler
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// WarnRatio is the used/capacity ratio above which StoreUsageJob warns.
const WarnRatio = 0.9

func NewStoreUsageJob(handler queries.StoreQueryHandler, schedule string, logger *zap.Logger) *StoreUsageJob {
	return &StoreUsageJob{
		handler:  handler,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logging.Component(logger, "store_usage_job"),
	}
}

// Run reads the store statistics once and reports whether usage is above
// WarnRatio.
func (j *StoreUsageJob) Run(ctx context.Context) bool {
	report, err := j.handler.Report(ctx)
	if err != nil {
		j.logger.Error("store statistics failed", zap.Error(err))
		return false
	}

	stats := report.Stats
	if stats.CapacityBytes <= 0 {
		return false
	}
	if float64(stats.UsedBytes) >= WarnRatio*float64(stats.CapacityBytes) {
		j.logger.Warn("store is close to capacity",
			zap.String("backend", stats.Backend),
			zap.Int64("used_bytes", stats.UsedBytes),
			zap.Int64("capacity_bytes", stats.CapacityBytes))
		return true
	}
	return false
}

func (j *StoreUsageJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("store usage job started", zap.String("schedule", j.schedule))
	return nil
}

func (j *StoreUsageJob) Stop() {
	j.cron.Stop()
	j.logger.Info("store usage job stopped")
}
