// Package jobs provides scheduled background tasks for the delivery engine.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3.
//
// # Available Jobs
//
// 1. ReconciliationJob - replays ledger history into the store so transitions
// whose store write failed after a successful ledger call are recorded
// 2. StoreUsageJob - refreshes the storage usage gauges and warns near capacity
//
// # Usage
//
//	jobManager := jobs.NewJobManager(reconcileHandler, storeQueries, jobs.Schedules{
//		Reconcile:  "0 */5 * * * *",
//		StoreUsage: "*/30 * * * * *",
//	}, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - A reconciliation pass continues past a failing delivery and logs the joined errors
// - Overlapping reconciliation passes are skipped
// - Failed job starts will stop any already running jobs
package jobs
