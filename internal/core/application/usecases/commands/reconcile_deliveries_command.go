package commands

// ReconcileDeliveriesCommand replays ledger history that the store missed.
// It has no parameters; every delivery linked to an escrow is checked.
type ReconcileDeliveriesCommand struct{}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	// Checked is the number of deliveries with an escrow.
	Checked int
	// Repaired counts the status changes and audit rows added.
	Repaired int
	// Failed counts deliveries whose history could not be read or replayed.
	Failed int
}
