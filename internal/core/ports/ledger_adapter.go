package ports

import (
	"context"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
)

// Milestone is a lifecycle step recorded on the ledger.
type Milestone string

const (
	MilestoneFund    Milestone = "fund"
	MilestoneAccept  Milestone = "accept"
	MilestonePickup  Milestone = "pickup"
	MilestoneTransit Milestone = "transit"
	MilestoneDeliver Milestone = "deliver"
	MilestoneRelease Milestone = "release"
	MilestoneRefund  Milestone = "refund"
)

// Receipt identifies a ledger transaction.
type Receipt struct {
	Hash        string
	BlockNumber int64
	GasUsed     int64
}

// LedgerEvent is one confirmed entry in an escrow's history.
type LedgerEvent struct {
	Milestone Milestone
	Actor     kernel.Address
	Receipt   Receipt
	At        time.Time
}

// LedgerAdapter is the escrow contract client. Escrow states move
// created -> funded -> released | refunded; only the buyer funds and only
// the arbiter releases or refunds. Attest records a non-financial milestone.
type LedgerAdapter interface {
	InitEscrow(ctx context.Context, buyer, seller, arbiter kernel.Address, amountStroops int64) (escrowID string, receipt Receipt, err error)
	Fund(ctx context.Context, escrowID string, payer kernel.Address) (Receipt, error)
	Attest(ctx context.Context, escrowID string, milestone Milestone, actor kernel.Address) (Receipt, error)
	Release(ctx context.Context, escrowID string, caller kernel.Address) (Receipt, error)
	Refund(ctx context.Context, escrowID string, caller kernel.Address) (Receipt, error)

	// History returns the confirmed milestones of an escrow, oldest first.
	History(ctx context.Context, escrowID string) ([]LedgerEvent, error)
}
