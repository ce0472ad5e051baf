// Package simledger is an in-process escrow ledger. It enforces the escrow
// contract rules (states, buyer-only funding, arbiter-only release and
// refund) and can inject latency and failures, which makes it the ledger for
// local runs and tests.
package simledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"

	"github.com/google/uuid"
)

var (
	ErrEscrowNotFound = errors.New("escrow not found")
	ErrUnauthorized   = errors.New("caller is not allowed to do this")
	ErrInvalidState   = errors.New("escrow is not in a valid state for this call")
	ErrInvalidAmount  = errors.New("escrow amount must be positive")
	ErrMissingParty   = errors.New("buyer, seller and arbiter are required")
)

// Operation names a ledger call for failure injection.
type Operation string

const (
	OpInitEscrow Operation = "init_escrow"
	OpFund       Operation = "fund"
	OpAttest     Operation = "attest"
	OpRelease    Operation = "release"
	OpRefund     Operation = "refund"
	OpHistory    Operation = "history"
)

type escrowState int

const (
	stateCreated escrowState = iota
	stateFunded
	stateReleased
	stateRefunded
)

func (s escrowState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateFunded:
		return "funded"
	case stateReleased:
		return "released"
	case stateRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

type escrow struct {
	buyer   kernel.Address
	seller  kernel.Address
	arbiter kernel.Address
	amount  int64
	state   escrowState
	history []ports.LedgerEvent
}

// gasUsed is what every simulated call costs.
const gasUsed = 21000

type Ledger struct {
	clock   kernel.Clock
	latency time.Duration

	mu       sync.Mutex
	escrows  map[string]*escrow
	block    int64
	failNext map[Operation][]error
}

var _ ports.LedgerAdapter = (*Ledger)(nil)

type Option func(*Ledger)

// WithLatency delays every call by d, or until the context is done.
func WithLatency(d time.Duration) Option {
	return func(l *Ledger) { l.latency = d }
}

func New(clock kernel.Clock, opts ...Option) *Ledger {
	l := &Ledger{
		clock:    clock,
		escrows:  make(map[string]*escrow),
		failNext: make(map[Operation][]error),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FailNext makes the next call of op return err. Calls queue up.
func (l *Ledger) FailNext(op Operation, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext[op] = append(l.failNext[op], err)
}

func (l *Ledger) InitEscrow(
	ctx context.Context,
	buyer, seller, arbiter kernel.Address,
	amountStroops int64,
) (string, ports.Receipt, error) {
	if err := l.begin(ctx, OpInitEscrow); err != nil {
		return "", ports.Receipt{}, err
	}
	if buyer.IsZero() || seller.IsZero() || arbiter.IsZero() {
		return "", ports.Receipt{}, fmt.Errorf("init escrow: %w", ErrMissingParty)
	}
	if amountStroops <= 0 {
		return "", ports.Receipt{}, fmt.Errorf("init escrow: %w", ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.NewString()
	l.escrows[id] = &escrow{buyer: buyer, seller: seller, arbiter: arbiter, amount: amountStroops}
	return id, l.receipt(), nil
}

func (l *Ledger) Fund(ctx context.Context, escrowID string, payer kernel.Address) (ports.Receipt, error) {
	return l.apply(ctx, OpFund, escrowID, func(e *escrow) (ports.Milestone, error) {
		if !payer.Equals(e.buyer) {
			return "", ErrUnauthorized
		}
		if e.state != stateCreated {
			return "", fmt.Errorf("%w: %s", ErrInvalidState, e.state)
		}
		e.state = stateFunded
		return ports.MilestoneFund, nil
	}, payer)
}

func (l *Ledger) Attest(
	ctx context.Context,
	escrowID string,
	milestone ports.Milestone,
	actor kernel.Address,
) (ports.Receipt, error) {
	return l.apply(ctx, OpAttest, escrowID, func(e *escrow) (ports.Milestone, error) {
		switch milestone {
		case ports.MilestoneAccept, ports.MilestonePickup, ports.MilestoneTransit, ports.MilestoneDeliver:
		default:
			return "", fmt.Errorf("%w: %q cannot be attested", ErrInvalidState, milestone)
		}
		if e.state != stateFunded {
			return "", fmt.Errorf("%w: %s", ErrInvalidState, e.state)
		}
		for _, ev := range e.history {
			if ev.Milestone == milestone {
				return "", fmt.Errorf("%w: %s already attested", ErrInvalidState, milestone)
			}
		}
		return milestone, nil
	}, actor)
}

func (l *Ledger) Release(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	return l.settle(ctx, OpRelease, escrowID, caller, stateReleased, ports.MilestoneRelease)
}

func (l *Ledger) Refund(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	return l.settle(ctx, OpRefund, escrowID, caller, stateRefunded, ports.MilestoneRefund)
}

func (l *Ledger) settle(
	ctx context.Context,
	op Operation,
	escrowID string,
	caller kernel.Address,
	to escrowState,
	milestone ports.Milestone,
) (ports.Receipt, error) {
	return l.apply(ctx, op, escrowID, func(e *escrow) (ports.Milestone, error) {
		if !caller.Equals(e.arbiter) {
			return "", ErrUnauthorized
		}
		if e.state != stateFunded {
			return "", fmt.Errorf("%w: %s", ErrInvalidState, e.state)
		}
		e.state = to
		return milestone, nil
	}, caller)
}

func (l *Ledger) History(ctx context.Context, escrowID string) ([]ports.LedgerEvent, error) {
	if err := l.begin(ctx, OpHistory); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.escrows[escrowID]
	if !ok {
		return nil, fmt.Errorf("history %s: %w", escrowID, ErrEscrowNotFound)
	}
	return append([]ports.LedgerEvent(nil), e.history...), nil
}

// apply runs change on the escrow and records the milestone it returns.
func (l *Ledger) apply(
	ctx context.Context,
	op Operation,
	escrowID string,
	change func(e *escrow) (ports.Milestone, error),
	actor kernel.Address,
) (ports.Receipt, error) {
	if err := l.begin(ctx, op); err != nil {
		return ports.Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.escrows[escrowID]
	if !ok {
		return ports.Receipt{}, fmt.Errorf("%s %s: %w", op, escrowID, ErrEscrowNotFound)
	}
	milestone, err := change(e)
	if err != nil {
		return ports.Receipt{}, fmt.Errorf("%s %s: %w", op, escrowID, err)
	}
	receipt := l.receipt()
	e.history = append(e.history, ports.LedgerEvent{
		Milestone: milestone,
		Actor:     actor,
		Receipt:   receipt,
		At:        kernel.Millis(l.clock.Now()),
	})
	return receipt, nil
}

// begin waits out the simulated latency and consumes an injected failure.
func (l *Ledger) begin(ctx context.Context, op Operation) error {
	if l.latency > 0 {
		timer := time.NewTimer(l.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if queued := l.failNext[op]; len(queued) > 0 {
		l.failNext[op] = queued[1:]
		return queued[0]
	}
	return nil
}

// receipt must be called with mu held.
func (l *Ledger) receipt() ports.Receipt {
	l.block++
	return ports.Receipt{
		Hash:        "0x" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		BlockNumber: l.block,
		GasUsed:     gasUsed,
	}
}
