// Package breaker wraps a ledger adapter with a circuit breaker so that an
// unreachable ledger fails transitions fast instead of holding delivery
// locks until every call times out.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/logging"

	"go.uber.org/zap"
)

var ErrOpen = errors.New("ledger circuit breaker is open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type Config struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before a probe call.
	ResetTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 30 * time.Second}
}

type Ledger struct {
	next   ports.LedgerAdapter
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

var _ ports.LedgerAdapter = (*Ledger)(nil)

func New(next ports.LedgerAdapter, cfg Config, logger *zap.Logger) *Ledger {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	return &Ledger{
		next:   next,
		cfg:    cfg,
		logger: logging.Component(logger, "ledger_breaker"),
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (b *Ledger) WithClock(now func() time.Time) *Ledger {
	b.now = now
	return b
}

func (b *Ledger) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Ledger) InitEscrow(
	ctx context.Context,
	buyer, seller, arbiter kernel.Address,
	amountStroops int64,
) (string, ports.Receipt, error) {
	var (
		id      string
		receipt ports.Receipt
	)
	err := b.execute(ctx, "init_escrow", func(ctx context.Context) error {
		var err error
		id, receipt, err = b.next.InitEscrow(ctx, buyer, seller, arbiter, amountStroops)
		return err
	})
	return id, receipt, err
}

func (b *Ledger) Fund(ctx context.Context, escrowID string, payer kernel.Address) (ports.Receipt, error) {
	return b.call(ctx, "fund", func(ctx context.Context) (ports.Receipt, error) {
		return b.next.Fund(ctx, escrowID, payer)
	})
}

func (b *Ledger) Attest(
	ctx context.Context,
	escrowID string,
	milestone ports.Milestone,
	actor kernel.Address,
) (ports.Receipt, error) {
	return b.call(ctx, "attest", func(ctx context.Context) (ports.Receipt, error) {
		return b.next.Attest(ctx, escrowID, milestone, actor)
	})
}

func (b *Ledger) Release(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	return b.call(ctx, "release", func(ctx context.Context) (ports.Receipt, error) {
		return b.next.Release(ctx, escrowID, caller)
	})
}

func (b *Ledger) Refund(ctx context.Context, escrowID string, caller kernel.Address) (ports.Receipt, error) {
	return b.call(ctx, "refund", func(ctx context.Context) (ports.Receipt, error) {
		return b.next.Refund(ctx, escrowID, caller)
	})
}

func (b *Ledger) History(ctx context.Context, escrowID string) ([]ports.LedgerEvent, error) {
	var events []ports.LedgerEvent
	err := b.execute(ctx, "history", func(ctx context.Context) error {
		var err error
		events, err = b.next.History(ctx, escrowID)
		return err
	})
	return events, err
}

func (b *Ledger) call(
	ctx context.Context,
	op string,
	fn func(ctx context.Context) (ports.Receipt, error),
) (ports.Receipt, error) {
	var receipt ports.Receipt
	err := b.execute(ctx, op, func(ctx context.Context) error {
		var err error
		receipt, err = fn(ctx)
		return err
	})
	return receipt, err
}

func (b *Ledger) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := b.admit(op); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(op, err)
	return err
}

// admit decides whether a call may go through. Once the reset timeout has
// passed a single probe call is let through in the half-open state.
func (b *Ledger) admit(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.logger.Debug("fast fail", zap.String("operation", op))
			return ErrOpen
		}
		b.state = HalfOpen
		b.probing = true
		b.logger.Info("probing ledger", zap.String("operation", op))
		return nil
	default:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
}

func (b *Ledger) record(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The caller giving up says nothing about the ledger.
	if errors.Is(err, context.Canceled) {
		if b.state == HalfOpen {
			b.probing = false
		}
		return
	}

	if err == nil {
		if b.state != Closed {
			b.logger.Info("breaker closed", zap.String("from", b.state.String()))
		}
		b.state = Closed
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.MaxFailures {
		if b.state != Open {
			b.logger.Warn("breaker opened",
				zap.String("operation", op),
				zap.Int("failures", b.failures),
				zap.Error(err))
		}
		b.state = Open
		b.openedAt = b.now()
		b.probing = false
	}
}
