package kernel

import (
	"fmt"
	"math"
	"strings"

	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

// StroopsPerUnit is the ledger's fixed-point scale: 1 unit = 10^7 stroops.
const StroopsPerUnit = 10_000_000

var (
	stroopsScale = decimal.NewFromInt(StroopsPerUnit)
	maxStroops   = decimal.NewFromInt(math.MaxInt64)
)

// ErrAmountIsNotConstructed is returned when a zero-value Amount is used.
var ErrAmountIsNotConstructed = errs.NewValueIsRequiredError("amount must be created via NewAmount")

// Amount is the escrowed payment of a delivery. It keeps the text it was
// created from so that persisted snapshots reproduce it byte for byte, and a
// parsed decimal for arithmetic. Amounts are never negative.
type Amount struct {
	text  string
	value decimal.Decimal
	guard guard.ConstructorGuard
}

// NewAmount parses a decimal amount such as "10" or "12.50".
func NewAmount(text string) (Amount, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Amount{}, errs.NewValueIsRequiredError("amount")
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return Amount{}, errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%q is not a decimal number", text))
	}
	if value.IsNegative() {
		return Amount{}, errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%s is negative", text))
	}
	return Amount{text: text, value: value, guard: guard.NewConstructorGuard()}, nil
}

// MustAmount is NewAmount for literals known to be valid. It panics otherwise.
func MustAmount(text string) Amount {
	a, err := NewAmount(text)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Validate() error {
	return a.guard.Validate(ErrAmountIsNotConstructed)
}

// String returns the amount exactly as it was given.
func (a Amount) String() string {
	return a.text
}

func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

// Stroops converts the amount to the ledger's integer unit. Amounts finer
// than one stroop or beyond int64 are rejected, never rounded.
func (a Amount) Stroops() (int64, error) {
	stroops := a.value.Mul(stroopsScale)
	if !stroops.Equal(stroops.Truncate(0)) {
		return 0, errs.NewValueIsInvalidErrorWithCause("amount",
			fmt.Errorf("%s has more than 7 decimal places", a.text))
	}
	if stroops.GreaterThan(maxStroops) {
		return 0, errs.NewValueIsOutOfRangeError("amount in stroops", stroops.String(), 0, int64(math.MaxInt64))
	}
	return stroops.IntPart(), nil
}
