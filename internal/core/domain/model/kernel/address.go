package kernel

import (
	"fmt"
	"strings"
	"unicode"

	"cargotrust/internal/pkg/errs"
)

// MaxAddressLength bounds wallet addresses accepted from clients.
const MaxAddressLength = 128

// Address is a wallet address on the escrow ledger, identifying a requester,
// a carrier or an arbiter. The zero value is the empty address and means
// "no address", which is how a delivery without a carrier is represented.
type Address struct {
	value string
}

// NewAddress trims s and validates it as a wallet address.
//
// Example:
//
//	carrier, err := kernel.NewAddress("GCARRIER...")
//	if err != nil {
//	    return err
//	}
func NewAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, errs.NewValueIsRequiredError("address")
	}
	if len(s) > MaxAddressLength {
		return Address{}, errs.NewValueIsOutOfRangeError("address length", len(s), 1, MaxAddressLength)
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return Address{}, errs.NewValueIsInvalidErrorWithCause("address", fmt.Errorf("%q contains whitespace", s))
	}
	return Address{value: s}, nil
}

// MustAddress is NewAddress for literals known to be valid. It panics otherwise.
func MustAddress(s string) Address {
	a, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return a.value
}

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool {
	return a.value == ""
}

func (a Address) Equals(other Address) bool {
	return a.value == other.value
}
