// ================================
// File: internal/txbuild/amount.go
// ================================
package txbuild

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/xdr"
)

// Decimals is the ledger's fixed-point convention: amounts carry at most
// seven fractional digits.
const Decimals = 7

// ToStroops converts a decimal amount into the ledger's smallest-unit int64
// representation. Amounts with more than seven fractional digits are
// rejected rather than silently rounded.
func ToStroops(amount decimal.Decimal) (xdr.Int64, error) {
	shifted := amount.Shift(Decimals)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s exceeds %d decimal places", amount.String(), Decimals)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows the ledger range", amount.String())
	}
	return xdr.Int64(shifted.IntPart()), nil
}

// ParseStroops converts a decimal amount string into stroops.
func ParseStroops(amount string) (xdr.Int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	return ToStroops(d)
}

// FromStroops renders a smallest-unit amount back into its decimal form.
func FromStroops(stroops xdr.Int64) decimal.Decimal {
	return decimal.New(int64(stroops), -Decimals)
}
