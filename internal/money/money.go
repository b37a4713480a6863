// Package money holds the exact-decimal helpers used for every amount,
// quantity and rate in the ledger.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// AmountScale is the currency precision.
	AmountScale int32 = 2
	// QuantityScale is the stock quantity precision.
	QuantityScale int32 = 3
	// CostScale is the precision kept for weighted average cost.
	CostScale int32 = 4
)

var (
	// ErrNegative indicates a value below zero where only non-negative values are allowed.
	ErrNegative = errors.New("money: value must not be negative")
	// ErrPrecision indicates more fractional digits than allowed.
	ErrPrecision = errors.New("money: too many fractional digits")
)

var indianPrinter = message.NewPrinter(language.MustParse("en-IN"))

// Round2 rounds half-up to currency precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// RoundCost rounds half-up to average-cost precision.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostScale)
}

// CheckScale verifies d has at most scale fractional digits.
func CheckScale(d decimal.Decimal, scale int32) error {
	if !d.Equal(d.Truncate(scale)) {
		return fmt.Errorf("%w: %s allows %d", ErrPrecision, d.String(), scale)
	}
	return nil
}

// CheckAmount verifies d is a non-negative currency amount.
func CheckAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegative
	}
	return CheckScale(d, AmountScale)
}

// ParseAmount parses a non-negative currency amount with at most two fractional digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid amount %q", raw)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseQuantity parses a strictly positive stock quantity.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid quantity %q", raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("money: quantity must be positive")
	}
	if err := CheckScale(d, QuantityScale); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// String renders an amount with exactly two fractional digits.
func String(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// FormatINR renders an amount for display with a ₹ prefix and Indian digit grouping.
func FormatINR(d decimal.Decimal) string {
	rounded := Round2(d)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	// Display only; the float conversion never feeds back into arithmetic.
	f, _ := rounded.Float64()
	return sign + "₹" + indianPrinter.Sprintf("%.2f", f)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
