package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest single charge Stripe accepts for USD
// card payments ($999,999.99).
const MaxAmountCents int64 = 99_999_999

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountNegative    = errors.New("amount must not be negative")
	ErrAmountTooLarge    = fmt.Errorf("amount must not exceed %s", CentsToDecimal(MaxAmountCents).StringFixed(2))
	ErrAmountTooPrecise  = errors.New("amount must have at most two fractional digits")
)

// maxAmountDigits is the number of integer digits in MaxAmountCents
// expressed in dollars. maxAmountScale bounds how many fractional digits
// are inspected before an amount is called too precise.
const (
	maxAmountDigits = 6
	maxAmountScale  = 32
)

// DecimalToCents converts a currency amount to minor units, rejecting
// sub-cent precision and anything above MaxAmountCents. Zero is allowed;
// callers decide whether zero is meaningful.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrAmountNegative
	}
	if d.IsZero() {
		return 0, nil
	}
	// Rescaling to or from an extreme exponent allocates 10^|exp|, so the
	// magnitude is bounded from the exponent alone first.
	exp := int64(d.Exponent())
	if exp > 0 && int64(d.NumDigits())+exp > maxAmountDigits {
		return 0, ErrAmountTooLarge
	}
	if exp < -maxAmountScale {
		return 0, ErrAmountTooPrecise
	}
	shifted := d.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrAmountTooPrecise
	}
	if shifted.GreaterThan(decimal.NewFromInt(MaxAmountCents)) {
		return 0, ErrAmountTooLarge
	}
	return shifted.IntPart(), nil
}

// PositiveCents is DecimalToCents that also rejects zero.
func PositiveCents(d decimal.Decimal) (int64, error) {
	cents, err := DecimalToCents(d)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrAmountNotPositive
	}
	return cents, nil
}

func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
