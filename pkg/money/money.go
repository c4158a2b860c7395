// Package money provides exact handling of statement amounts. Amounts are parsed from
// the Brazilian locale format (1.234,56) into decimal.Decimal values and totals are kept
// as integer cents with go-money so no precision is lost when summing a dataset.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the ISO-4217 code statements are denominated in.
const BRL = "BRL"

const (
	thousandsSeparator = "."
	decimalSeparator   = ","
)

var (
	// ErrInvalidAmount is returned when a locale amount string is not a number
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountOutOfRange is returned when an amount does not fit in int64 minor units
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// ParseLocale converts a locale amount such as "1.234,56" into an exact decimal.
// Every "." is removed first, then the decimal comma becomes a point.
func ParseLocale(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, thousandsSeparator, "")
	s = strings.ReplaceAll(s, decimalSeparator, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, raw, err)
	}
	return d, nil
}

// FormatLocale renders d with two decimals, "." between thousands and "," before
// the cents. It is the inverse of ParseLocale for well-formed amounts.
func FormatLocale(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}

	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(thousandsSeparator)
		b.WriteString(intPart[i : i+3])
	}

	b.WriteString(decimalSeparator)
	b.WriteString(fracPart)
	return b.String()
}

// Money represents a monetary value with currency.
// It wraps go-money for safe arithmetic on integer minor units.
type Money struct {
	m *money.Money
}

// New creates a new Money value from cents (minor units) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amountCents, currencyCode),
	}
}

// NewFromDecimal creates Money from a decimal.Decimal value, rounding to the
// currency's minor unit. Unknown currencies fall back to BRL.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
		currencyCode = BRL
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0)
	if !cents.BigInt().IsInt64() {
		return nil, fmt.Errorf("%w: %s %s", ErrAmountOutOfRange, amount.String(), currencyCode)
	}

	return New(cents.IntPart(), currencyCode), nil
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Display returns a formatted string for display (e.g., "R$1.234,56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(BRL).Display()
	}
	return m.m.Display()
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// Sum adds decimal amounts exactly and converts the total to the given currency.
// It fails with ErrAmountOutOfRange when the total does not fit in minor units.
func Sum(currencyCode string, amounts ...decimal.Decimal) (*Money, error) {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}

	m, err := NewFromDecimal(total, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to total %d amounts: %w", len(amounts), err)
	}
	return m, nil
}
