package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
)

// Money is an immutable currency-tagged amount stored in integer minor
// units (cents for two-decimal currencies). The amount is never negative;
// reductions are modeled as discounts, not negative money. Every operation
// returns a new value.
type Money struct {
	amount   int64
	currency enums.Currency
}

// New builds a Money from minor units.
func New(minorUnits int64, currency enums.Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid currency %q", currency)
	}
	if minorUnits < 0 {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "money amount cannot be negative (%d)", minorUnits)
	}
	return Money{amount: minorUnits, currency: currency}, nil
}

// MustNew is New for values known valid at compile time. It panics on error
// and exists for tests and literals.
func MustNew(minorUnits int64, currency enums.Currency) Money {
	m, err := New(minorUnits, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero amount in the given currency.
func Zero(currency enums.Currency) Money {
	return Money{amount: 0, currency: currency}
}

// FromDecimal converts a major-unit decimal into Money, rounding half-up
// to the currency's minor unit. This is the single rounding boundary; all
// intermediate math stays in decimal precision.
func FromDecimal(value decimal.Decimal, currency enums.Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid currency %q", currency)
	}
	minor := value.Shift(currency.MinorUnits()).Round(0)
	if minor.IsNegative() {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "money amount cannot be negative (%s %s)", value, currency)
	}
	return Money{amount: minor.IntPart(), currency: currency}, nil
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency tag.
func (m Money) Currency() enums.Currency {
	return m.currency
}

// Decimal returns the amount in major units at full precision.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -m.currency.MinorUnits())
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(m.currency.MinorUnits()), m.currency)
}

func (m Money) assertSameCurrency(other Money, op string) error {
	if m.currency != other.currency {
		return pkgerrors.Newf(pkgerrors.CodeCurrencyMismatch, "%s: %s vs %s", op, m.currency, other.currency)
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other, "add"); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns m - other and fails when the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.assertSameCurrency(other, "subtract"); err != nil {
		return Money{}, err
	}
	if other.amount > m.amount {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "subtract: %s from %s would be negative", other, m)
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// SubtractClamped returns m - other floored at zero, reporting whether
// clamping occurred. Callers that must surface clamping use this instead
// of Subtract.
func (m Money) SubtractClamped(other Money) (Money, bool, error) {
	if err := m.assertSameCurrency(other, "subtract"); err != nil {
		return Money{}, false, err
	}
	if other.amount > m.amount {
		return Money{amount: 0, currency: m.currency}, true, nil
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, false, nil
}

// MultiplyInt returns m scaled by a non-negative integer quantity.
func (m Money) MultiplyInt(qty int64) (Money, error) {
	if qty < 0 {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "multiply: quantity must be non-negative (%d)", qty)
	}
	return Money{amount: m.amount * qty, currency: m.currency}, nil
}

// Multiply returns m scaled by a non-negative decimal factor, rounded
// half-up to the minor unit.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "multiply: factor must be non-negative (%s)", factor)
	}
	return FromDecimal(m.Decimal().Mul(factor), m.currency)
}

// Divide returns m divided by a positive decimal, rounded half-up to the
// minor unit.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "divide: divisor must be positive (%s)", divisor)
	}
	return FromDecimal(m.Decimal().Div(divisor), m.currency)
}

// ApplyPercentage returns percent% of m, rounded half-up to the minor
// unit. Percent must sit in [0, 100].
func (m Money) ApplyPercentage(percent decimal.Decimal) (Money, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "percentage must be within [0,100] (%s)", percent)
	}
	return FromDecimal(m.Decimal().Mul(percent).Div(decimal.NewFromInt(100)), m.currency)
}

// Cmp compares two amounts: -1 when m < other, 0 when equal, 1 when greater.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.assertSameCurrency(other, "compare"); err != nil {
		return 0, err
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equals reports value and currency equality.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

type moneyJSON struct {
	Amount   string         `json:"amount"`
	Currency enums.Currency `json:"currency"`
}

// MarshalJSON encodes the amount as a fixed-point string so the value
// survives JSON round-trips without floating-point drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.Decimal().StringFixed(m.currency.MinorUnits()),
		Currency: m.currency,
	})
}

// UnmarshalJSON decodes the string-amount representation.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse money amount")
	}
	parsed, err := FromDecimal(value, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
