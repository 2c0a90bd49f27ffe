package money

import (
	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
)

// Sum adds a collection of amounts. The currency parameter anchors the
// result so an empty collection still yields a typed zero.
func Sum(currency enums.Currency, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, value := range values {
		next, err := total.Add(value)
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}

// Min returns the smallest amount in the collection.
func Min(values ...Money) (Money, error) {
	if len(values) == 0 {
		return Money{}, pkgerrors.New(pkgerrors.CodeValidation, "min: empty collection")
	}
	smallest := values[0]
	for _, value := range values[1:] {
		cmp, err := value.Cmp(smallest)
		if err != nil {
			return Money{}, err
		}
		if cmp < 0 {
			smallest = value
		}
	}
	return smallest, nil
}

// Max returns the largest amount in the collection.
func Max(values ...Money) (Money, error) {
	if len(values) == 0 {
		return Money{}, pkgerrors.New(pkgerrors.CodeValidation, "max: empty collection")
	}
	largest := values[0]
	for _, value := range values[1:] {
		cmp, err := value.Cmp(largest)
		if err != nil {
			return Money{}, err
		}
		if cmp > 0 {
			largest = value
		}
	}
	return largest, nil
}

// Average returns the mean of the collection, rounded half-up to the
// minor unit.
func Average(values ...Money) (Money, error) {
	if len(values) == 0 {
		return Money{}, pkgerrors.New(pkgerrors.CodeValidation, "average: empty collection")
	}
	total, err := Sum(values[0].Currency(), values...)
	if err != nil {
		return Money{}, err
	}
	return total.Divide(decimal.NewFromInt(int64(len(values))))
}

// AllocateProportionally splits total across weights using the largest
// remainder method so the shares always sum exactly to total. Weights are
// minor-unit amounts in the same currency as total.
func AllocateProportionally(total Money, weights []Money) ([]Money, error) {
	if len(weights) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocate: empty weights")
	}
	weightSum, err := Sum(total.Currency(), weights...)
	if err != nil {
		return nil, err
	}
	if weightSum.IsZero() {
		shares := make([]Money, len(weights))
		for i := range shares {
			shares[i] = Zero(total.Currency())
		}
		return shares, nil
	}

	shares := make([]Money, len(weights))
	type remainder struct {
		index int
		frac  decimal.Decimal
	}
	remainders := make([]remainder, 0, len(weights))
	allocated := int64(0)
	for i, weight := range weights {
		if err := total.assertSameCurrency(weight, "allocate"); err != nil {
			return nil, err
		}
		exact := decimal.New(total.amount, 0).
			Mul(decimal.New(weight.amount, 0)).
			Div(decimal.New(weightSum.amount, 0))
		floor := exact.Floor()
		shares[i] = Money{amount: floor.IntPart(), currency: total.currency}
		allocated += floor.IntPart()
		remainders = append(remainders, remainder{index: i, frac: exact.Sub(floor)})
	}

	// Hand out the leftover minor units to the largest fractional parts,
	// breaking ties by position for determinism.
	leftover := total.amount - allocated
	for step := int64(0); step < leftover; step++ {
		bestIdx := 0
		for i := 1; i < len(remainders); i++ {
			if remainders[i].frac.GreaterThan(remainders[bestIdx].frac) {
				bestIdx = i
			}
		}
		shares[remainders[bestIdx].index] = Money{
			amount:   shares[remainders[bestIdx].index].amount + 1,
			currency: total.currency,
		}
		remainders[bestIdx].frac = decimal.NewFromInt(-1)
	}

	return shares, nil
}
