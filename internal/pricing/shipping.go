package pricing

import (
	"github.com/veldtcommerce/pricing-engine/pkg/config"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// ShippingPolicy computes the shipping fee for a priced cart. The fee is
// derived from the post-discount amount so threshold policies reward the
// price the customer actually pays.
type ShippingPolicy interface {
	Fee(postDiscount money.Money) (money.Money, error)
}

// FlatRate charges the same fee on every order.
type FlatRate struct {
	fee money.Money
}

func NewFlatRate(fee money.Money) FlatRate {
	return FlatRate{fee: fee}
}

func (p FlatRate) Fee(postDiscount money.Money) (money.Money, error) {
	if err := assertCurrency(p.fee, postDiscount); err != nil {
		return money.Money{}, err
	}
	return p.fee, nil
}

// FreeOverThreshold waives the flat fee once the post-discount amount
// reaches the threshold.
type FreeOverThreshold struct {
	fee       money.Money
	threshold money.Money
}

func NewFreeOverThreshold(fee, threshold money.Money) FreeOverThreshold {
	return FreeOverThreshold{fee: fee, threshold: threshold}
}

func (p FreeOverThreshold) Fee(postDiscount money.Money) (money.Money, error) {
	if err := assertCurrency(p.fee, postDiscount); err != nil {
		return money.Money{}, err
	}
	cmp, err := postDiscount.Cmp(p.threshold)
	if err != nil {
		return money.Money{}, err
	}
	if cmp >= 0 {
		return money.Zero(postDiscount.Currency()), nil
	}
	return p.fee, nil
}

func assertCurrency(fee, postDiscount money.Money) error {
	if fee.Currency() != postDiscount.Currency() {
		return pkgerrors.Newf(pkgerrors.CodeCurrencyMismatch, "shipping fee %s vs cart %s", fee.Currency(), postDiscount.Currency())
	}
	return nil
}

// PolicyFromConfig builds the configured shipping policy in the engine's
// default currency.
func PolicyFromConfig(cfg config.EngineConfig) (ShippingPolicy, error) {
	currency := cfg.Currency()
	fee, err := money.New(cfg.ShippingFlatCents, currency)
	if err != nil {
		return nil, err
	}
	switch cfg.ShippingPolicy {
	case "free_over_threshold":
		threshold, err := money.New(cfg.FreeShippingThresholdCents, currency)
		if err != nil {
			return nil, err
		}
		return NewFreeOverThreshold(fee, threshold), nil
	default:
		return NewFlatRate(fee), nil
	}
}
