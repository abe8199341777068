package cart

import "github.com/shopspring/decimal"

type PricingRules struct {
	TaxRate               decimal.Decimal
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
}

func DefaultPricingRules() PricingRules {
	return PricingRules{
		TaxRate:               decimal.RequireFromString("0.08"),
		DeliveryFee:           decimal.RequireFromString("4.99"),
		FreeDeliveryThreshold: decimal.RequireFromString("30.00"),
	}
}

func NewPricingRules(taxRate, deliveryFee, freeDeliveryThreshold float64) PricingRules {
	return PricingRules{
		TaxRate:               decimal.NewFromFloat(taxRate),
		DeliveryFee:           decimal.NewFromFloat(deliveryFee),
		FreeDeliveryThreshold: decimal.NewFromFloat(freeDeliveryThreshold),
	}
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// Totals always satisfies Total == Subtotal + Tax + DeliveryFee exactly.
func (c *Cart) Totals(rules PricingRules) Totals {
	subtotal := decimal.Zero
	for _, it := range c.items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = RoundCents(subtotal)

	tax := RoundCents(subtotal.Mul(rules.TaxRate))

	fee := decimal.Zero
	if len(c.items) > 0 && (rules.FreeDeliveryThreshold.IsZero() || subtotal.LessThan(rules.FreeDeliveryThreshold)) {
		fee = RoundCents(rules.DeliveryFee)
	}

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       subtotal.Add(tax).Add(fee),
	}
}

// RoundCents rounds half away from zero, which is half-up for money amounts.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
