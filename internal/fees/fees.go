// Package fees computes fee totals and net amounts for orders.
package fees

import (
	"github.com/shopspring/decimal"

	"tradeledger/internal/errors"
	"tradeledger/internal/models"
)

// component pairs a fee component with its name for validation messages.
type component struct {
	name  string
	value decimal.Decimal
}

func components(b models.FeeBreakdown) []component {
	return []component{
		{"brokerage", b.Brokerage},
		{"exchange_fee", b.ExchangeFee},
		{"clearing_fee", b.ClearingFee},
		{"regulatory_fee", b.RegulatoryFee},
		{"tax", b.Tax},
		{"stamp_duty", b.StampDuty},
		{"transaction_charge", b.TransactionCharge},
	}
}

// Total returns the exact sum of all fee components. Missing components are
// zero by construction; negative components are rejected with
// InvalidFeeComponentError.
func Total(b models.FeeBreakdown) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range components(b) {
		if c.value.IsNegative() {
			return decimal.Zero, errors.NewInvalidFeeComponentError(c.name, c.value)
		}
		total = total.Add(c.value)
	}
	return total, nil
}

// NetAmount derives the net cash impact of an order: buys pay fees on top of
// the total, sells have fees deducted, corporate actions pass the total
// through unchanged.
func NetAmount(totalAmount, totalFees decimal.Decimal, side models.OrderSide) decimal.Decimal {
	switch side {
	case models.SideBuy:
		return totalAmount.Add(totalFees)
	case models.SideSell:
		return totalAmount.Sub(totalFees)
	default:
		return totalAmount
	}
}

// Recompute refreshes the cached TotalFees, TotalAmount and NetAmount on
// the order from its fee components and execution-derived fields. The three
// fields form one atomic derivation: callers invoke Recompute whenever the
// fee components or the execution history change, and before persistence.
func Recompute(o *models.Order) error {
	total, err := Total(o.Fees)
	if err != nil {
		return err
	}
	o.Fees.TotalFees = total

	price := o.AverageExecutionPrice
	if price.IsZero() {
		price = o.RequestedPrice
	}
	o.TotalAmount = o.RequestedQuantity.Mul(price)
	o.NetAmount = NetAmount(o.TotalAmount, o.Fees.TotalFees, o.Side)
	return nil
}
