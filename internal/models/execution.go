package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one partial or complete fill against an order. The execution
// history is append-only: records are never reordered or rewritten.
type Execution struct {
	ExecutionID       string
	ExecutedAt        time.Time
	ExecutedPrice     decimal.Decimal
	ExecutedQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	MarketPrice       *decimal.Decimal
	Slippage          *decimal.Decimal
	Liquidity         Liquidity
}

// Notional returns price × quantity for this fill.
func (e Execution) Notional() decimal.Decimal {
	return e.ExecutedPrice.Mul(e.ExecutedQuantity)
}
