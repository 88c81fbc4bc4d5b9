package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Evaluate computes a performance snapshot for a completed buy order at the
// given market price. It returns nil for anything else: sells, dividends and
// other corporate actions have different P&L semantics, and the unrealized
// P&L of a partially-filled buy is deliberately not reported.
//
// The snapshot is a point-in-time computation; callers re-invoke it on each
// pricing tick and overwrite the cached fields.
func Evaluate(order *models.Order, currentPrice decimal.Decimal, asOf time.Time) *models.PerformanceSnapshot {
	if !order.IsCompleted() || order.Side != models.SideBuy {
		return nil
	}

	avg := order.AverageExecutionPrice
	snapshot := &models.PerformanceSnapshot{
		UnrealizedPnL: currentPrice.Sub(avg).Mul(order.ExecutedQuantity),
		CurrentPrice:  currentPrice,
		EvaluatedAt:   asOf,
	}
	if order.Performance != nil {
		snapshot.RealizedPnL = order.Performance.RealizedPnL
	}
	if avg.IsPositive() {
		snapshot.ReturnPercent = currentPrice.Sub(avg).Div(avg).Mul(hundred)
	}
	if earliest := order.EarliestExecution(); earliest != nil {
		days := asOf.Sub(earliest.ExecutedAt).Hours() / 24
		snapshot.HoldingPeriodDays = int(math.Round(days))
	}
	return snapshot
}
