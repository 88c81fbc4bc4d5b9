// Package stats provides windowed trading statistics as pure reductions
// over order slices, independent of the backing store.
package stats

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/internal/models"
)

// DefaultWindowDays is the lookback applied when the caller passes a
// non-positive window.
const DefaultWindowDays = 30

var hundred = decimal.NewFromInt(100)

// PortfolioStats summarizes all orders of one portfolio inside the window.
type PortfolioStats struct {
	TotalOrders      int
	TotalVolume      decimal.Decimal
	TotalFees        decimal.Decimal
	BuyOrders        int
	SellOrders       int
	AverageOrderSize decimal.Decimal
	DistinctSymbols  int
	CompletedOrders  int
	PendingOrders    int
	CompletionRate   decimal.Decimal
	// SymbolVolume maps each symbol to its share of total volume, in
	// percent.
	SymbolConcentration map[string]decimal.Decimal
}

// UserStats summarizes a user's filled orders inside the window.
type UserStats struct {
	TotalTrades          int
	TotalVolume          decimal.Decimal
	TotalFees            decimal.Decimal
	TotalRealizedPnL     decimal.Decimal
	AverageHoldingPeriod decimal.Decimal
	WinningTrades        int
	LosingTrades         int
	WinRate              decimal.Decimal
	NetPnL               decimal.Decimal
}

// windowStart returns the cutoff for a lookback window ending at asOf.
func windowStart(asOf time.Time, windowDays int) time.Time {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return asOf.AddDate(0, 0, -windowDays)
}

// Portfolio reduces the given orders into portfolio statistics over the
// lookback window. An empty input yields zeroed statistics; rates are 0,
// never a division by zero.
func Portfolio(orders []models.Order, asOf time.Time, windowDays int) PortfolioStats {
	since := windowStart(asOf, windowDays)

	s := PortfolioStats{
		TotalVolume:         decimal.Zero,
		TotalFees:           decimal.Zero,
		AverageOrderSize:    decimal.Zero,
		CompletionRate:      decimal.Zero,
		SymbolConcentration: make(map[string]decimal.Decimal),
	}

	symbolVolume := make(map[string]decimal.Decimal)
	for i := range orders {
		o := &orders[i]
		if o.CreatedAt.Before(since) {
			continue
		}
		s.TotalOrders++
		s.TotalVolume = s.TotalVolume.Add(o.TotalAmount)
		s.TotalFees = s.TotalFees.Add(o.Fees.TotalFees)
		symbolVolume[o.Instrument.Symbol] = symbolVolume[o.Instrument.Symbol].Add(o.TotalAmount)

		switch o.Side {
		case models.SideBuy:
			s.BuyOrders++
		case models.SideSell:
			s.SellOrders++
		}
		if o.IsCompleted() {
			s.CompletedOrders++
		}
		if o.IsPending() {
			s.PendingOrders++
		}
	}

	s.DistinctSymbols = len(symbolVolume)
	if s.TotalOrders > 0 {
		s.AverageOrderSize = s.TotalVolume.Div(decimal.NewFromInt(int64(s.TotalOrders)))
		s.CompletionRate = decimal.NewFromInt(int64(s.CompletedOrders)).
			Div(decimal.NewFromInt(int64(s.TotalOrders))).Mul(hundred)
	}
	if s.TotalVolume.IsPositive() {
		for symbol, vol := range symbolVolume {
			s.SymbolConcentration[symbol] = vol.Div(s.TotalVolume).Mul(hundred)
		}
	}
	return s
}

// User reduces the given orders into per-user trading statistics over the
// lookback window. Only filled orders count as trades. An empty input
// yields zeroed statistics.
func User(orders []models.Order, asOf time.Time, windowDays int) UserStats {
	since := windowStart(asOf, windowDays)

	s := UserStats{
		TotalVolume:          decimal.Zero,
		TotalFees:            decimal.Zero,
		TotalRealizedPnL:     decimal.Zero,
		AverageHoldingPeriod: decimal.Zero,
		WinRate:              decimal.Zero,
		NetPnL:               decimal.Zero,
	}

	holdingDays := decimal.Zero
	for i := range orders {
		o := &orders[i]
		if o.CreatedAt.Before(since) || !o.IsCompleted() {
			continue
		}
		s.TotalTrades++
		s.TotalVolume = s.TotalVolume.Add(o.TotalAmount)
		s.TotalFees = s.TotalFees.Add(o.Fees.TotalFees)

		// Holding period comes from the fill history, which a filled
		// order always carries; the performance snapshot is optional.
		if earliest := o.EarliestExecution(); earliest != nil {
			days := asOf.Sub(earliest.ExecutedAt).Hours() / 24
			holdingDays = holdingDays.Add(decimal.NewFromInt(int64(math.Round(days))))
		}

		if o.Performance != nil {
			realized := o.Performance.RealizedPnL
			s.TotalRealizedPnL = s.TotalRealizedPnL.Add(realized)
			if realized.IsPositive() {
				s.WinningTrades++
			} else if realized.IsNegative() {
				s.LosingTrades++
			}
		}
	}

	if s.TotalTrades > 0 {
		trades := decimal.NewFromInt(int64(s.TotalTrades))
		s.AverageHoldingPeriod = holdingDays.Div(trades)
		s.WinRate = decimal.NewFromInt(int64(s.WinningTrades)).Div(trades).Mul(hundred)
	}
	s.NetPnL = s.TotalRealizedPnL.Sub(s.TotalFees)
	return s
}
