package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument identifies the traded security. All string fields are stored
// uppercase-normalized.
type Instrument struct {
	Symbol   string
	Name     string
	Exchange string
	Currency string
}

// FeeBreakdown holds the per-component fees charged on an order. TotalFees
// is a cached sum; it is recomputed together with NetAmount and must never
// be written independently of the components.
type FeeBreakdown struct {
	Brokerage         decimal.Decimal
	ExchangeFee       decimal.Decimal
	ClearingFee       decimal.Decimal
	RegulatoryFee     decimal.Decimal
	Tax               decimal.Decimal
	StampDuty         decimal.Decimal
	TransactionCharge decimal.Decimal
	TotalFees         decimal.Decimal
}

// PerformanceSnapshot holds on-demand performance figures for an order.
// It is overwritten wholesale on each evaluation, never updated in place.
type PerformanceSnapshot struct {
	UnrealizedPnL     decimal.Decimal
	RealizedPnL       decimal.Decimal
	ReturnPercent     decimal.Decimal
	HoldingPeriodDays int
	CurrentPrice      decimal.Decimal
	EvaluatedAt       time.Time
}

// Order is the central aggregate: a buy/sell/corporate-action instruction
// tracked from submission to terminal status, together with its execution
// history and derived monetary fields.
type Order struct {
	ID          string
	UserID      string
	PortfolioID string

	Instrument Instrument

	Side              OrderSide
	Type              OrderType
	RequestedQuantity decimal.Decimal
	RequestedPrice    decimal.Decimal
	StopPrice         decimal.Decimal
	LimitPrice        decimal.Decimal
	ValidTill         *time.Time

	// Derived monetary fields; recomputed from the fee components and
	// execution history, never persisted independently of them.
	TotalAmount decimal.Decimal
	Fees        FeeBreakdown
	NetAmount   decimal.Decimal

	Status OrderStatus

	ExecutedQuantity      decimal.Decimal
	RemainingQuantity     decimal.Decimal
	AverageExecutionPrice decimal.Decimal
	Executions            []Execution

	ParentOrderID string
	ChildOrderIDs []string

	Source OrderSource
	Tags   []string
	Notes  string

	Performance *PerformanceSnapshot

	IsActive    bool
	IsSimulated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPending reports whether the order can still receive fills.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending || o.Status == StatusPartiallyFilled
}

// IsCompleted reports whether the order filled completely.
func (o *Order) IsCompleted() bool {
	return o.Status == StatusFilled
}

// IsTerminal reports whether the order accepts no further mutations.
func (o *Order) IsTerminal() bool {
	return o.Status.Terminal()
}

// IsExpired reports whether the order's validity deadline has passed as of
// the given instant.
func (o *Order) IsExpired(asOf time.Time) bool {
	return o.ValidTill != nil && o.ValidTill.Before(asOf)
}

// IsCancellable reports whether a cancel request would be honored at the
// given instant: the order is still pending and its deadline, if any, has
// not passed.
func (o *Order) IsCancellable(asOf time.Time) bool {
	return o.IsPending() && !o.IsExpired(asOf)
}

// EarliestExecution returns the execution with the minimum timestamp, or
// nil when the order has none. Ties are broken by insertion order; fills
// are never reordered after append.
func (o *Order) EarliestExecution() *Execution {
	if len(o.Executions) == 0 {
		return nil
	}
	earliest := &o.Executions[0]
	for i := 1; i < len(o.Executions); i++ {
		if o.Executions[i].ExecutedAt.Before(earliest.ExecutedAt) {
			earliest = &o.Executions[i]
		}
	}
	return earliest
}

// HasExecution reports whether an execution with the given id was already
// appended. Execution ids are unique within an order.
func (o *Order) HasExecution(executionID string) bool {
	for i := range o.Executions {
		if o.Executions[i].ExecutionID == executionID {
			return true
		}
	}
	return false
}

// AppendNote appends an audit note to the order. Notes remain mutable on
// terminal orders.
func (o *Order) AppendNote(note string) {
	if note == "" {
		return
	}
	if o.Notes == "" {
		o.Notes = note
		return
	}
	o.Notes = o.Notes + "\n" + note
}

// Clone returns a deep copy of the order. Mutating operations work on a
// clone so a rejected mutation leaves the stored order untouched.
func (o *Order) Clone() *Order {
	c := *o
	c.Executions = make([]Execution, len(o.Executions))
	copy(c.Executions, o.Executions)
	c.ChildOrderIDs = append([]string(nil), o.ChildOrderIDs...)
	c.Tags = append([]string(nil), o.Tags...)
	if o.ValidTill != nil {
		t := *o.ValidTill
		c.ValidTill = &t
	}
	if o.Performance != nil {
		p := *o.Performance
		c.Performance = &p
	}
	return &c
}
