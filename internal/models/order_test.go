package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderStatus_Terminal(t *testing.T) {
	terminal := []OrderStatus{StatusFilled, StatusCancelled, StatusRejected, StatusExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusPending, StatusPartiallyFilled} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrder_Predicates(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name        string
		status      OrderStatus
		validTill   *time.Time
		pending     bool
		cancellable bool
	}{
		{"pending open-ended", StatusPending, nil, true, true},
		{"partially filled", StatusPartiallyFilled, nil, true, true},
		{"pending before deadline", StatusPending, &future, true, true},
		{"pending past deadline", StatusPending, &past, true, false},
		{"filled", StatusFilled, nil, false, false},
		{"cancelled", StatusCancelled, nil, false, false},
		{"expired", StatusExpired, &past, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status, ValidTill: tt.validTill}
			if got := o.IsPending(); got != tt.pending {
				t.Errorf("IsPending = %v, want %v", got, tt.pending)
			}
			if got := o.IsCancellable(now); got != tt.cancellable {
				t.Errorf("IsCancellable = %v, want %v", got, tt.cancellable)
			}
		})
	}
}

func TestOrder_IsExpiredBoundary(t *testing.T) {
	deadline := time.Date(2026, 8, 15, 15, 30, 0, 0, time.UTC)
	o := &Order{Status: StatusPending, ValidTill: &deadline}

	if o.IsExpired(deadline) {
		t.Error("order expired exactly at its deadline; deadline itself is still valid")
	}
	if !o.IsExpired(deadline.Add(time.Nanosecond)) {
		t.Error("order not expired just past its deadline")
	}
}

func TestOrder_EarliestExecution(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	o := &Order{}

	if o.EarliestExecution() != nil {
		t.Error("EarliestExecution on empty history should be nil")
	}

	o.Executions = []Execution{
		{ExecutionID: "b", ExecutedAt: base.Add(time.Hour)},
		{ExecutionID: "a", ExecutedAt: base},
		{ExecutionID: "c", ExecutedAt: base.Add(2 * time.Hour)},
	}
	if got := o.EarliestExecution(); got.ExecutionID != "a" {
		t.Errorf("EarliestExecution = %s, want a", got.ExecutionID)
	}
}

func TestOrder_CloneIsDeep(t *testing.T) {
	deadline := time.Now().Add(time.Hour)
	o := &Order{
		ID:        "ORD-1",
		ValidTill: &deadline,
		Tags:      []string{"swing"},
		Executions: []Execution{
			{ExecutionID: "exec-1", ExecutedQuantity: decimal.NewFromInt(10)},
		},
		Performance: &PerformanceSnapshot{RealizedPnL: decimal.NewFromInt(100)},
	}

	c := o.Clone()
	c.Executions[0].ExecutionID = "mutated"
	c.Tags[0] = "mutated"
	*c.ValidTill = c.ValidTill.Add(time.Hour)
	c.Performance.RealizedPnL = decimal.Zero

	if o.Executions[0].ExecutionID != "exec-1" {
		t.Error("clone shares the executions slice")
	}
	if o.Tags[0] != "swing" {
		t.Error("clone shares the tags slice")
	}
	if !o.ValidTill.Equal(deadline) {
		t.Error("clone shares the ValidTill pointer")
	}
	if !o.Performance.RealizedPnL.Equal(decimal.NewFromInt(100)) {
		t.Error("clone shares the performance snapshot")
	}
}

func TestOrder_AppendNote(t *testing.T) {
	o := &Order{}
	o.AppendNote("")
	if o.Notes != "" {
		t.Errorf("Notes = %q, want empty", o.Notes)
	}
	o.AppendNote("first")
	o.AppendNote("second")
	if o.Notes != "first\nsecond" {
		t.Errorf("Notes = %q, want joined lines", o.Notes)
	}
}

func TestOrderSide_IsCorporateAction(t *testing.T) {
	for _, s := range []OrderSide{SideDividend, SideSplit, SideMerger, SideBonus, SideRights, SideIPO} {
		if !s.IsCorporateAction() {
			t.Errorf("%s should be a corporate action", s)
		}
	}
	for _, s := range []OrderSide{SideBuy, SideSell} {
		if s.IsCorporateAction() {
			t.Errorf("%s should not be a corporate action", s)
		}
	}
}
