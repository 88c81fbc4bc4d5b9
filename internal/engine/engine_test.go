package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradeledger/internal/errors"
	"tradeledger/internal/models"
	"tradeledger/internal/store"
)

func newTestEngine() *Engine {
	return New(store.NewMemoryStore(), zerolog.Nop())
}

func submitBuy(t *testing.T, e *Engine, qty, price int64) *models.Order {
	t.Helper()
	order, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "RELIANCE", Exchange: "NSE", Currency: "INR"},
		Side:        models.SideBuy,
		Type:        models.TypeLimit,
		Quantity:    decimal.NewFromInt(qty),
		Price:       decimal.NewFromInt(price),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return order
}

func TestSubmit_CreatesPendingOrder(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)

	if order.Status != models.StatusPending {
		t.Errorf("Status = %s, want PENDING", order.Status)
	}
	if !order.RemainingQuantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("RemainingQuantity = %s, want 100", order.RemainingQuantity)
	}
	if !order.ExecutedQuantity.IsZero() {
		t.Errorf("ExecutedQuantity = %s, want 0", order.ExecutedQuantity)
	}
	if !order.IsActive {
		t.Error("new order should be active")
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("TotalAmount = %s, want 5000", order.TotalAmount)
	}
}

func TestSubmit_NormalizesInstrument(t *testing.T) {
	e := newTestEngine()
	order, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: " reliance ", Exchange: "nse", Currency: "inr"},
		Side:        models.SideBuy,
		Type:        models.TypeMarket,
		Quantity:    decimal.NewFromInt(1),
		Price:       decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if order.Instrument.Symbol != "RELIANCE" {
		t.Errorf("Symbol = %q, want RELIANCE", order.Instrument.Symbol)
	}
	if order.Instrument.Exchange != "NSE" || order.Instrument.Currency != "INR" {
		t.Errorf("Exchange/Currency = %q/%q, want NSE/INR", order.Instrument.Exchange, order.Instrument.Currency)
	}
}

func TestSubmit_InvalidRequestPersistedAsRejected(t *testing.T) {
	e := newTestEngine()
	order, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "RELIANCE"},
		Side:        models.SideBuy,
		Type:        models.TypeLimit,
		Quantity:    decimal.NewFromInt(-5),
		Price:       decimal.NewFromInt(50),
	})
	if err == nil {
		t.Fatal("Submit accepted a negative quantity")
	}
	if order.Status != models.StatusRejected {
		t.Errorf("Status = %s, want REJECTED", order.Status)
	}
	if order.IsActive {
		t.Error("rejected order should be inactive")
	}

	stored, getErr := e.GetOrder(context.Background(), order.ID)
	if getErr != nil {
		t.Fatalf("rejected order not persisted: %v", getErr)
	}
	if stored.Status != models.StatusRejected {
		t.Errorf("stored Status = %s, want REJECTED", stored.Status)
	}
}

func TestAppendFill_PartialThenComplete(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	updated, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(49),
		Quantity: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("first fill failed: %v", err)
	}
	if updated.Status != models.StatusPartiallyFilled {
		t.Errorf("Status = %s, want PARTIALLY_FILLED", updated.Status)
	}
	if !updated.RemainingQuantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("RemainingQuantity = %s, want 40", updated.RemainingQuantity)
	}
	if !updated.AverageExecutionPrice.Equal(decimal.NewFromInt(49)) {
		t.Errorf("AverageExecutionPrice = %s, want 49", updated.AverageExecutionPrice)
	}

	updated, err = e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(51),
		Quantity: decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("second fill failed: %v", err)
	}
	if updated.Status != models.StatusFilled {
		t.Errorf("Status = %s, want FILLED", updated.Status)
	}
	if !updated.RemainingQuantity.IsZero() {
		t.Errorf("RemainingQuantity = %s, want 0", updated.RemainingQuantity)
	}
	// VWAP: (60*49 + 40*51) / 100 = 49.8, exactly.
	if !updated.AverageExecutionPrice.Equal(decimal.NewFromFloat(49.8)) {
		t.Errorf("AverageExecutionPrice = %s, want 49.8", updated.AverageExecutionPrice)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(4980)) {
		t.Errorf("TotalAmount = %s, want 4980", updated.TotalAmount)
	}
	if len(updated.Executions) != 2 {
		t.Errorf("Executions = %d, want 2", len(updated.Executions))
	}
}

func TestAppendFill_ExactFillBoundary(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)

	updated, err := e.AppendFill(context.Background(), order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("exact fill failed: %v", err)
	}
	if updated.Status != models.StatusFilled {
		t.Errorf("Status = %s, want FILLED", updated.Status)
	}
}

func TestAppendFill_OverfillRejectedAndOrderUnchanged(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(60),
	}); err != nil {
		t.Fatalf("first fill failed: %v", err)
	}

	_, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(41),
	})
	if !errors.Is(err, errors.ErrOverfill) {
		t.Fatalf("error = %v, want ErrOverfill", err)
	}
	var ofErr *errors.OverfillError
	if !errors.As(err, &ofErr) {
		t.Fatalf("error is not OverfillError: %v", err)
	}

	stored, _ := e.GetOrder(ctx, order.ID)
	if !stored.ExecutedQuantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("ExecutedQuantity = %s, want 60 (rejected fill must not mutate)", stored.ExecutedQuantity)
	}
	if len(stored.Executions) != 1 {
		t.Errorf("Executions = %d, want 1", len(stored.Executions))
	}
	if stored.Status != models.StatusPartiallyFilled {
		t.Errorf("Status = %s, want PARTIALLY_FILLED", stored.Status)
	}
}

func TestAppendFill_DuplicateExecutionID(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	fill := Fill{
		ExecutionID: "exec-1",
		Price:       decimal.NewFromInt(50),
		Quantity:    decimal.NewFromInt(10),
	}
	if _, err := e.AppendFill(ctx, order.ID, fill); err != nil {
		t.Fatalf("first fill failed: %v", err)
	}
	if _, err := e.AppendFill(ctx, order.ID, fill); !errors.Is(err, errors.ErrDuplicateExecution) {
		t.Errorf("error = %v, want ErrDuplicateExecution", err)
	}
}

func TestAppendFill_NonPositivePriceOrQuantity(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.Zero,
		Quantity: decimal.NewFromInt(10),
	}); err == nil {
		t.Error("zero price accepted")
	}
	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.Zero,
	}); err == nil {
		t.Error("zero quantity accepted")
	}
}

func TestAppendFill_TerminalOrderRejected(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	if _, err := e.Cancel(ctx, order.ID, "changed my mind"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	_, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(10),
	})
	if !errors.Is(err, errors.ErrOrderTerminal) {
		t.Fatalf("error = %v, want ErrOrderTerminal", err)
	}
	var termErr *errors.OrderTerminalError
	if !errors.As(err, &termErr) {
		t.Fatalf("error is not OrderTerminalError: %v", err)
	}
	if termErr.Status != string(models.StatusCancelled) {
		t.Errorf("Status = %q, want CANCELLED", termErr.Status)
	}
}

func TestAppendFill_PastDeadlineRejectedBeforeSweep(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	deadline := base.Add(time.Minute)
	order, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "RELIANCE"},
		Side:        models.SideBuy,
		Type:        models.TypeLimit,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(50),
		ValidTill:   &deadline,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The deadline passes with no sweep having run; the order is still
	// stored as PENDING but must reject the late fill anyway.
	e.now = func() time.Time { return deadline.Add(time.Hour) }

	_, err = e.AppendFill(context.Background(), order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(10),
	})
	if !errors.Is(err, errors.ErrOrderTerminal) {
		t.Fatalf("error = %v, want ErrOrderTerminal", err)
	}
	var termErr *errors.OrderTerminalError
	if !errors.As(err, &termErr) {
		t.Fatalf("error is not OrderTerminalError: %v", err)
	}
	if termErr.Status != string(models.StatusExpired) {
		t.Errorf("Status = %q, want EXPIRED", termErr.Status)
	}

	stored, _ := e.GetOrder(context.Background(), order.ID)
	if stored.Status != models.StatusPending {
		t.Errorf("stored Status = %s, want PENDING (only the sweeper flips to EXPIRED)", stored.Status)
	}
	if !stored.ExecutedQuantity.IsZero() || len(stored.Executions) != 0 {
		t.Errorf("rejected fill mutated the order: executed=%s executions=%d",
			stored.ExecutedQuantity, len(stored.Executions))
	}

	// A fill one second before the deadline is still accepted.
	e.now = func() time.Time { return deadline.Add(-time.Second) }
	updated, err := e.AppendFill(context.Background(), order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("fill before deadline failed: %v", err)
	}
	if updated.Status != models.StatusFilled {
		t.Errorf("Status = %s, want FILLED", updated.Status)
	}
}

func TestCancel_PartiallyFilledIsCancellable(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()

	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(30),
	}); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	cancelled, err := e.Cancel(ctx, order.ID, "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.IsActive {
		t.Error("cancelled order should be inactive")
	}
	// Accumulated executions survive cancellation.
	if !cancelled.ExecutedQuantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("ExecutedQuantity = %s, want 30", cancelled.ExecutedQuantity)
	}
}

func TestCancel_TerminalOrderNotCancellable(t *testing.T) {
	e := newTestEngine()
	order := submitBuy(t, e, 10, 50)
	ctx := context.Background()

	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	_, err := e.Cancel(ctx, order.ID, "")
	if !errors.Is(err, errors.ErrNotCancellable) {
		t.Fatalf("error = %v, want ErrNotCancellable", err)
	}
	var ncErr *errors.NotCancellableError
	if !errors.As(err, &ncErr) {
		t.Fatalf("error is not NotCancellableError: %v", err)
	}
	if ncErr.Reason != "terminal status" {
		t.Errorf("Reason = %q, want terminal status", ncErr.Reason)
	}
}

func TestCancel_ValidTillBoundary(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	deadline := base.Add(time.Second)
	order, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "TCS"},
		Side:        models.SideBuy,
		Type:        models.TypeLimit,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
		ValidTill:   &deadline,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// One second before the deadline: cancellable.
	if _, err := e.Cancel(context.Background(), order.ID, ""); err != nil {
		t.Fatalf("cancel before deadline failed: %v", err)
	}

	// Fresh order, clock moved past the deadline: not cancellable.
	order2, err := e.Submit(context.Background(), SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "TCS"},
		Side:        models.SideBuy,
		Type:        models.TypeLimit,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
		ValidTill:   &deadline,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	e.now = func() time.Time { return deadline.Add(time.Second) }

	_, err = e.Cancel(context.Background(), order2.ID, "")
	if !errors.Is(err, errors.ErrNotCancellable) {
		t.Fatalf("error = %v, want ErrNotCancellable", err)
	}
	var ncErr *errors.NotCancellableError
	if !errors.As(err, &ncErr) {
		t.Fatalf("error is not NotCancellableError: %v", err)
	}
	if ncErr.Reason != "validity deadline has passed" {
		t.Errorf("Reason = %q, want validity deadline has passed", ncErr.Reason)
	}
}

func TestEvaluatePerformance_FilledBuy(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	order := submitBuy(t, e, 100, 50)
	ctx := context.Background()
	if _, err := e.AppendFill(ctx, order.ID, Fill{
		Price:    decimal.NewFromInt(50),
		Quantity: decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	e.now = func() time.Time { return base.AddDate(0, 0, 10) }
	snapshot, err := e.EvaluatePerformance(ctx, order.ID, decimal.NewFromInt(55))
	if err != nil {
		t.Fatalf("EvaluatePerformance failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("snapshot is nil for a filled buy")
	}
	if !snapshot.UnrealizedPnL.Equal(decimal.NewFromInt(500)) {
		t.Errorf("UnrealizedPnL = %s, want 500", snapshot.UnrealizedPnL)
	}
	if !snapshot.ReturnPercent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ReturnPercent = %s, want 10", snapshot.ReturnPercent)
	}
	if snapshot.HoldingPeriodDays != 10 {
		t.Errorf("HoldingPeriodDays = %d, want 10", snapshot.HoldingPeriodDays)
	}

	stored, _ := e.GetOrder(ctx, order.ID)
	if stored.Performance == nil {
		t.Error("snapshot not persisted on the order")
	}
}

func TestEvaluatePerformance_NotApplicable(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// Pending buy: no snapshot.
	pending := submitBuy(t, e, 100, 50)
	snapshot, err := e.EvaluatePerformance(ctx, pending.ID, decimal.NewFromInt(55))
	if err != nil || snapshot != nil {
		t.Errorf("pending order: snapshot=%v err=%v, want nil, nil", snapshot, err)
	}

	// Filled sell: no snapshot.
	sell, err := e.Submit(ctx, SubmitRequest{
		UserID:      "user-1",
		PortfolioID: "portfolio-1",
		Instrument:  models.Instrument{Symbol: "INFY"},
		Side:        models.SideSell,
		Type:        models.TypeMarket,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := e.AppendFill(ctx, sell.ID, Fill{
		Price:    decimal.NewFromInt(100),
		Quantity: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	snapshot, err = e.EvaluatePerformance(ctx, sell.ID, decimal.NewFromInt(110))
	if err != nil || snapshot != nil {
		t.Errorf("filled sell: snapshot=%v err=%v, want nil, nil", snapshot, err)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	e := newTestEngine()
	if _, err := e.GetOrder(context.Background(), "nope"); !errors.Is(err, errors.ErrOrderNotFound) {
		t.Errorf("error = %v, want ErrOrderNotFound", err)
	}
}
