package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/errors"
	"tradeledger/internal/models"
)

// Fill is the client-facing shape of one execution event. ExecutionID and
// ExecutedAt default to a fresh uuid and the current time when left empty.
type Fill struct {
	ExecutionID string
	ExecutedAt  time.Time
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	MarketPrice *decimal.Decimal
	Slippage    *decimal.Decimal
	Liquidity   models.Liquidity
}

// validateFill runs the fill preconditions in order. Terminal status is
// checked first so a late fill against an expired or cancelled order reports
// the terminal state rather than a field error. An order past its validity
// deadline is treated as expired even when the sweeper has not flipped it
// yet: a fill racing a sweep of the same order must lose either way.
func validateFill(order *models.Order, fill Fill, now time.Time) error {
	if order.IsTerminal() {
		return errors.NewOrderTerminalError(order.ID, string(order.Status), "append fill")
	}
	if order.IsExpired(now) {
		return errors.NewOrderTerminalError(order.ID, string(models.StatusExpired), "append fill")
	}
	if !fill.Price.IsPositive() {
		return errors.NewValidationError("price", fill.Price.String(), "executed price must be positive")
	}
	if !fill.Quantity.IsPositive() {
		return errors.NewValidationError("quantity", fill.Quantity.String(), "executed quantity must be positive")
	}
	if fill.ExecutionID != "" && order.HasExecution(fill.ExecutionID) {
		return errors.ErrDuplicateExecution
	}
	if order.ExecutedQuantity.Add(fill.Quantity).GreaterThan(order.RequestedQuantity) {
		// Callers clip upstream; the accumulator never silently truncates.
		return errors.NewOverfillError(order.ID, order.RequestedQuantity, order.ExecutedQuantity, fill.Quantity)
	}
	return nil
}

// applyFill appends the fill to the order's execution history and refreshes
// every execution-derived field. The order must be non-terminal and the fill
// validated; applyFill itself cannot fail.
func applyFill(order *models.Order, fill Fill, now time.Time) models.Execution {
	if fill.ExecutionID == "" {
		fill.ExecutionID = uuid.NewString()
	}
	if fill.ExecutedAt.IsZero() {
		fill.ExecutedAt = now
	}
	if fill.Liquidity == "" {
		fill.Liquidity = models.LiquidityUnknown
	}

	exec := models.Execution{
		ExecutionID:       fill.ExecutionID,
		ExecutedAt:        fill.ExecutedAt,
		ExecutedPrice:     fill.Price,
		ExecutedQuantity:  fill.Quantity,
		RemainingQuantity: order.RequestedQuantity.Sub(order.ExecutedQuantity).Sub(fill.Quantity),
		MarketPrice:       fill.MarketPrice,
		Slippage:          fill.Slippage,
		Liquidity:         fill.Liquidity,
	}
	order.Executions = append(order.Executions, exec)

	recomputeFromExecutions(order)
	transitionAfterFill(order)
	return exec
}

// recomputeFromExecutions derives executed/remaining quantity and the
// volume-weighted average execution price from the full fill history. The
// derivations are never stored independently of the history, so they cannot
// drift from it.
func recomputeFromExecutions(order *models.Order) {
	executed := decimal.Zero
	notional := decimal.Zero
	for i := range order.Executions {
		executed = executed.Add(order.Executions[i].ExecutedQuantity)
		notional = notional.Add(order.Executions[i].Notional())
	}
	order.ExecutedQuantity = executed
	order.RemainingQuantity = order.RequestedQuantity.Sub(executed)
	if executed.IsPositive() {
		order.AverageExecutionPrice = notional.Div(executed)
	} else {
		order.AverageExecutionPrice = order.RequestedPrice
	}
}

// transitionAfterFill applies the state machine rule for fill appends:
// nothing remaining moves the order to FILLED, anything executed with some
// remaining moves it to PARTIALLY_FILLED.
func transitionAfterFill(order *models.Order) {
	switch {
	case order.RemainingQuantity.LessThanOrEqual(decimal.Zero):
		order.Status = models.StatusFilled
	case order.ExecutedQuantity.IsPositive():
		order.Status = models.StatusPartiallyFilled
	}
}
