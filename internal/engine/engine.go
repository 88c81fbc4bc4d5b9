// Package engine implements the order lifecycle: submission, fill
// accumulation, cancellation and on-demand performance evaluation.
//
// The engine is a set of near-pure functions over a single Order aggregate.
// It spawns no internal concurrency; the only locking is the per-order
// serialization the lock table provides for mutations.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradeledger/internal/errors"
	"tradeledger/internal/fees"
	"tradeledger/internal/models"
	"tradeledger/internal/store"
)

// Engine coordinates order mutations against a store. All mutations of the
// same order are serialized through the shared lock table.
type Engine struct {
	store  store.OrderStore
	logger zerolog.Logger
	locks  *LockTable
	now    func() time.Time
}

// New creates an engine over the given store.
func New(s store.OrderStore, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  s,
		logger: logger,
		locks:  NewLockTable(),
		now:    time.Now,
	}
}

// Locks returns the engine's lock table. The expiration sweeper shares it
// so a fill racing a sweep of the same order resolves deterministically.
func (e *Engine) Locks() *LockTable {
	return e.locks
}

// Store returns the backing order store.
func (e *Engine) Store() store.OrderStore {
	return e.store
}

// SubmitRequest carries everything needed to create an order.
type SubmitRequest struct {
	UserID      string
	PortfolioID string
	Instrument  models.Instrument
	Side        models.OrderSide
	Type        models.OrderType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	StopPrice   decimal.Decimal
	LimitPrice  decimal.Decimal
	ValidTill   *time.Time
	ParentID    string
	Source      models.OrderSource
	Tags        []string
	Notes       string
	Simulated   bool
}

func (r SubmitRequest) validate() error {
	if r.UserID == "" {
		return errors.NewValidationError("user_id", r.UserID, "required")
	}
	if r.PortfolioID == "" {
		return errors.NewValidationError("portfolio_id", r.PortfolioID, "required")
	}
	if r.Instrument.Symbol == "" {
		return errors.NewValidationError("symbol", r.Instrument.Symbol, "required")
	}
	if !r.Side.Valid() {
		return errors.NewValidationError("side", string(r.Side), "unknown order side")
	}
	if !r.Type.Valid() {
		return errors.NewValidationError("type", string(r.Type), "unknown order type")
	}
	if !r.Quantity.IsPositive() {
		return errors.NewValidationError("quantity", r.Quantity.String(), "must be positive")
	}
	if r.Price.IsNegative() {
		return errors.NewValidationError("price", r.Price.String(), "must not be negative")
	}
	return nil
}

// Submit creates a new order in PENDING status. A request that fails
// business validation but is structurally complete is persisted as a
// terminal REJECTED record for the audit trail, and the validation error is
// returned alongside it.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*models.Order, error) {
	now := e.now()
	order := &models.Order{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		Instrument: models.Instrument{
			Symbol:   strings.ToUpper(strings.TrimSpace(req.Instrument.Symbol)),
			Name:     strings.ToUpper(strings.TrimSpace(req.Instrument.Name)),
			Exchange: strings.ToUpper(strings.TrimSpace(req.Instrument.Exchange)),
			Currency: strings.ToUpper(strings.TrimSpace(req.Instrument.Currency)),
		},
		Side:              req.Side,
		Type:              req.Type,
		RequestedQuantity: req.Quantity,
		RequestedPrice:    req.Price,
		StopPrice:         req.StopPrice,
		LimitPrice:        req.LimitPrice,
		ValidTill:         req.ValidTill,
		Status:            models.StatusPending,
		RemainingQuantity: req.Quantity,
		ParentOrderID:     req.ParentID,
		Source:            req.Source,
		Tags:              req.Tags,
		Notes:             req.Notes,
		IsActive:          true,
		IsSimulated:       req.Simulated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if order.Source == "" {
		order.Source = models.SourceManual
	}

	if err := req.validate(); err != nil {
		order.Status = models.StatusRejected
		order.IsActive = false
		order.AppendNote("rejected at submission: " + err.Error())
		if order.UserID != "" && order.PortfolioID != "" {
			if saveErr := e.store.SaveOrder(ctx, order); saveErr != nil {
				return nil, errors.Wrap(saveErr, "persisting rejected order")
			}
		}
		e.logger.Warn().Str("order_id", order.ID).Err(err).Msg("Order rejected at submission")
		return order, err
	}

	if err := fees.Recompute(order); err != nil {
		return nil, err
	}
	if err := e.store.SaveOrder(ctx, order); err != nil {
		return nil, errors.Wrap(err, "saving order")
	}

	e.logger.Info().
		Str("order_id", order.ID).
		Str("symbol", order.Instrument.Symbol).
		Str("side", string(order.Side)).
		Str("type", string(order.Type)).
		Str("quantity", order.RequestedQuantity.String()).
		Msg("Order submitted")
	return order, nil
}

// AppendFill appends one execution to an order and refreshes every derived
// field. A rejected fill leaves the stored order untouched.
func (e *Engine) AppendFill(ctx context.Context, orderID string, fill Fill) (*models.Order, error) {
	mu := e.locks.Acquire(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if err := validateFill(order, fill, now); err != nil {
		return nil, err
	}

	updated := order.Clone()
	exec := applyFill(updated, fill, now)
	if err := fees.Recompute(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now

	if err := e.store.AppendExecution(ctx, updated, exec); err != nil {
		return nil, errors.Wrap(err, "persisting fill")
	}

	e.logger.Info().
		Str("order_id", updated.ID).
		Str("execution_id", exec.ExecutionID).
		Str("price", exec.ExecutedPrice.String()).
		Str("quantity", exec.ExecutedQuantity.String()).
		Str("status", string(updated.Status)).
		Msg("Fill appended")
	return updated, nil
}

// Cancel moves a cancellable order to CANCELLED and deactivates it. The
// optional reason is appended as an audit note.
func (e *Engine) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	mu := e.locks.Acquire(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if !order.IsCancellable(now) {
		why := "terminal status"
		if order.IsPending() {
			why = "validity deadline has passed"
		}
		return nil, errors.NewNotCancellableError(order.ID, string(order.Status), why)
	}

	updated := order.Clone()
	updated.Status = models.StatusCancelled
	updated.IsActive = false
	note := "cancelled"
	if reason != "" {
		note = "cancelled: " + reason
	}
	updated.AppendNote(note)
	updated.UpdatedAt = now

	if err := e.store.UpdateOrder(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "persisting cancel")
	}

	e.logger.Info().Str("order_id", updated.ID).Str("reason", reason).Msg("Order cancelled")
	return updated, nil
}

// EvaluatePerformance computes and caches a performance snapshot for a
// completed buy order at the given market price. It returns nil, nil for
// orders the evaluator does not apply to.
func (e *Engine) EvaluatePerformance(ctx context.Context, orderID string, currentPrice decimal.Decimal) (*models.PerformanceSnapshot, error) {
	mu := e.locks.Acquire(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	snapshot := Evaluate(order, currentPrice, e.now())
	if snapshot == nil {
		return nil, nil
	}

	updated := order.Clone()
	updated.Performance = snapshot
	updated.UpdatedAt = e.now()
	if err := e.store.UpdateOrder(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "persisting performance snapshot")
	}

	e.logger.Debug().
		Str("order_id", orderID).
		Str("unrealized_pnl", snapshot.UnrealizedPnL.String()).
		Msg("Performance evaluated")
	return snapshot, nil
}

// GetOrder returns an order by id.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return e.store.GetOrder(ctx, orderID)
}
