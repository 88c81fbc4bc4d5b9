// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradeledger/internal/models"
)

// OrderStore defines the interface for order persistence. The execution
// history is an append-only sub-collection keyed by execution id; uniqueness
// is enforced at write time.
type OrderStore interface {
	// SaveOrder inserts a new order together with any executions it
	// already carries.
	SaveOrder(ctx context.Context, order *models.Order) error

	// GetOrder returns the order with the given id, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// UpdateOrder rewrites the order's scalar and derived fields. It does
	// not touch the execution history.
	UpdateOrder(ctx context.Context, order *models.Order) error

	// AppendExecution atomically inserts one execution row and rewrites
	// the order's derived fields. The order passed in already carries the
	// new execution and recomputed derivations.
	AppendExecution(ctx context.Context, order *models.Order, exec models.Execution) error

	// ListOrders returns orders matching the filter, newest first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)

	// DeleteOrder physically removes an order and its executions. Used
	// only by the retention compaction pass.
	DeleteOrder(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// OrderFilter represents filters for querying orders.
type OrderFilter struct {
	UserID       string
	PortfolioID  string
	Symbol       string
	Status       models.OrderStatus
	PendingOnly  bool // status PENDING or PARTIALLY_FILLED
	TerminalOnly bool
	ActiveOnly   bool
	Since        time.Time // created_at >= Since
	UpdatedUntil time.Time // updated_at <= UpdatedUntil
	Limit        int
}

// Matches reports whether an order satisfies the filter. Shared by the
// memory store and usable as a post-query guard.
func (f OrderFilter) Matches(o *models.Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.PortfolioID != "" && o.PortfolioID != f.PortfolioID {
		return false
	}
	if f.Symbol != "" && o.Instrument.Symbol != f.Symbol {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PendingOnly && !o.IsPending() {
		return false
	}
	if f.TerminalOnly && !o.IsTerminal() {
		return false
	}
	if f.ActiveOnly && !o.IsActive {
		return false
	}
	if !f.Since.IsZero() && o.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.UpdatedUntil.IsZero() && o.UpdatedAt.After(f.UpdatedUntil) {
		return false
	}
	return true
}
