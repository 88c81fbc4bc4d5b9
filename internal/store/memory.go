package store

import (
	"context"
	"sort"
	"sync"

	"tradeledger/internal/errors"
	"tradeledger/internal/models"
)

// MemoryStore implements OrderStore in memory. Used for tests and paper
// trading sessions that should not touch the on-disk ledger.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*models.Order)}
}

// SaveOrder inserts a new order.
func (m *MemoryStore) SaveOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order.Clone()
	return nil
}

// GetOrder returns a copy of the order with the given id.
func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errors.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// UpdateOrder rewrites a stored order.
func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return errors.ErrOrderNotFound
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

// AppendExecution stores the updated order; execution id uniqueness is
// checked against the stored history.
func (m *MemoryStore) AppendExecution(ctx context.Context, order *models.Order, exec models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return errors.ErrOrderNotFound
	}
	if stored.HasExecution(exec.ExecutionID) {
		return errors.ErrDuplicateExecution
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

// ListOrders returns orders matching the filter, newest first.
func (m *MemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Order
	for _, o := range m.orders {
		if filter.Matches(o) {
			result = append(result, *o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteOrder removes an order.
func (m *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return errors.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
