package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"tradeledger/internal/errors"
	"tradeledger/internal/models"
)

// SQLiteStore implements OrderStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based order store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Orders table: one row per order aggregate
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		portfolio_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT,
		exchange TEXT,
		currency TEXT,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		requested_quantity TEXT NOT NULL,
		requested_price TEXT NOT NULL,
		stop_price TEXT,
		limit_price TEXT,
		valid_till DATETIME,
		total_amount TEXT NOT NULL,
		brokerage TEXT NOT NULL,
		exchange_fee TEXT NOT NULL,
		clearing_fee TEXT NOT NULL,
		regulatory_fee TEXT NOT NULL,
		tax TEXT NOT NULL,
		stamp_duty TEXT NOT NULL,
		transaction_charge TEXT NOT NULL,
		total_fees TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		executed_quantity TEXT NOT NULL,
		remaining_quantity TEXT NOT NULL,
		average_execution_price TEXT NOT NULL,
		parent_order_id TEXT,
		child_order_ids TEXT,
		source TEXT,
		tags TEXT,
		notes TEXT,
		unrealized_pnl TEXT,
		realized_pnl TEXT,
		return_percent TEXT,
		holding_period_days INTEGER,
		evaluated_at DATETIME,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_simulated INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Executions table: append-only fill history keyed by execution id
	CREATE TABLE IF NOT EXISTS executions (
		execution_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		executed_at DATETIME NOT NULL,
		executed_price TEXT NOT NULL,
		executed_quantity TEXT NOT NULL,
		remaining_quantity TEXT NOT NULL,
		market_price TEXT,
		slippage TEXT,
		liquidity TEXT NOT NULL DEFAULT 'UNKNOWN',
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		UNIQUE(order_id, execution_id),
		FOREIGN KEY (order_id) REFERENCES orders(id)
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_portfolio ON orders(portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
	CREATE INDEX IF NOT EXISTS idx_orders_valid_till ON orders(valid_till);
	CREATE INDEX IF NOT EXISTS idx_executions_order ON executions(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const orderColumns = `id, user_id, portfolio_id, symbol, name, exchange, currency,
	side, order_type, requested_quantity, requested_price, stop_price, limit_price, valid_till,
	total_amount, brokerage, exchange_fee, clearing_fee, regulatory_fee, tax, stamp_duty,
	transaction_charge, total_fees, net_amount, status, executed_quantity, remaining_quantity,
	average_execution_price, parent_order_id, child_order_ids, source, tags, notes,
	unrealized_pnl, realized_pnl, return_percent, holding_period_days, evaluated_at,
	is_active, is_simulated, created_at, updated_at`

func orderArgs(o *models.Order) []interface{} {
	childIDs, _ := json.Marshal(o.ChildOrderIDs)
	tags, _ := json.Marshal(o.Tags)

	var validTill interface{}
	if o.ValidTill != nil {
		validTill = o.ValidTill.UTC()
	}

	var unrealized, realized, returnPct interface{}
	var holdingDays interface{}
	var evaluatedAt interface{}
	if o.Performance != nil {
		unrealized = o.Performance.UnrealizedPnL.String()
		realized = o.Performance.RealizedPnL.String()
		returnPct = o.Performance.ReturnPercent.String()
		holdingDays = o.Performance.HoldingPeriodDays
		evaluatedAt = o.Performance.EvaluatedAt.UTC()
	}

	return []interface{}{
		o.ID, o.UserID, o.PortfolioID, o.Instrument.Symbol, o.Instrument.Name,
		o.Instrument.Exchange, o.Instrument.Currency,
		string(o.Side), string(o.Type), o.RequestedQuantity.String(), o.RequestedPrice.String(),
		o.StopPrice.String(), o.LimitPrice.String(), validTill,
		o.TotalAmount.String(), o.Fees.Brokerage.String(), o.Fees.ExchangeFee.String(),
		o.Fees.ClearingFee.String(), o.Fees.RegulatoryFee.String(), o.Fees.Tax.String(),
		o.Fees.StampDuty.String(), o.Fees.TransactionCharge.String(), o.Fees.TotalFees.String(),
		o.NetAmount.String(), string(o.Status), o.ExecutedQuantity.String(),
		o.RemainingQuantity.String(), o.AverageExecutionPrice.String(),
		o.ParentOrderID, string(childIDs), string(o.Source), string(tags), o.Notes,
		unrealized, realized, returnPct, holdingDays, evaluatedAt,
		boolToInt(o.IsActive), boolToInt(o.IsSimulated), o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	}
}

// SaveOrder inserts a new order and any executions it already carries.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (`+placeholders+`)`,
		orderArgs(order)...)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, exec := range order.Executions {
		if err := insertExecution(ctx, tx, order.ID, exec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateOrder rewrites the order's scalar and derived fields.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	return s.updateOrderTx(ctx, s.db, order)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) updateOrderTx(ctx context.Context, db execer, order *models.Order) error {
	args := orderArgs(order)
	// Shift the id to the WHERE clause position.
	args = append(args[1:], order.ID)

	res, err := db.ExecContext(ctx, `
		UPDATE orders SET
			user_id = ?, portfolio_id = ?, symbol = ?, name = ?, exchange = ?, currency = ?,
			side = ?, order_type = ?, requested_quantity = ?, requested_price = ?,
			stop_price = ?, limit_price = ?, valid_till = ?,
			total_amount = ?, brokerage = ?, exchange_fee = ?, clearing_fee = ?,
			regulatory_fee = ?, tax = ?, stamp_duty = ?, transaction_charge = ?,
			total_fees = ?, net_amount = ?, status = ?, executed_quantity = ?,
			remaining_quantity = ?, average_execution_price = ?, parent_order_id = ?,
			child_order_ids = ?, source = ?, tags = ?, notes = ?,
			unrealized_pnl = ?, realized_pnl = ?, return_percent = ?,
			holding_period_days = ?, evaluated_at = ?,
			is_active = ?, is_simulated = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return errors.ErrOrderNotFound
	}
	return nil
}

// AppendExecution atomically inserts one execution row and rewrites the
// order's derived fields.
func (s *SQLiteStore) AppendExecution(ctx context.Context, order *models.Order, exec models.Execution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertExecution(ctx, tx, order.ID, exec); err != nil {
		return err
	}
	if err := s.updateOrderTx(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertExecution(ctx context.Context, db execer, orderID string, exec models.Execution) error {
	var marketPrice, slippage interface{}
	if exec.MarketPrice != nil {
		marketPrice = exec.MarketPrice.String()
	}
	if exec.Slippage != nil {
		slippage = exec.Slippage.String()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO executions (execution_id, order_id, executed_at, executed_price,
			executed_quantity, remaining_quantity, market_price, slippage, liquidity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, exec.ExecutionID, orderID, exec.ExecutedAt.UTC(), exec.ExecutedPrice.String(),
		exec.ExecutedQuantity.String(), exec.RemainingQuantity.String(),
		marketPrice, slippage, string(exec.Liquidity))
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

// GetOrder returns the order with the given id including its execution
// history, or ErrOrderNotFound.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	execs, err := s.getExecutions(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Executions = execs
	return order, nil
}

func (s *SQLiteStore) getExecutions(ctx context.Context, orderID string) ([]models.Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, executed_at, executed_price, executed_quantity,
			remaining_quantity, market_price, slippage, liquidity
		FROM executions WHERE order_id = ? ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var execs []models.Execution
	for rows.Next() {
		var e models.Execution
		var price, qty, remaining string
		var marketPrice, slippage sql.NullString
		var liquidity string
		if err := rows.Scan(&e.ExecutionID, &e.ExecutedAt, &price, &qty, &remaining,
			&marketPrice, &slippage, &liquidity); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		e.ExecutedPrice = mustDecimal(price)
		e.ExecutedQuantity = mustDecimal(qty)
		e.RemainingQuantity = mustDecimal(remaining)
		if marketPrice.Valid {
			d := mustDecimal(marketPrice.String)
			e.MarketPrice = &d
		}
		if slippage.Valid {
			d := mustDecimal(slippage.String)
			e.Slippage = &d
		}
		e.Liquidity = models.Liquidity(liquidity)
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// ListOrders returns orders matching the filter, newest first. Execution
// histories are loaded for every returned order.
func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.PortfolioID != "" {
		query += " AND portfolio_id = ?"
		args = append(args, filter.PortfolioID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.PendingOnly {
		query += " AND status IN ('PENDING', 'PARTIALLY_FILLED')"
	}
	if filter.TerminalOnly {
		query += " AND status IN ('FILLED', 'CANCELLED', 'REJECTED', 'EXPIRED')"
	}
	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	if !filter.UpdatedUntil.IsZero() {
		query += " AND updated_at <= ?"
		args = append(args, filter.UpdatedUntil.UTC())
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		execs, err := s.getExecutions(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Executions = execs
	}
	return orders, nil
}

// DeleteOrder physically removes an order and its executions.
func (s *SQLiteStore) DeleteOrder(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM executions WHERE order_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete executions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var side, orderType, status, source string
	var reqQty, reqPrice, stopPrice, limitPrice string
	var totalAmount, brokerage, exchangeFee, clearingFee, regulatoryFee, tax, stampDuty, txnCharge, totalFees, netAmount string
	var execQty, remQty, avgPrice string
	var validTill, evaluatedAt sql.NullTime
	var childIDsJSON, tagsJSON sql.NullString
	var parentID, notes sql.NullString
	var unrealized, realized, returnPct sql.NullString
	var holdingDays sql.NullInt64
	var isActive, isSimulated int

	err := row.Scan(&o.ID, &o.UserID, &o.PortfolioID, &o.Instrument.Symbol, &o.Instrument.Name,
		&o.Instrument.Exchange, &o.Instrument.Currency,
		&side, &orderType, &reqQty, &reqPrice, &stopPrice, &limitPrice, &validTill,
		&totalAmount, &brokerage, &exchangeFee, &clearingFee, &regulatoryFee, &tax,
		&stampDuty, &txnCharge, &totalFees, &netAmount, &status, &execQty, &remQty,
		&avgPrice, &parentID, &childIDsJSON, &source, &tagsJSON, &notes,
		&unrealized, &realized, &returnPct, &holdingDays, &evaluatedAt,
		&isActive, &isSimulated, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Side = models.OrderSide(side)
	o.Type = models.OrderType(orderType)
	o.Status = models.OrderStatus(status)
	o.Source = models.OrderSource(source)
	o.RequestedQuantity = mustDecimal(reqQty)
	o.RequestedPrice = mustDecimal(reqPrice)
	o.StopPrice = mustDecimal(stopPrice)
	o.LimitPrice = mustDecimal(limitPrice)
	o.TotalAmount = mustDecimal(totalAmount)
	o.Fees = models.FeeBreakdown{
		Brokerage:         mustDecimal(brokerage),
		ExchangeFee:       mustDecimal(exchangeFee),
		ClearingFee:       mustDecimal(clearingFee),
		RegulatoryFee:     mustDecimal(regulatoryFee),
		Tax:               mustDecimal(tax),
		StampDuty:         mustDecimal(stampDuty),
		TransactionCharge: mustDecimal(txnCharge),
		TotalFees:         mustDecimal(totalFees),
	}
	o.NetAmount = mustDecimal(netAmount)
	o.ExecutedQuantity = mustDecimal(execQty)
	o.RemainingQuantity = mustDecimal(remQty)
	o.AverageExecutionPrice = mustDecimal(avgPrice)
	if validTill.Valid {
		t := validTill.Time
		o.ValidTill = &t
	}
	if parentID.Valid {
		o.ParentOrderID = parentID.String
	}
	if childIDsJSON.Valid {
		json.Unmarshal([]byte(childIDsJSON.String), &o.ChildOrderIDs)
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &o.Tags)
	}
	if notes.Valid {
		o.Notes = notes.String
	}
	if unrealized.Valid {
		o.Performance = &models.PerformanceSnapshot{
			UnrealizedPnL: mustDecimal(unrealized.String),
			RealizedPnL:   mustDecimal(realized.String),
			ReturnPercent: mustDecimal(returnPct.String),
		}
		if holdingDays.Valid {
			o.Performance.HoldingPeriodDays = int(holdingDays.Int64)
		}
		if evaluatedAt.Valid {
			o.Performance.EvaluatedAt = evaluatedAt.Time
		}
	}
	o.IsActive = isActive == 1
	o.IsSimulated = isSimulated == 1
	return &o, nil
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
