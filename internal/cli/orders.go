package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradeledger/internal/engine"
	"tradeledger/internal/models"
	"tradeledger/internal/store"
	"tradeledger/pkg/utils"
)

// addOrderCommands adds order lifecycle commands.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSubmitCmd(app))
	rootCmd.AddCommand(newFillCmd(app))
	rootCmd.AddCommand(newCancelCmd(app))
	rootCmd.AddCommand(newOrdersCmd(app))
	rootCmd.AddCommand(newPerfCmd(app))
}

func newSubmitCmd(app *App) *cobra.Command {
	var (
		userID      string
		portfolioID string
		symbol      string
		name        string
		exchange    string
		currency    string
		side        string
		orderType   string
		quantity    string
		price       string
		stopPrice   string
		limitPrice  string
		validTill   string
		parentID    string
		source      string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new order",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", quantity, err)
			}
			px, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}

			req := engine.SubmitRequest{
				UserID:      userID,
				PortfolioID: portfolioID,
				Instrument: models.Instrument{
					Symbol:   symbol,
					Name:     name,
					Exchange: orDefault(exchange, app.Config.Engine.DefaultExchange),
					Currency: orDefault(currency, app.Config.Engine.DefaultCurrency),
				},
				Side:      models.OrderSide(side),
				Type:      models.OrderType(orderType),
				Quantity:  qty,
				Price:     px,
				Source:    models.OrderSource(source),
				Tags:      tags,
				ParentID:  parentID,
				Simulated: app.Config.IsPaperMode(),
			}
			if stopPrice != "" {
				if req.StopPrice, err = decimal.NewFromString(stopPrice); err != nil {
					return fmt.Errorf("invalid stop price %q: %w", stopPrice, err)
				}
			}
			if limitPrice != "" {
				if req.LimitPrice, err = decimal.NewFromString(limitPrice); err != nil {
					return fmt.Errorf("invalid limit price %q: %w", limitPrice, err)
				}
			}
			if validTill != "" {
				t, err := time.Parse(time.RFC3339, validTill)
				if err != nil {
					return fmt.Errorf("invalid valid-till %q: %w", validTill, err)
				}
				req.ValidTill = &t
			}

			order, err := app.Engine.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(order)
			}
			output.Success("Order %s submitted (%s %s %s @ %s)", order.ID,
				order.Side, utils.FormatQuantity(order.RequestedQuantity),
				order.Instrument.Symbol, utils.FormatAmount(order.RequestedPrice, order.Instrument.Currency))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id")
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "owning portfolio id")
	cmd.Flags().StringVar(&symbol, "symbol", "", "instrument symbol")
	cmd.Flags().StringVar(&name, "name", "", "instrument display name")
	cmd.Flags().StringVar(&exchange, "exchange", "", "exchange")
	cmd.Flags().StringVar(&currency, "currency", "", "currency")
	cmd.Flags().StringVar(&side, "side", "BUY", "order side")
	cmd.Flags().StringVar(&orderType, "type", "MARKET", "order type")
	cmd.Flags().StringVar(&quantity, "quantity", "0", "requested quantity")
	cmd.Flags().StringVar(&price, "price", "0", "requested price")
	cmd.Flags().StringVar(&stopPrice, "stop-price", "", "stop price")
	cmd.Flags().StringVar(&limitPrice, "limit-price", "", "limit price")
	cmd.Flags().StringVar(&validTill, "valid-till", "", "validity deadline (RFC3339)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent order id")
	cmd.Flags().StringVar(&source, "source", "MANUAL", "order source")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "free-form tags")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("portfolio")
	cmd.MarkFlagRequired("symbol")
	return cmd
}

func newFillCmd(app *App) *cobra.Command {
	var (
		price       string
		quantity    string
		executionID string
		marketPrice string
		liquidity   string
	)

	cmd := &cobra.Command{
		Use:   "fill <order-id>",
		Short: "Append an execution fill to an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			px, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", quantity, err)
			}

			fill := engine.Fill{
				ExecutionID: executionID,
				Price:       px,
				Quantity:    qty,
				Liquidity:   models.Liquidity(liquidity),
			}
			if marketPrice != "" {
				mp, err := decimal.NewFromString(marketPrice)
				if err != nil {
					return fmt.Errorf("invalid market price %q: %w", marketPrice, err)
				}
				fill.MarketPrice = &mp
				slippage := px.Sub(mp)
				fill.Slippage = &slippage
			}

			order, err := app.Engine.AppendFill(cmd.Context(), args[0], fill)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(order)
			}
			output.Success("Fill applied: %s executed %s / %s, avg %s, status %s",
				order.ID,
				utils.FormatQuantity(order.ExecutedQuantity),
				utils.FormatQuantity(order.RequestedQuantity),
				utils.FormatAmount(order.AverageExecutionPrice, order.Instrument.Currency),
				order.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&price, "price", "0", "executed price")
	cmd.Flags().StringVar(&quantity, "quantity", "0", "executed quantity")
	cmd.Flags().StringVar(&executionID, "execution-id", "", "execution id (generated when empty)")
	cmd.Flags().StringVar(&marketPrice, "market-price", "", "market price at execution")
	cmd.Flags().StringVar(&liquidity, "liquidity", "UNKNOWN", "liquidity flag (MAKER|TAKER|UNKNOWN)")
	return cmd
}

func newCancelCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			order, err := app.Engine.Cancel(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(order)
			}
			output.Success("Order %s cancelled", order.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func newOrdersCmd(app *App) *cobra.Command {
	var (
		userID      string
		portfolioID string
		symbol      string
		status      string
		pending     bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			orders, err := app.Store.ListOrders(cmd.Context(), store.OrderFilter{
				UserID:      userID,
				PortfolioID: portfolioID,
				Symbol:      symbol,
				Status:      models.OrderStatus(status),
				PendingOnly: pending,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(orders)
			}
			if len(orders) == 0 {
				output.Dim("No orders found")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "SIDE", "TYPE", "QTY", "FILLED", "AVG PRICE", "STATUS")
			for i := range orders {
				o := &orders[i]
				table.AddRow(
					utils.Truncate(o.ID, 12),
					o.Instrument.Symbol,
					string(o.Side),
					string(o.Type),
					utils.FormatQuantity(o.RequestedQuantity),
					utils.FormatQuantity(o.ExecutedQuantity),
					utils.FormatAmount(o.AverageExecutionPrice, ""),
					output.ColoredString(output.StatusColor(string(o.Status)), string(o.Status)),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by user id")
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "filter by portfolio id")
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&pending, "pending", false, "only pending orders")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newPerfCmd(app *App) *cobra.Command {
	var price string

	cmd := &cobra.Command{
		Use:   "perf <order-id>",
		Short: "Evaluate performance of a completed buy order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			px, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}

			snapshot, err := app.Engine.EvaluatePerformance(cmd.Context(), args[0], px)
			if err != nil {
				return err
			}
			if snapshot == nil {
				output.Dim("No performance data: order is not a completed buy")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(snapshot)
			}

			output.Bold("Performance")
			output.Printf("  Unrealized P&L: %s\n",
				output.ColoredString(output.PnLColor(snapshot.UnrealizedPnL), utils.FormatPnL(snapshot.UnrealizedPnL, "")))
			output.Printf("  Return:         %s\n", utils.FormatPercent(snapshot.ReturnPercent))
			output.Printf("  Holding period: %d days\n", snapshot.HoldingPeriodDays)
			return nil
		},
	}

	cmd.Flags().StringVar(&price, "price", "0", "current market price")
	return cmd
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
