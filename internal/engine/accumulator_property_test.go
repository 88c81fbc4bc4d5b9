package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"tradeledger/internal/models"
)

func pendingOrder(requested int64, price float64) *models.Order {
	return &models.Order{
		ID:                "ORD-1",
		Status:            models.StatusPending,
		Side:              models.SideBuy,
		RequestedQuantity: decimal.NewFromInt(requested),
		RequestedPrice:    decimal.NewFromFloat(price),
		RemainingQuantity: decimal.NewFromInt(requested),
	}
}

// Property: after any sequence of valid fills, executed + remaining equals
// the requested quantity exactly.
func TestProperty_QuantityConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("executed + remaining == requested after every fill", prop.ForAll(
		func(requested int64, chunks []int64) bool {
			order := pendingOrder(requested, 100)
			now := time.Now()

			for i, chunk := range chunks {
				if chunk <= 0 {
					continue
				}
				fill := Fill{
					ExecutionID: fmt.Sprintf("exec-%d", i),
					Price:       decimal.NewFromInt(100),
					Quantity:    decimal.NewFromInt(chunk),
				}
				if err := validateFill(order, fill, now); err != nil {
					// Overfill or terminal; the order must be untouched
					// by the rejected fill, so conservation still holds.
					break
				}
				applyFill(order, fill, now)

				sum := order.ExecutedQuantity.Add(order.RemainingQuantity)
				if !sum.Equal(order.RequestedQuantity) {
					return false
				}
			}
			return order.ExecutedQuantity.Add(order.RemainingQuantity).Equal(order.RequestedQuantity)
		},
		gen.Int64Range(1, 10000),
		gen.SliceOf(gen.Int64Range(1, 3000)),
	))

	properties.TestingRun(t)
}

// Property: the volume-weighted average price always lies between the
// minimum and maximum fill price.
func TestProperty_VWAPBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	type fillSpec struct {
		Price    float64
		Quantity int64
	}

	fillGen := gopter.CombineGens(
		gen.Float64Range(1, 5000),
		gen.Int64Range(1, 100),
	).Map(func(vals []interface{}) fillSpec {
		return fillSpec{Price: vals[0].(float64), Quantity: vals[1].(int64)}
	})

	properties.Property("VWAP lies within [min fill price, max fill price]", prop.ForAll(
		func(specs []fillSpec) bool {
			if len(specs) == 0 {
				return true
			}
			var requested int64
			for _, s := range specs {
				requested += s.Quantity
			}
			order := pendingOrder(requested, 100)
			now := time.Now()

			min := decimal.NewFromFloat(specs[0].Price)
			max := min
			for i, s := range specs {
				price := decimal.NewFromFloat(s.Price)
				if price.LessThan(min) {
					min = price
				}
				if price.GreaterThan(max) {
					max = price
				}
				fill := Fill{
					ExecutionID: fmt.Sprintf("exec-%d", i),
					Price:       price,
					Quantity:    decimal.NewFromInt(s.Quantity),
				}
				if err := validateFill(order, fill, now); err != nil {
					return false
				}
				applyFill(order, fill, now)
			}

			vwap := order.AverageExecutionPrice
			return vwap.GreaterThanOrEqual(min) && vwap.LessThanOrEqual(max)
		},
		gen.SliceOf(fillGen),
	))

	properties.TestingRun(t)
}

// Property: the status after a fill is exactly determined by the remaining
// quantity, and any fill pushing executed past requested is rejected.
func TestProperty_StatusMatchesRemaining(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("remaining zero means FILLED, otherwise PARTIALLY_FILLED", prop.ForAll(
		func(requested, fillQty int64) bool {
			order := pendingOrder(requested, 50)
			now := time.Now()
			fill := Fill{
				ExecutionID: "exec-1",
				Price:       decimal.NewFromInt(50),
				Quantity:    decimal.NewFromInt(fillQty),
			}

			err := validateFill(order, fill, now)
			if fillQty > requested {
				// Overfill: rejected, order untouched.
				return err != nil &&
					order.Status == models.StatusPending &&
					len(order.Executions) == 0
			}
			if err != nil {
				return false
			}
			applyFill(order, fill, now)

			if fillQty == requested {
				return order.Status == models.StatusFilled
			}
			return order.Status == models.StatusPartiallyFilled
		},
		gen.Int64Range(1, 10000),
		gen.Int64Range(1, 15000),
	))

	properties.TestingRun(t)
}

// Property: appending a fill at price p moves the VWAP toward p. The new
// average lands strictly between the old average and the fill price unless
// they already coincide.
func TestProperty_FillShiftsVWAPTowardFillPrice(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("new VWAP lies between the old VWAP and the fill price", prop.ForAll(
		func(firstPrice, secondPrice float64, firstQty, secondQty int64) bool {
			order := pendingOrder(firstQty+secondQty, 100)
			now := time.Now()

			first := Fill{
				ExecutionID: "exec-1",
				Price:       decimal.NewFromFloat(firstPrice),
				Quantity:    decimal.NewFromInt(firstQty),
			}
			if err := validateFill(order, first, now); err != nil {
				return false
			}
			applyFill(order, first, now)
			oldVWAP := order.AverageExecutionPrice

			second := Fill{
				ExecutionID: "exec-2",
				Price:       decimal.NewFromFloat(secondPrice),
				Quantity:    decimal.NewFromInt(secondQty),
			}
			if err := validateFill(order, second, now); err != nil {
				return false
			}
			applyFill(order, second, now)
			newVWAP := order.AverageExecutionPrice

			p := second.Price
			if p.Equal(oldVWAP) {
				return newVWAP.Equal(oldVWAP)
			}
			if p.GreaterThan(oldVWAP) {
				return newVWAP.GreaterThan(oldVWAP) && newVWAP.LessThanOrEqual(p)
			}
			return newVWAP.LessThan(oldVWAP) && newVWAP.GreaterThanOrEqual(p)
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
		gen.Int64Range(1, 1000),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}

// Property: a single fill at price p makes the VWAP exactly p, regardless
// of the requested price.
func TestProperty_SingleFillVWAPEqualsFillPrice(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("one fill sets VWAP to the fill price", prop.ForAll(
		func(requestedPrice, fillPrice float64, qty int64) bool {
			order := pendingOrder(qty, requestedPrice)
			now := time.Now()
			fill := Fill{
				ExecutionID: "exec-1",
				Price:       decimal.NewFromFloat(fillPrice),
				Quantity:    decimal.NewFromInt(qty),
			}
			if err := validateFill(order, fill, now); err != nil {
				return false
			}
			applyFill(order, fill, now)
			return order.AverageExecutionPrice.Equal(decimal.NewFromFloat(fillPrice))
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(1, 1000),
		gen.Int64Range(1, 10000),
	))

	properties.TestingRun(t)
}
