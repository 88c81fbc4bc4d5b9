// Package models provides domain models for the order accounting engine.
package models

// OrderSide represents the intent of an order, including corporate actions.
type OrderSide string

const (
	SideBuy      OrderSide = "BUY"
	SideSell     OrderSide = "SELL"
	SideDividend OrderSide = "DIVIDEND"
	SideSplit    OrderSide = "SPLIT"
	SideMerger   OrderSide = "MERGER"
	SideBonus    OrderSide = "BONUS"
	SideRights   OrderSide = "RIGHTS"
	SideIPO      OrderSide = "IPO"
)

// IsCorporateAction reports whether the side is a corporate action rather
// than a regular buy or sell.
func (s OrderSide) IsCorporateAction() bool {
	switch s {
	case SideBuy, SideSell:
		return false
	}
	return true
}

// Valid reports whether the side is one of the known values.
func (s OrderSide) Valid() bool {
	switch s {
	case SideBuy, SideSell, SideDividend, SideSplit, SideMerger, SideBonus, SideRights, SideIPO:
		return true
	}
	return false
}

// OrderType represents the execution style of an order.
type OrderType string

const (
	TypeMarket    OrderType = "MARKET"
	TypeLimit     OrderType = "LIMIT"
	TypeStopLoss  OrderType = "STOP_LOSS"
	TypeStopLimit OrderType = "STOP_LIMIT"
	TypeBracket   OrderType = "BRACKET"
	TypeCover     OrderType = "COVER"
	TypeIceberg   OrderType = "ICEBERG"
)

// Valid reports whether the order type is one of the known values.
func (t OrderType) Valid() bool {
	switch t {
	case TypeMarket, TypeLimit, TypeStopLoss, TypeStopLimit, TypeBracket, TypeCover, TypeIceberg:
		return true
	}
	return false
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// Terminal reports whether the status accepts no further mutations.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// OrderSource represents where an order originated.
type OrderSource string

const (
	SourceManual        OrderSource = "MANUAL"
	SourceAlgorithmic   OrderSource = "ALGORITHMIC"
	SourceAIRecommended OrderSource = "AI_RECOMMENDED"
	SourceAlert         OrderSource = "ALERT_TRIGGERED"
	SourceRebalancing   OrderSource = "REBALANCING"
	SourceDCA           OrderSource = "DCA"
)

// Liquidity represents the liquidity role of an execution.
type Liquidity string

const (
	LiquidityMaker   Liquidity = "MAKER"
	LiquidityTaker   Liquidity = "TAKER"
	LiquidityUnknown Liquidity = "UNKNOWN"
)
