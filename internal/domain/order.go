package domain

import "time"

type OrderKind string

const (
	OrderKindEntry  OrderKind = "entry"
	OrderKindProfit OrderKind = "profit"
	OrderKindStop   OrderKind = "stop"
	OrderKindExit   OrderKind = "exit" // time-window forced exit, market-equivalent
)

type OrderSide string

const (
	OrderBuy  OrderSide = "Buy"
	OrderSell OrderSide = "Sell"
)

type OrderState string

const (
	OrderStatePending  OrderState = "PENDING"
	OrderStateActive   OrderState = "ACTIVE"
	OrderStateFilled   OrderState = "FILLED"
	OrderStateCanceled OrderState = "CANCELED"
	OrderStateRejected OrderState = "REJECTED"
	OrderStateExpired  OrderState = "EXPIRED"
)

// Terminal reports whether the order can no longer trade.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected, OrderStateExpired:
		return true
	}
	return false
}

// Tier identifies one of the three identical-price entry legs per breakout.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Order is a pending order tracked by the engine. It is transient: once the
// state turns terminal the engine drops it from the pending set.
type Order struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	Kind         OrderKind  `json:"kind"`
	Tier         Tier       `json:"tier,omitempty"`
	Side         OrderSide  `json:"side"`
	Price        float64    `json:"price"` // 0 means market-equivalent
	TriggerPrice float64    `json:"trigger_price,omitempty"`
	Volume       float64    `json:"volume"`
	Expiry       time.Time  `json:"expiry"`
	State        OrderState `json:"state"`
	TradeID      string     `json:"trade_id,omitempty"` // linked active trade, empty for entries
	Comment      string     `json:"comment"`
}

type OrderEventKind string

const (
	OrderEventRegistered      OrderEventKind = "registered"
	OrderEventPartiallyFilled OrderEventKind = "partial"
	OrderEventFilled          OrderEventKind = "filled"
	OrderEventCanceled        OrderEventKind = "canceled"
	OrderEventRejected        OrderEventKind = "rejected"
	OrderEventExpired         OrderEventKind = "expired"
)

// OrderEvent is a lifecycle event delivered by the order gateway.
type OrderEvent struct {
	Kind    OrderEventKind
	OrderID string
	Price   float64
	Volume  float64
	Time    time.Time
}

// Bar is a bar-close event from the market feed.
type Bar struct {
	Symbol string
	Time   time.Time
	Close  float64
}

// TapeTrade is one print from the trade tape.
type TapeTrade struct {
	Price float64
	Time  time.Time
}
