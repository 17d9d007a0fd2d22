package domain

import (
	"context"
	"time"
)

// OrderGateway routes orders to the broker. Cancellation is fire-and-forget:
// its effect becomes visible only through the canceled lifecycle event.
type OrderGateway interface {
	Submit(ctx context.Context, order *Order) error
	Cancel(ctx context.Context, orderID string) error
	OnOrderEvent(callback func(OrderEvent))
}

// MarketFeed delivers bar-close events for subscribed instruments.
type MarketFeed interface {
	Subscribe(symbols []string) error
	OnBarClose(callback func(Bar))
}

// TradeTape serves historical prints, ordered by time.
type TradeTape interface {
	TradesBetween(ctx context.Context, symbol string, from, to time.Time) ([]TapeTrade, error)
}

// TradeRepository persists active trades between restarts and records
// closed-trade history.
type TradeRepository interface {
	SaveActiveTrade(ctx context.Context, trade *ActiveTrade) error
	DeleteActiveTrade(ctx context.Context, id string) error
	ListActiveTrades(ctx context.Context, strategy string) ([]*ActiveTrade, error)

	SaveClosedTrade(ctx context.Context, trade *ClosedTrade) error
	ListClosedTrades(ctx context.Context, limit int) ([]*ClosedTrade, error)
}
