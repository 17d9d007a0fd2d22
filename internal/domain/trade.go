package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// EntryOrderSide is the order direction that opens a position on this side.
func (s Side) EntryOrderSide() OrderSide {
	if s == SideShort {
		return OrderSell
	}
	return OrderBuy
}

// ExitOrderSide is the order direction that closes a position on this side.
func (s Side) ExitOrderSide() OrderSide {
	if s == SideShort {
		return OrderBuy
	}
	return OrderSell
}

type TradeState string

const (
	TradeEntered               TradeState = "ENTERED"
	TradeProfitOrderPending    TradeState = "PROFIT_PENDING"
	TradeProfitOrderRegistered TradeState = "PROFIT_REGISTERED"
	TradeClosed                TradeState = "CLOSED"
)

type CloseReason string

const (
	ClosedByProfit CloseReason = "profit"
	ClosedByStop   CloseReason = "stop"
	ClosedByTime   CloseReason = "time"
)

// ActiveTrade is one filled entry leg still open. It is owned exclusively by
// the engine; all mutation goes through the lifecycle handlers.
type ActiveTrade struct {
	ID            string     `json:"id"`
	Strategy      string     `json:"strategy"`
	Symbol        string     `json:"symbol"`
	Side          Side       `json:"side"`
	EntryPrice    float64    `json:"entry_price"`
	Volume        float64    `json:"volume"`
	StopPrice     float64    `json:"stop_price"`
	Tier          Tier       `json:"tier"`
	State         TradeState `json:"state"`
	ProfitOrderID string     `json:"profit_order_id,omitempty"`
	StopOrderID   string     `json:"stop_order_id,omitempty"`

	// StopReplacePending marks the cancel-then-register saga in flight:
	// the old stop has been asked to cancel and the replacement waits for
	// the confirmation.
	StopReplacePending bool    `json:"stop_replace_pending,omitempty"`
	PendingStopPrice   float64 `json:"pending_stop_price,omitempty"`

	// Unprotected is raised when a stop cancel never confirmed and the
	// retry budget ran out, leaving the trade without a live stop.
	Unprotected bool `json:"unprotected,omitempty"`

	OpenedAt time.Time `json:"opened_at"`
}

// ClosedTrade is the history record of a fully closed leg.
type ClosedTrade struct {
	TradeID     string      `json:"trade_id"`
	Strategy    string      `json:"strategy"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Tier        Tier        `json:"tier"`
	EntryPrice  float64     `json:"entry_price"`
	ExitPrice   float64     `json:"exit_price"`
	Volume      float64     `json:"volume"`
	RealizedPnL float64     `json:"realized_pnl"`
	Reason      CloseReason `json:"reason"`
	OpenedAt    time.Time   `json:"opened_at"`
	ClosedAt    time.Time   `json:"closed_at"`
}
