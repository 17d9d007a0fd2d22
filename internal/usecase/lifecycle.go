package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
	"github.com/andreyk/breakout_bot/internal/infrastructure/metrics"
)

// stopLimitOffset shifts the stop order's limit price off the trigger so a
// triggered stop still crosses the book.
const stopLimitOffset = 0.0015

// onEntryFilled opens the trade for a filled entry leg, then submits its
// profit order and initial protective stop.
func (e *Engine) onEntryFilled(ctx context.Context, o *domain.Order, side domain.Side, ev domain.OrderEvent) {
	inst, ok := e.instruments[o.Symbol]
	if !ok {
		e.logger.Error("instrument not found for filled entry",
			zap.String("symbol", o.Symbol), zap.String("order_id", o.ID))
		return
	}

	entryPrice := ev.Price
	if entryPrice == 0 {
		entryPrice = o.Price
	}

	stop := inst.ShrinkPrice(entryPrice * (1 - e.cfg.StopLossPercent/100))
	if side == domain.SideShort {
		stop = inst.ShrinkPrice(entryPrice * (1 + e.cfg.StopLossPercent/100))
	}

	t := &domain.ActiveTrade{
		ID:         uuid.NewString(),
		Strategy:   e.cfg.Name,
		Symbol:     o.Symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Volume:     o.Volume,
		StopPrice:  stop,
		Tier:       o.Tier,
		State:      domain.TradeEntered,
		OpenedAt:   e.now(),
	}
	e.store.OpenTrade(t)
	e.persistTrade(ctx, t)
	metrics.OpenTrades.Inc()

	e.logger.Info("entry filled, trade open",
		zap.String("trade_id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.String("side", string(side)),
		zap.Int("tier", int(t.Tier)),
		zap.Float64("entry", entryPrice),
		zap.Float64("stop", stop))

	e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
		tr.State = domain.TradeProfitOrderPending
	})
	e.placeProfitOrder(ctx, t)
	e.placeStopOrder(ctx, t, t.StopPrice)
}

// placeProfitOrder submits the tier-priced take-profit limit order. A failed
// instrument lookup aborts the operation for this trade only.
func (e *Engine) placeProfitOrder(ctx context.Context, t *domain.ActiveTrade) {
	inst, ok := e.instruments[t.Symbol]
	if !ok {
		e.logger.Error("instrument not found, profit order skipped",
			zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol))
		return
	}

	pct := e.cfg.takeProfitFor(t.Tier)
	price := inst.ShrinkPrice(t.EntryPrice * (1 + pct/100))
	if t.Side == domain.SideShort {
		price = inst.ShrinkPrice(t.EntryPrice * (1 - pct/100))
	}

	o := &domain.Order{
		ID:      uuid.NewString(),
		Symbol:  t.Symbol,
		Kind:    domain.OrderKindProfit,
		Tier:    t.Tier,
		Side:    t.Side.ExitOrderSide(),
		Price:   price,
		Volume:  t.Volume,
		Expiry:  e.now().AddDate(0, 0, 5),
		TradeID: t.ID,
		Comment: e.cfg.Name + ",p," + t.ID,
	}

	e.once(o.ID, domain.OrderEventRegistered, func(ev domain.OrderEvent) {
		e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
			tr.ProfitOrderID = o.ID
			tr.State = domain.TradeProfitOrderRegistered
		})
		e.persistTrade(context.Background(), t)
		e.logger.Info("profit order registered",
			zap.String("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.Float64("price", o.Price))
	})
	e.once(o.ID, domain.OrderEventFilled, func(ev domain.OrderEvent) {
		exit := ev.Price
		if exit == 0 {
			exit = o.Price
		}
		e.logger.Info("profit exit", zap.String("symbol", t.Symbol), zap.String("trade_id", t.ID))
		e.closeTrade(context.Background(), t, domain.ClosedByProfit, exit, o.ID)
	})

	e.submit(ctx, o)
}

// placeStopOrder submits a protective stop-limit for the trade at the given
// trigger price and records it as the trade's live stop once registered.
func (e *Engine) placeStopOrder(ctx context.Context, t *domain.ActiveTrade, stopPrice float64) {
	inst, ok := e.instruments[t.Symbol]
	if !ok {
		e.logger.Error("instrument not found, stop order skipped",
			zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol))
		return
	}

	if e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
		tr.StopPrice = stopPrice
	}) == nil {
		return // trade left the open set
	}
	limit := inst.ShrinkPrice(stopPrice * (1 - stopLimitOffset))
	if t.Side == domain.SideShort {
		limit = inst.ShrinkPrice(stopPrice * (1 + stopLimitOffset))
	}

	o := &domain.Order{
		ID:           uuid.NewString(),
		Symbol:       t.Symbol,
		Kind:         domain.OrderKindStop,
		Tier:         t.Tier,
		Side:         t.Side.ExitOrderSide(),
		Price:        limit,
		TriggerPrice: stopPrice,
		Volume:       t.Volume,
		TradeID:      t.ID,
		Comment:      e.cfg.Name + ",s," + t.ID,
	}

	e.once(o.ID, domain.OrderEventRegistered, func(ev domain.OrderEvent) {
		e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
			tr.StopOrderID = o.ID
			tr.Unprotected = false
		})
		e.persistTrade(context.Background(), t)
		e.logger.Info("stop order registered",
			zap.String("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.Float64("trigger", stopPrice))
	})
	e.once(o.ID, domain.OrderEventFilled, func(ev domain.OrderEvent) {
		exit := ev.Price
		if exit == 0 {
			exit = o.Price
		}
		e.logger.Info("stop exit", zap.String("symbol", t.Symbol), zap.String("trade_id", t.ID))
		e.closeTrade(context.Background(), t, domain.ClosedByStop, exit, o.ID)
	})

	e.submit(ctx, o)
}

// replaceStop runs the cancel-then-register saga: the old stop must reach a
// terminal canceled state before the replacement is submitted, so two live
// stops never coexist.
func (e *Engine) replaceStop(ctx context.Context, t *domain.ActiveTrade, newPrice float64) {
	if t.StopReplacePending {
		// a saga is already in flight, fold the tighter target into it
		e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
			if Tightens(tr.Side, tr.PendingStopPrice, newPrice) {
				tr.PendingStopPrice = newPrice
			}
		})
		return
	}

	if t.StopOrderID == "" {
		e.placeStopOrder(ctx, t, newPrice)
		return
	}

	old := t.StopOrderID
	e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
		tr.StopReplacePending = true
		tr.PendingStopPrice = newPrice
	})

	e.once(old, domain.OrderEventCanceled, func(ev domain.OrderEvent) {
		e.onStopCancelConfirmed(t)
	})
	e.cancelOrder(ctx, old)
	e.armCancelWatch(t, old, 0)

	e.logger.Info("replacing stop",
		zap.String("trade_id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.Float64("new_trigger", newPrice))
}

func (e *Engine) onStopCancelConfirmed(t *domain.ActiveTrade) {
	var price float64
	if e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
		price = tr.PendingStopPrice
		tr.StopReplacePending = false
		tr.PendingStopPrice = 0
		tr.StopOrderID = ""
	}) == nil {
		return // closed while the cancel was in flight
	}
	e.placeStopOrder(context.Background(), t, price)
}

// armCancelWatch guards the saga against a cancel that never confirms: after
// the timeout the cancel is re-issued, and once the retry budget is spent the
// trade is flagged unprotected.
func (e *Engine) armCancelWatch(t *domain.ActiveTrade, orderID string, attempt int) {
	if e.cfg.CancelConfirmTimeout <= 0 {
		return
	}
	e.scheduleAt(e.now().Add(e.cfg.CancelConfirmTimeout), func() {
		o := e.store.Order(orderID)
		if o == nil || o.State.Terminal() {
			return // confirmed in the meantime
		}
		if e.store.Trade(t.ID) == nil || !t.StopReplacePending {
			return
		}
		if attempt+1 >= e.cfg.CancelRetryLimit {
			e.store.MutateTrade(t.ID, func(tr *domain.ActiveTrade) {
				tr.Unprotected = true
			})
			e.persistTrade(context.Background(), t)
			metrics.UnprotectedTrades.Inc()
			e.logger.Error("stop cancel never confirmed, trade left without a stop",
				zap.String("trade_id", t.ID),
				zap.String("order_id", orderID))
			return
		}
		metrics.CancelRetries.Inc()
		e.logger.Warn("stop cancel unconfirmed, retrying",
			zap.String("trade_id", t.ID),
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt+1))
		e.cancelOrder(context.Background(), orderID)
		e.armCancelWatch(t, orderID, attempt+1)
	})
}

// closeTrade performs the terminal transition: removes the trade from the
// open set, cancels every live order still tagged to it except the trigger,
// and fires the tier cascade for profit closes.
func (e *Engine) closeTrade(ctx context.Context, t *domain.ActiveTrade, reason domain.CloseReason, exitPrice float64, triggerOrderID string) {
	removed := e.store.CloseTrade(t.ID)
	if removed == nil {
		return // already closed by another leg of the cascade
	}
	// detached from the open set, no snapshot reader can reach it now
	t.State = domain.TradeClosed

	e.persistClose(ctx, t, reason, exitPrice)
	metrics.OpenTrades.Dec()
	metrics.TradesClosed.WithLabelValues(string(reason)).Inc()

	for _, o := range e.store.ActiveOrdersForTrade(t.ID) {
		if o.ID == triggerOrderID {
			continue
		}
		e.cancelOrder(ctx, o.ID)
	}

	e.logger.Info("trade closed",
		zap.String("trade_id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exitPrice))

	if reason == domain.ClosedByProfit {
		e.cascadeRatchet(ctx, t)
	}
}

// forceClose exits a trade by market-equivalent order, sweeping its linked
// limit and stop orders first.
func (e *Engine) forceClose(ctx context.Context, t *domain.ActiveTrade) {
	for _, o := range e.store.ActiveOrdersForTrade(t.ID) {
		e.cancelOrder(ctx, o.ID)
	}

	o := &domain.Order{
		ID:      uuid.NewString(),
		Symbol:  t.Symbol,
		Kind:    domain.OrderKindExit,
		Tier:    t.Tier,
		Side:    t.Side.ExitOrderSide(),
		Volume:  t.Volume,
		TradeID: t.ID,
		Comment: e.cfg.Name + ",t," + t.ID,
	}

	e.once(o.ID, domain.OrderEventFilled, func(ev domain.OrderEvent) {
		e.closeTrade(context.Background(), t, domain.ClosedByTime, ev.Price, o.ID)
	})

	e.submit(ctx, o)
}
