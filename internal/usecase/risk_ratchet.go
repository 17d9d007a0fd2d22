package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// Tightens reports whether moving the stop to the proposed price reduces
// risk for the given side. Stops only ever move in this direction.
func Tightens(side domain.Side, current, proposed float64) bool {
	if side == domain.SideLong {
		return proposed > current
	}
	return proposed < current
}

// applyRangesToOpenTrades re-runs the ratchet against the freshly computed
// ranges: a higher low tightens long stops, a lower high tightens short
// stops.
func (e *Engine) applyRangesToOpenTrades(ctx context.Context) {
	for _, t := range e.store.Trades() {
		rng := e.store.Range(t.Symbol)
		if rng == nil {
			continue
		}

		target := rng.Low
		if t.Side == domain.SideShort {
			target = rng.High
		}
		if !Tightens(t.Side, t.StopPrice, target) {
			continue
		}

		e.logger.Info("range ratchet, tightening stop",
			zap.String("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.Float64("from", t.StopPrice),
			zap.Float64("to", target))
		e.replaceStop(ctx, t, target)
	}
}

// cascadeRatchet moves surviving higher tiers' stops to the closed leg's
// entry price. The classic behavior (CascadeAllTiers off) only reacts to a
// tier-1 close and only touches tier 2.
func (e *Engine) cascadeRatchet(ctx context.Context, closed *domain.ActiveTrade) {
	if !e.cfg.CascadeAllTiers && closed.Tier != domain.Tier1 {
		return
	}

	for _, t := range e.store.TradesBySymbol(closed.Symbol) {
		if t.Tier <= closed.Tier {
			continue
		}
		if !e.cfg.CascadeAllTiers && t.Tier != domain.Tier2 {
			continue
		}
		if !Tightens(t.Side, t.StopPrice, closed.EntryPrice) {
			continue
		}

		e.logger.Info("tier cascade, moving stop to entry",
			zap.String("trade_id", t.ID),
			zap.String("symbol", t.Symbol),
			zap.Int("tier", int(t.Tier)),
			zap.Float64("to", closed.EntryPrice))
		e.replaceStop(ctx, t, closed.EntryPrice)
	}
}
