package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// ForcedExitDue reports whether a bar time falls on the forced-exit minute.
// Only the hour comparison tolerates a few seconds of feed latency, so the
// whole minute qualifies even when the exit sits at the top of an hour.
func ForcedExitDue(at time.Time, exit TimeOfDay) bool {
	return at.Add(5*time.Second).Hour() == exit.Hour && at.Minute() == exit.Minute
}

// ProfitEnclosed reports whether the close has moved far enough in the
// trade's favor to enclose the relaxed (80%) take-profit threshold.
func ProfitEnclosed(side domain.Side, entry, close, takeProfitPercent float64) bool {
	threshold := takeProfitPercent * 0.8 / 100
	if side == domain.SideLong {
		return close >= entry*(1+threshold)
	}
	return close <= entry*(1-threshold)
}

// StopEnclosed reports whether the close has moved far enough against the
// trade to enclose the relaxed (50%) stop-loss threshold.
func StopEnclosed(side domain.Side, entry, close, stopLossPercent float64) bool {
	threshold := stopLossPercent * 0.5 / 100
	if side == domain.SideLong {
		return close <= entry*(1-threshold)
	}
	return close >= entry*(1+threshold)
}

// maybeTimeExit force-closes open trades near session end when either
// relaxed threshold is enclosed. Profit is checked first.
func (e *Engine) maybeTimeExit(ctx context.Context, inst *domain.Instrument, bar domain.Bar) {
	if !ForcedExitDue(bar.Time, e.cfg.ForcedExit) {
		return
	}

	e.logger.Info("forced-exit window, checking open trades",
		zap.String("symbol", inst.Symbol))

	for _, t := range e.store.TradesBySymbol(inst.Symbol) {
		switch {
		case ProfitEnclosed(t.Side, t.EntryPrice, bar.Close, e.cfg.TakeProfitPercent):
			e.logger.Info("closing ahead of session end with profit",
				zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol))
			e.forceClose(ctx, t)
		case StopEnclosed(t.Side, t.EntryPrice, bar.Close, e.cfg.StopLossPercent):
			e.logger.Info("closing ahead of session end with loss",
				zap.String("trade_id", t.ID), zap.String("symbol", t.Symbol))
			e.forceClose(ctx, t)
		}
	}
}
