package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// BreakoutSide reports the breakout direction for a bar close against the
// day's range, or "" when price is still inside. The boundary is rounded to
// the instrument's tick before comparison.
func BreakoutSide(rng *domain.DailyRange, inst *domain.Instrument, close, breakoutPercent float64) domain.Side {
	if close > inst.ShrinkPrice(rng.High*(1+breakoutPercent/100)) {
		return domain.SideLong
	}
	if close < inst.ShrinkPrice(rng.Low*(1-breakoutPercent/100)) {
		return domain.SideShort
	}
	return ""
}

// maybeEnter runs the entry filter chain for an instrument with no open
// trades and, on a breakout, submits the three tiered entry orders.
func (e *Engine) maybeEnter(ctx context.Context, inst *domain.Instrument, bar domain.Bar) {
	// evening session: sweep pending entries, place nothing new
	if !bar.Time.Add(5 * time.Second).Before(e.cfg.EveningStart.On(bar.Time)) {
		for _, o := range e.store.ActiveEntryOrders(inst.Symbol) {
			e.logger.Info("evening session, canceling pending entry",
				zap.String("symbol", inst.Symbol),
				zap.String("order_id", o.ID))
			e.cancelOrder(ctx, o.ID)
		}
		return
	}

	rng := e.store.Range(inst.Symbol)
	if rng == nil || !rng.Fresh(bar.Time) {
		return
	}

	if e.cfg.VolatileClass != "" && inst.Class == e.cfg.VolatileClass && rng.Width() >= e.cfg.VolatileRangeLimit {
		e.logger.Info("morning range too wide, instrument skipped for the day",
			zap.String("symbol", inst.Symbol),
			zap.Float64("width", rng.Width()))
		return
	}

	// duplicate-entry filter
	if len(e.store.ActiveEntryOrders(inst.Symbol)) > 0 {
		return
	}

	side := BreakoutSide(rng, inst, bar.Close, e.cfg.BreakoutPercent)
	if side == "" {
		return
	}

	volume := e.cfg.Volumes[inst.Symbol]
	if volume <= 0 {
		e.logger.Warn("no volume configured, breakout ignored",
			zap.String("symbol", inst.Symbol))
		return
	}

	price := inst.ShrinkPrice(rng.High)
	if side == domain.SideShort {
		price = inst.ShrinkPrice(rng.Low)
	}

	e.logger.Info("range broken, placing entry orders",
		zap.String("symbol", inst.Symbol),
		zap.String("side", string(side)),
		zap.Float64("close", bar.Close),
		zap.Float64("price", price))

	for tier := domain.Tier1; tier <= domain.Tier3; tier++ {
		o := &domain.Order{
			ID:      uuid.NewString(),
			Symbol:  inst.Symbol,
			Kind:    domain.OrderKindEntry,
			Tier:    tier,
			Side:    side.EntryOrderSide(),
			Price:   price,
			Volume:  volume,
			Expiry:  e.now().AddDate(0, 0, 1),
			Comment: fmt.Sprintf("%s,enter%d", e.cfg.Name, tier),
		}
		e.placeEntryOrder(ctx, o, side)
	}
}

func (e *Engine) placeEntryOrder(ctx context.Context, o *domain.Order, side domain.Side) {
	tier := o.Tier
	e.once(o.ID, domain.OrderEventRegistered, func(ev domain.OrderEvent) {
		e.logger.Info("entry order registered",
			zap.String("symbol", o.Symbol),
			zap.Int("tier", int(tier)),
			zap.String("side", string(o.Side)),
			zap.Float64("price", o.Price))
	})
	e.once(o.ID, domain.OrderEventFilled, func(ev domain.OrderEvent) {
		e.onEntryFilled(context.Background(), o, side, ev)
	})

	if !e.submit(ctx, o) {
		return
	}
}
