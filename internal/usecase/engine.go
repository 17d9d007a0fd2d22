package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
	"github.com/andreyk/breakout_bot/internal/infrastructure/metrics"
)

// event is one unit of work for the reactor goroutine.
type event struct {
	bar   *domain.Bar
	order *domain.OrderEvent
	timer func()
}

// Engine is the breakout strategy core: a single-goroutine event reactor
// that owns the open-trades set, the pending-order set and the daily-range
// table. Every state transition runs to completion before the next event is
// taken, so the core needs no locking of its own.
//
// HandleBar and HandleOrderEvent are the reactor entry points; outside of
// tests they must only be reached through Run.
type Engine struct {
	cfg         StrategyConfig
	instruments map[string]*domain.Instrument
	universe    []*domain.Instrument

	store  *TradeStore
	ranges *RangeService

	gateway domain.OrderGateway
	repo    domain.TradeRepository
	logger  *zap.Logger

	events chan event

	// handlers is the one-shot subscription table keyed by
	// (order id, event kind); entries deregister when they fire.
	handlers map[string]map[domain.OrderEventKind]func(domain.OrderEvent)

	now        func() time.Time
	scheduleAt func(at time.Time, fn func())
}

type Option func(*Engine)

// WithClock overrides the engine's wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithScheduler overrides timer registration. The replacement must
// eventually run the callback on the reactor goroutine.
func WithScheduler(schedule func(at time.Time, fn func())) Option {
	return func(e *Engine) { e.scheduleAt = schedule }
}

func NewEngine(
	cfg StrategyConfig,
	universe []*domain.Instrument,
	gateway domain.OrderGateway,
	tape domain.TradeTape,
	repo domain.TradeRepository,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	cfg.applyDefaults()

	instruments := make(map[string]*domain.Instrument, len(universe))
	for _, inst := range universe {
		instruments[inst.Symbol] = inst
	}

	store := NewTradeStore()
	e := &Engine{
		cfg:         cfg,
		instruments: instruments,
		universe:    universe,
		store:       store,
		ranges:      NewRangeService(cfg, universe, tape, store, logger),
		gateway:     gateway,
		repo:        repo,
		logger:      logger,
		events:      make(chan event, 1024),
		handlers:    make(map[string]map[domain.OrderEventKind]func(domain.OrderEvent)),
		now:         time.Now,
	}
	e.scheduleAt = func(at time.Time, fn func()) {
		d := at.Sub(e.now())
		if d < 0 {
			d = 0
		}
		time.AfterFunc(d, func() { e.post(event{timer: fn}) })
	}
	for _, opt := range opts {
		opt(e)
	}

	gateway.OnOrderEvent(func(ev domain.OrderEvent) {
		e.post(event{order: &ev})
	})

	return e
}

// Bind routes the market feed into the reactor.
func (e *Engine) Bind(feed domain.MarketFeed) {
	feed.OnBarClose(func(b domain.Bar) {
		e.post(event{bar: &b})
	})
}

// OnTradesChanged registers an observer of open-trade mutations. The
// notification carries no payload.
func (e *Engine) OnTradesChanged(fn func()) {
	e.store.OnChange(fn)
}

// OpenTrades returns a snapshot copy of the open set.
func (e *Engine) OpenTrades() []domain.ActiveTrade {
	return e.store.TradeSnapshot()
}

// Ranges returns a snapshot copy of the daily-range table.
func (e *Engine) Ranges() []domain.DailyRange {
	return e.store.RangeSnapshot()
}

// Start hydrates persisted trades and schedules the first range computation.
func (e *Engine) Start(ctx context.Context) error {
	if e.cfg.LoadActiveTrades && e.repo != nil {
		trades, err := e.repo.ListActiveTrades(ctx, e.cfg.Name)
		if err != nil {
			return err
		}
		for _, t := range trades {
			e.store.OpenTrade(t)
		}
		metrics.OpenTrades.Set(float64(len(trades)))
		e.logger.Info("active trades hydrated", zap.Int("count", len(trades)))
	}

	first := FirstComputeAt(e.now(), e.cfg.Cutoff)
	e.scheduleAt(first, func() { e.recalcRanges(context.Background()) })

	e.logger.Info("strategy starting",
		zap.String("name", e.cfg.Name),
		zap.Float64("breakout_percent", e.cfg.BreakoutPercent),
		zap.Float64("reentry_percent", e.cfg.ReentryPercent),
		zap.Float64("stop_loss_percent", e.cfg.StopLossPercent),
		zap.Float64("take_profit_percent", e.cfg.TakeProfitPercent),
		zap.String("cutoff", e.cfg.Cutoff.String()),
		zap.Time("first_range_at", first))
	return nil
}

// Run consumes events until the context is canceled. It is the only place
// state transitions are allowed to execute.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			switch {
			case ev.bar != nil:
				e.HandleBar(ctx, *ev.bar)
			case ev.order != nil:
				e.HandleOrderEvent(ctx, *ev.order)
			case ev.timer != nil:
				ev.timer()
			}
		}
	}
}

func (e *Engine) post(ev event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event queue full, dropping event")
	}
}

// --- one-shot handler table ---

func (e *Engine) once(orderID string, kind domain.OrderEventKind, fn func(domain.OrderEvent)) {
	m := e.handlers[orderID]
	if m == nil {
		m = make(map[domain.OrderEventKind]func(domain.OrderEvent))
		e.handlers[orderID] = m
	}
	m[kind] = fn
}

func (e *Engine) dropHandlers(orderID string) {
	delete(e.handlers, orderID)
}

// HandleOrderEvent applies one broker lifecycle event. Reactor goroutine only.
func (e *Engine) HandleOrderEvent(ctx context.Context, ev domain.OrderEvent) {
	if o := e.store.Order(ev.OrderID); o != nil {
		switch ev.Kind {
		case domain.OrderEventRegistered:
			o.State = domain.OrderStateActive
		case domain.OrderEventFilled:
			o.State = domain.OrderStateFilled
		case domain.OrderEventCanceled:
			o.State = domain.OrderStateCanceled
		case domain.OrderEventRejected:
			o.State = domain.OrderStateRejected
		case domain.OrderEventExpired:
			o.State = domain.OrderStateExpired
		}
	}

	if m, ok := e.handlers[ev.OrderID]; ok {
		if fn, ok := m[ev.Kind]; ok {
			delete(m, ev.Kind)
			if len(m) == 0 {
				delete(e.handlers, ev.OrderID)
			}
			fn(ev)
		}
	}

	if o := e.store.Order(ev.OrderID); o != nil && o.State.Terminal() {
		e.store.RemoveOrder(ev.OrderID)
		e.dropHandlers(ev.OrderID)
	}
}

// HandleBar applies one bar-close event. Reactor goroutine only.
func (e *Engine) HandleBar(ctx context.Context, bar domain.Bar) {
	// no action before the cutoff
	if bar.Time.Before(e.cfg.Cutoff.On(bar.Time)) {
		return
	}

	if !e.store.HasFreshRange(bar.Time) {
		e.logger.Info("no morning range for today, computing now")
		e.recalcRanges(ctx)
	}

	inst, ok := e.instruments[bar.Symbol]
	if !ok {
		e.logger.Warn("bar for unknown instrument", zap.String("symbol", bar.Symbol))
		return
	}

	if e.store.HasTrades(bar.Symbol) {
		e.maybeTimeExit(ctx, inst, bar)
		return
	}
	e.maybeEnter(ctx, inst, bar)
}

// recalcRanges runs a range pass and, on success, schedules the next one and
// re-applies the risk ratchet. A failed pass is retried by the next bar's
// freshness check without touching the schedule.
func (e *Engine) recalcRanges(ctx context.Context) {
	today := e.now()
	if !e.ranges.Compute(ctx, today) {
		return
	}

	next := NextComputeAt(today, e.cfg.Cutoff)
	e.scheduleAt(next, func() { e.recalcRanges(context.Background()) })
	e.logger.Info("next range computation scheduled", zap.Time("at", next))

	e.applyRangesToOpenTrades(ctx)
}

// --- gateway plumbing ---

func (e *Engine) submit(ctx context.Context, o *domain.Order) bool {
	o.State = domain.OrderStatePending
	e.store.RecordOrder(o)
	if err := e.gateway.Submit(ctx, o); err != nil {
		e.logger.Error("order submission failed",
			zap.String("order_id", o.ID),
			zap.String("kind", string(o.Kind)),
			zap.Error(err))
		e.store.RemoveOrder(o.ID)
		e.dropHandlers(o.ID)
		return false
	}
	metrics.OrdersSubmitted.WithLabelValues(string(o.Kind), string(o.Side)).Inc()
	return true
}

func (e *Engine) cancelOrder(ctx context.Context, orderID string) {
	if err := e.gateway.Cancel(ctx, orderID); err != nil {
		e.logger.Error("cancel request failed",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

// --- persistence helpers (repository failures are logged and skipped) ---

func (e *Engine) persistTrade(ctx context.Context, t *domain.ActiveTrade) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveActiveTrade(ctx, t); err != nil {
		e.logger.Error("failed to persist trade",
			zap.String("trade_id", t.ID), zap.Error(err))
	}
}

func (e *Engine) persistClose(ctx context.Context, t *domain.ActiveTrade, reason domain.CloseReason, exitPrice float64) {
	if e.repo == nil {
		return
	}
	if err := e.repo.DeleteActiveTrade(ctx, t.ID); err != nil {
		e.logger.Error("failed to delete persisted trade",
			zap.String("trade_id", t.ID), zap.Error(err))
	}

	pnl := (exitPrice - t.EntryPrice) * t.Volume
	if t.Side == domain.SideShort {
		pnl = -pnl
	}
	closed := &domain.ClosedTrade{
		TradeID:     t.ID,
		Strategy:    t.Strategy,
		Symbol:      t.Symbol,
		Side:        t.Side,
		Tier:        t.Tier,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   exitPrice,
		Volume:      t.Volume,
		RealizedPnL: pnl,
		Reason:      reason,
		OpenedAt:    t.OpenedAt,
		ClosedAt:    e.now(),
	}
	if err := e.repo.SaveClosedTrade(ctx, closed); err != nil {
		e.logger.Error("failed to record closed trade",
			zap.String("trade_id", t.ID), zap.Error(err))
	}
}
