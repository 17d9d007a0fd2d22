package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andreyk/breakout_bot/internal/domain"
)

// fakeGateway records submissions and cancels in arrival order so tests can
// assert on cancel-before-register sequencing.
type fakeGateway struct {
	submitted []domain.Order
	canceled  []string
	seq       []string // "submit:<id>" and "cancel:<id>"
	submitErr error
}

func (g *fakeGateway) Submit(ctx context.Context, o *domain.Order) error {
	if g.submitErr != nil {
		return g.submitErr
	}
	g.submitted = append(g.submitted, *o)
	g.seq = append(g.seq, "submit:"+o.ID)
	return nil
}

func (g *fakeGateway) Cancel(ctx context.Context, orderID string) error {
	g.canceled = append(g.canceled, orderID)
	g.seq = append(g.seq, "cancel:"+orderID)
	return nil
}

func (g *fakeGateway) OnOrderEvent(callback func(domain.OrderEvent)) {}

func (g *fakeGateway) seqIndex(entry string) int {
	for i, s := range g.seq {
		if s == entry {
			return i
		}
	}
	return -1
}

func (g *fakeGateway) byKind(kind domain.OrderKind) []domain.Order {
	var out []domain.Order
	for _, o := range g.submitted {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

type fakeTape struct {
	trades map[string][]domain.TapeTrade
	err    error
	calls  int
}

func (f *fakeTape) TradesBetween(ctx context.Context, symbol string, from, to time.Time) ([]domain.TapeTrade, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.trades[symbol], nil
}

type fakeRepo struct {
	active map[string]domain.ActiveTrade
	closed []domain.ClosedTrade
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{active: make(map[string]domain.ActiveTrade)}
}

func (r *fakeRepo) SaveActiveTrade(ctx context.Context, t *domain.ActiveTrade) error {
	r.active[t.ID] = *t
	return nil
}

func (r *fakeRepo) DeleteActiveTrade(ctx context.Context, id string) error {
	delete(r.active, id)
	return nil
}

func (r *fakeRepo) ListActiveTrades(ctx context.Context, strategy string) ([]*domain.ActiveTrade, error) {
	var out []*domain.ActiveTrade
	for _, t := range r.active {
		if t.Strategy == strategy {
			c := t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeRepo) SaveClosedTrade(ctx context.Context, t *domain.ClosedTrade) error {
	r.closed = append(r.closed, *t)
	return nil
}

func (r *fakeRepo) ListClosedTrades(ctx context.Context, limit int) ([]*domain.ClosedTrade, error) {
	var out []*domain.ClosedTrade
	for i := len(r.closed) - 1; i >= 0 && len(out) < limit; i-- {
		c := r.closed[i]
		out = append(out, &c)
	}
	return out, nil
}

// fakeScheduler collects timer registrations; tests fire them by hand.
type fakeScheduler struct {
	timers []scheduledTimer
}

type scheduledTimer struct {
	at time.Time
	fn func()
}

func (s *fakeScheduler) schedule(at time.Time, fn func()) {
	s.timers = append(s.timers, scheduledTimer{at: at, fn: fn})
}

// fireNext pops and runs the oldest pending timer.
func (s *fakeScheduler) fireNext() bool {
	if len(s.timers) == 0 {
		return false
	}
	t := s.timers[0]
	s.timers = s.timers[1:]
	t.fn()
	return true
}

type testHarness struct {
	engine    *Engine
	gateway   *fakeGateway
	tape      *fakeTape
	repo      *fakeRepo
	scheduler *fakeScheduler
	now       time.Time
}

func (h *testHarness) clock() time.Time { return h.now }

// testDay is a Monday.
var testDay = time.Date(2016, time.June, 6, 0, 0, 0, 0, time.UTC)

func testConfig() StrategyConfig {
	return StrategyConfig{
		Name:               "BDown",
		StopLossPercent:    1,
		TakeProfitPercent:  1,
		TakeProfitPercent2: 2,
		TakeProfitPercent3: 3,
		BreakoutPercent:    0.5,
		Cutoff:             TimeOfDay{Hour: 11},
		VolatileClass:      "Si",
		VolatileRangeLimit: 200,
		Volumes:            map[string]float64{"SBER": 10},
	}
}

func testInstrument() *domain.Instrument {
	return &domain.Instrument{Symbol: "SBER", Class: "EQ", PriceStep: 0.01}
}

func newHarness(cfg StrategyConfig, universe ...*domain.Instrument) *testHarness {
	if len(universe) == 0 {
		universe = []*domain.Instrument{testInstrument()}
	}
	h := &testHarness{
		gateway:   &fakeGateway{},
		tape:      &fakeTape{trades: make(map[string][]domain.TapeTrade)},
		repo:      newFakeRepo(),
		scheduler: &fakeScheduler{},
		now:       testDay.Add(12 * time.Hour),
	}
	h.engine = NewEngine(cfg, universe, h.gateway, h.tape, h.repo, zap.NewNop(),
		WithClock(h.clock),
		WithScheduler(h.scheduler.schedule),
	)
	return h
}

// seedRange puts a fresh morning range for testDay into the store, bypassing
// the tape.
func (h *testHarness) seedRange(symbol string, high, low float64) {
	h.engine.store.RecordRange(&domain.DailyRange{
		Symbol: symbol,
		High:   high,
		Low:    low,
		Date:   testDay,
	})
}

func (h *testHarness) bar(symbol string, close float64) domain.Bar {
	return domain.Bar{Symbol: symbol, Time: h.now, Close: close}
}

func (h *testHarness) fire(ev domain.OrderEvent) {
	h.engine.HandleOrderEvent(context.Background(), ev)
}

func (h *testHarness) registered(orderID string) {
	h.fire(domain.OrderEvent{Kind: domain.OrderEventRegistered, OrderID: orderID, Time: h.now})
}

func (h *testHarness) filled(orderID string, price float64) {
	h.fire(domain.OrderEvent{Kind: domain.OrderEventFilled, OrderID: orderID, Price: price, Time: h.now})
}

func (h *testHarness) cancelConfirmed(orderID string) {
	h.fire(domain.OrderEvent{Kind: domain.OrderEventCanceled, OrderID: orderID, Time: h.now})
}
