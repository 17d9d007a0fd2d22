package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/andreyk/breakout_bot/internal/domain"
)

func TestStartHydratesPersistedTrades(t *testing.T) {
	cfg := testConfig()
	cfg.LoadActiveTrades = true
	h := newHarness(cfg)
	h.repo.active["t1"] = domain.ActiveTrade{
		ID: "t1", Strategy: "BDown", Symbol: "SBER",
		Side: domain.SideLong, EntryPrice: 100, Volume: 10, StopPrice: 99,
		Tier: domain.Tier1, State: domain.TradeProfitOrderRegistered,
	}
	h.repo.active["t2"] = domain.ActiveTrade{
		ID: "t2", Strategy: "Other", Symbol: "SBER",
	}

	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	trades := h.engine.OpenTrades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 hydrated trade for this strategy, got %d", len(trades))
	}
	if trades[0].ID != "t1" {
		t.Fatalf("hydrated wrong trade: %s", trades[0].ID)
	}
}

func TestStartSchedulesFirstRangePass(t *testing.T) {
	h := newHarness(testConfig())

	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(h.scheduler.timers) != 1 {
		t.Fatalf("expected 1 scheduled pass, got %d", len(h.scheduler.timers))
	}
	// started Monday noon: the pass lands on the same day's cutoff
	want := testDay.Add(11 * time.Hour)
	if !h.scheduler.timers[0].at.Equal(want) {
		t.Fatalf("first pass at %v, want %v", h.scheduler.timers[0].at, want)
	}
}

func TestStaleRangeRecomputedOnBarClose(t *testing.T) {
	h := newHarness(testConfig())
	open := testDay.Add(10 * time.Hour)
	h.tape.trades["SBER"] = []domain.TapeTrade{
		{Price: 95, Time: open.Add(time.Second)},
		{Price: 100, Time: open.Add(20 * time.Minute)},
		{Price: 90, Time: open.Add(40 * time.Minute)},
	}

	// no range seeded: the first post-cutoff bar computes one and the same
	// bar's close is evaluated against it
	h.engine.HandleBar(context.Background(), h.bar("SBER", 100.6))

	if h.tape.calls == 0 {
		t.Fatal("stale range must trigger a tape pull")
	}
	if len(h.gateway.byKind(domain.OrderKindEntry)) != 3 {
		t.Fatalf("breakout against the freshly computed range must enter, got %d orders", len(h.gateway.submitted))
	}
}

func TestFailedRangePassRetriedWithoutReschedule(t *testing.T) {
	h := newHarness(testConfig())
	// empty tape: every pass aborts

	h.engine.HandleBar(context.Background(), h.bar("SBER", 100.6))
	if len(h.scheduler.timers) != 0 {
		t.Fatal("aborted pass must not schedule the next day")
	}
	if len(h.gateway.submitted) != 0 {
		t.Fatal("no range, no entries")
	}

	// the feed comes back: the next bar's freshness check retries the pass
	open := testDay.Add(10 * time.Hour)
	h.tape.trades["SBER"] = []domain.TapeTrade{
		{Price: 95, Time: open.Add(time.Second)},
		{Price: 100, Time: open.Add(30 * time.Minute)},
	}
	h.engine.HandleBar(context.Background(), h.bar("SBER", 100.6))

	if len(h.scheduler.timers) != 1 {
		t.Fatal("successful pass must schedule the next day")
	}
	if len(h.gateway.byKind(domain.OrderKindEntry)) != 3 {
		t.Fatal("entries expected once the range exists")
	}
}

func TestUnknownSymbolBarIgnored(t *testing.T) {
	h := newHarness(testConfig())
	h.seedRange("SBER", 100, 90)

	h.engine.HandleBar(context.Background(), domain.Bar{
		Symbol: "GAZP", Time: h.now, Close: 100.6,
	})

	if len(h.gateway.submitted) != 0 {
		t.Fatalf("expected no orders for an unknown symbol, got %d", len(h.gateway.submitted))
	}
}

func TestOneShotHandlerFiresOnce(t *testing.T) {
	h := newHarness(testConfig())
	fired := 0
	h.engine.once("o1", domain.OrderEventRegistered, func(domain.OrderEvent) { fired++ })

	h.registered("o1")
	h.registered("o1")

	if fired != 1 {
		t.Fatalf("one-shot handler fired %d times", fired)
	}
}

func TestTerminalEventDropsPendingOrder(t *testing.T) {
	h := newHarness(testConfig())
	h.engine.store.RecordOrder(&domain.Order{
		ID: "o1", Symbol: "SBER", Kind: domain.OrderKindEntry, State: domain.OrderStateActive,
	})

	h.fire(domain.OrderEvent{Kind: domain.OrderEventExpired, OrderID: "o1", Time: h.now})

	if h.engine.store.Order("o1") != nil {
		t.Fatal("expired order must leave the pending set")
	}
}
