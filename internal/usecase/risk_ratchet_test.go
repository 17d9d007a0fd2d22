package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/andreyk/breakout_bot/internal/domain"
)

func TestTightens(t *testing.T) {
	cases := []struct {
		name     string
		side     domain.Side
		current  float64
		proposed float64
		want     bool
	}{
		{"long higher stop tightens", domain.SideLong, 99, 99.5, true},
		{"long lower stop loosens", domain.SideLong, 99, 98, false},
		{"long equal stop is not a move", domain.SideLong, 99, 99, false},
		{"short lower stop tightens", domain.SideShort, 91, 90.5, true},
		{"short higher stop loosens", domain.SideShort, 91, 92, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Tightens(tc.side, tc.current, tc.proposed); got != tc.want {
				t.Fatalf("Tightens(%s, %v, %v) = %v, want %v", tc.side, tc.current, tc.proposed, got, tc.want)
			}
		})
	}
}

func TestNextDayRangeRatchetsLongStop(t *testing.T) {
	h := newHarness(testConfig())
	openThreeTrades(t, h)
	tr := h.engine.OpenTrades()
	if len(tr) != 3 {
		t.Fatalf("setup: expected 3 open trades, got %d", len(tr))
	}

	// next trading day's morning tape sits entirely above the old stops
	nextDay := testDay.AddDate(0, 0, 1)
	open := nextDay.Add(10 * time.Hour)
	h.tape.trades = map[string][]domain.TapeTrade{
		"SBER": {
			{Price: 100.8, Time: open.Add(time.Second)},
			{Price: 101.4, Time: open.Add(20 * time.Minute)},
			{Price: 100.5, Time: open.Add(50 * time.Minute)},
		},
	}
	h.now = nextDay.Add(11 * time.Hour)

	h.engine.recalcRanges(context.Background())

	// every trade's stop saga targets the new range low
	stopIDs := make(map[string]bool)
	for _, o := range h.gateway.byKind(domain.OrderKindStop) {
		stopIDs[o.ID] = true
	}
	confirmedReplacements := 0
	for id := range stopIDs {
		if h.gateway.seqIndex("cancel:"+id) != -1 {
			h.cancelConfirmed(id)
			confirmedReplacements++
		}
	}
	if confirmedReplacements != 3 {
		t.Fatalf("expected 3 stop cancels from the ratchet, got %d", confirmedReplacements)
	}

	for _, o := range h.gateway.byKind(domain.OrderKindStop) {
		if stopIDs[o.ID] {
			continue // pre-ratchet stop
		}
		if o.TriggerPrice != 100.5 {
			t.Fatalf("replacement trigger %v, want the new range low 100.5", o.TriggerPrice)
		}
	}
}

func TestLooserRangeLeavesStopsAlone(t *testing.T) {
	h := newHarness(testConfig())
	openThreeTrades(t, h)

	cancelsBefore := len(h.gateway.canceled)

	// next day's range low sits below the current stops
	nextDay := testDay.AddDate(0, 0, 1)
	open := nextDay.Add(10 * time.Hour)
	h.tape.trades = map[string][]domain.TapeTrade{
		"SBER": {
			{Price: 98, Time: open.Add(time.Second)},
			{Price: 97, Time: open.Add(30 * time.Minute)},
		},
	}
	h.now = nextDay.Add(11 * time.Hour)

	h.engine.recalcRanges(context.Background())

	if len(h.gateway.canceled) != cancelsBefore {
		t.Fatalf("stops only ever tighten: %d unexpected cancels", len(h.gateway.canceled)-cancelsBefore)
	}
}
