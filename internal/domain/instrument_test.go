package domain

import (
	"math"
	"testing"
	"time"
)

func TestShrinkPrice(t *testing.T) {
	cases := []struct {
		step  float64
		price float64
		want  float64
	}{
		{0.01, 100.456, 100.46},
		{0.01, 98.8515, 98.85},
		{1, 70123.4, 70123},
		{5, 102.4, 100},
		{0, 100.456, 100.456}, // no step configured, price untouched
	}

	for _, tc := range cases {
		inst := &Instrument{Symbol: "X", PriceStep: tc.step}
		if got := inst.ShrinkPrice(tc.price); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("step %v, price %v: got %v, want %v", tc.step, tc.price, got, tc.want)
		}
	}
}

func TestRangeFreshness(t *testing.T) {
	day := time.Date(2016, 6, 6, 0, 0, 0, 0, time.UTC)
	r := &DailyRange{Symbol: "SBER", High: 100, Low: 90, Date: day}

	if !r.Fresh(day.Add(15 * time.Hour)) {
		t.Fatal("same calendar day must be fresh")
	}
	if r.Fresh(day.AddDate(0, 0, 1)) {
		t.Fatal("next day must be stale")
	}
	if r.Width() != 10 {
		t.Fatalf("width %v, want 10", r.Width())
	}
}

func TestSideOrderDirections(t *testing.T) {
	if SideLong.EntryOrderSide() != OrderBuy || SideLong.ExitOrderSide() != OrderSell {
		t.Fatal("long enters with a buy and exits with a sell")
	}
	if SideShort.EntryOrderSide() != OrderSell || SideShort.ExitOrderSide() != OrderBuy {
		t.Fatal("short enters with a sell and exits with a buy")
	}
}
