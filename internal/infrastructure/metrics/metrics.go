// Package metrics holds the Prometheus instruments the engine updates while
// running. They are registered at init and served by the web server at
// /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_orders_submitted_total",
			Help: "Orders submitted to the gateway",
		},
		[]string{"kind", "side"},
	)

	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_trades_closed_total",
			Help: "Closed trades by reason",
		},
		[]string{"reason"},
	)

	OpenTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakout_open_trades",
			Help: "Currently open trade legs",
		},
	)

	RangesComputed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakout_ranges_computed_total",
			Help: "Morning range computations",
		},
	)

	CancelRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakout_cancel_retries_total",
			Help: "Stop-cancel confirmations that timed out and were retried",
		},
	)

	UnprotectedTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakout_unprotected_trades",
			Help: "Open trades left without a live stop order",
		},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersSubmitted,
		TradesClosed,
		OpenTrades,
		RangesComputed,
		CancelRetries,
		UnprotectedTrades,
	)
}
