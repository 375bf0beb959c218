// Package metrics provides Prometheus metrics for palmguard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transitions counts successful touchpad state changes.
var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "palmguard",
	Name:      "transitions_total",
	Help:      "Total touchpad state changes.",
}, []string{"state", "strategy"})

// Failures counts failed state change attempts.
var Failures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "palmguard",
	Name:      "failures_total",
	Help:      "Total failed touchpad state changes.",
}, []string{"reason"})

// TouchpadEnabled is 1 when enabled, 0 when disabled, -1 when unknown.
var TouchpadEnabled = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "palmguard",
	Name:      "touchpad_enabled",
	Help:      "Touchpad state: 1 enabled, 0 disabled, -1 unknown.",
})

// Monitoring is 1 while the idle monitor runs.
var Monitoring = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "palmguard",
	Name:      "monitoring",
	Help:      "Whether the idle monitor is running.",
})

// KeyEvents counts key presses seen by the activity feed.
var KeyEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "palmguard",
	Name:      "key_events_total",
	Help:      "Total key presses received.",
}, []string{"source"})

// DisabledSeconds tracks how long the touchpad stayed disabled.
var DisabledSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "palmguard",
	Name:      "disabled_duration_seconds",
	Help:      "Time between a disable and the next enable.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
})

// StrategyInfo is 1 for the pinned strategy.
var StrategyInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "palmguard",
	Name:      "strategy_info",
	Help:      "Pinned control strategy.",
}, []string{"strategy"})

// SetPinned marks strategy as the only pinned one.
func SetPinned(strategy string) {
	StrategyInfo.Reset()
	if strategy != "" {
		StrategyInfo.WithLabelValues(strategy).Set(1)
	}
}
