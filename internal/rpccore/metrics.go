// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histograms the event loop and
// dispatcher update as they run. A Host with a nil Metrics simply skips
// recording, so tests and examples that do not care about metrics do
// not need to construct one.
type Metrics struct {
	commandsDispatched *prometheus.CounterVec
	rpcsInFlight       prometheus.Gauge
	timersFired        prometheus.Counter
	bufferGrowths      prometheus.Counter
	dispatchDuration   *prometheus.HistogramVec
}

// NewMetrics constructs a Metrics value without registering it;
// RegisterMetrics does that separately so callers can choose their own
// registry, the way internal/command/metrics.go separates construction
// from registration.
func NewMetrics() *Metrics {
	return &Metrics{
		commandsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pluginhost",
			Name:      "commands_dispatched_total",
			Help:      "Number of inbound commands and notifications dispatched, by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pluginhost",
			Name:      "outbound_rpcs_in_flight",
			Help:      "Number of outbound RPC requests awaiting a reply from the node.",
		}),
		timersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pluginhost",
			Name:      "timers_fired_total",
			Help:      "Number of scheduled timer callbacks that have fired.",
		}),
		bufferGrowths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pluginhost",
			Name:      "frame_buffer_growths_total",
			Help:      "Number of times an inbound frame buffer doubled in size.",
		}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pluginhost",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent inside a command/notification/hook handler.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RegisterMetrics registers m's collectors against reg.
func RegisterMetrics(reg prometheus.Registerer, m *Metrics) error {
	for _, c := range []prometheus.Collector{
		m.commandsDispatched,
		m.rpcsInFlight,
		m.timersFired,
		m.bufferGrowths,
		m.dispatchDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeDispatch(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commandsDispatched.WithLabelValues(method, outcome).Inc()
	m.dispatchDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) rpcSent() {
	if m == nil {
		return
	}
	m.rpcsInFlight.Inc()
}

func (m *Metrics) rpcReplied() {
	if m == nil {
		return
	}
	m.rpcsInFlight.Dec()
}

func (m *Metrics) timerFired() {
	if m == nil {
		return
	}
	m.timersFired.Inc()
}

func (m *Metrics) bufferGrew() {
	if m == nil {
		return
	}
	m.bufferGrowths.Inc()
}
