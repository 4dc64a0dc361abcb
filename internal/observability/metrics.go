// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package observability provides Prometheus metrics for the runtime.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Action run statuses recorded in metrics.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Metrics contains the runtime's Prometheus metrics. A nil *Metrics is
// valid and records nothing, so callers never need to branch on whether
// performance monitoring is enabled.
type Metrics struct {
	ActionRunsTotal     *prometheus.CounterVec
	ActionDuration      *prometheus.HistogramVec
	EventsEmittedTotal  *prometheus.CounterVec
	HandlerErrorsTotal  *prometheus.CounterVec
	PluginSetupDuration *prometheus.HistogramVec
	PluginSetupFailures prometheus.Counter
}

// NewMetrics creates and registers runtime metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActionRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugboard_action_runs_total",
				Help: "Total number of action runs by action id and status",
			},
			[]string{"action", "status"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plugboard_action_duration_seconds",
				Help:    "Action handler duration by action id",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		EventsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugboard_events_emitted_total",
				Help: "Total number of events emitted by delivery mode",
			},
			[]string{"mode"},
		),
		HandlerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugboard_event_handler_errors_total",
				Help: "Total number of event handler failures by event name",
			},
			[]string{"event"},
		),
		PluginSetupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plugboard_plugin_setup_duration_seconds",
				Help:    "Plugin setup duration by plugin name",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"plugin"},
		),
		PluginSetupFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plugboard_plugin_setup_failures_total",
				Help: "Total number of plugin setup failures",
			},
		),
	}

	reg.MustRegister(
		m.ActionRunsTotal,
		m.ActionDuration,
		m.EventsEmittedTotal,
		m.HandlerErrorsTotal,
		m.PluginSetupDuration,
		m.PluginSetupFailures,
	)

	return m
}

// RecordActionRun records one action run outcome.
func (m *Metrics) RecordActionRun(action, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActionRunsTotal.WithLabelValues(action, status).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordEmit records one event emission.
func (m *Metrics) RecordEmit(mode string) {
	if m == nil {
		return
	}
	m.EventsEmittedTotal.WithLabelValues(mode).Inc()
}

// RecordHandlerError records one event handler failure.
func (m *Metrics) RecordHandlerError(event string) {
	if m == nil {
		return
	}
	m.HandlerErrorsTotal.WithLabelValues(event).Inc()
}

// RecordPluginSetup records one successful plugin setup.
func (m *Metrics) RecordPluginSetup(plugin string, d time.Duration) {
	if m == nil {
		return
	}
	m.PluginSetupDuration.WithLabelValues(plugin).Observe(d.Seconds())
}

// RecordPluginSetupFailure records one plugin setup failure.
func (m *Metrics) RecordPluginSetupFailure() {
	if m == nil {
		return
	}
	m.PluginSetupFailures.Inc()
}
