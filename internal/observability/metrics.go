package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting pagination
// metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Active session counts for capacity planning
//   - Session lifetimes and completion reasons
//   - Control registrations by action and outcome
//   - Cleanup executions by policy and outcome
type Metrics struct {
	// ActiveSessions is a gauge tracking current live sessions.
	// Labels: bindings (reactions|buttons)
	ActiveSessions *prometheus.GaugeVec

	// SessionsTotal counts completed sessions.
	// Labels: reason (timeout|stopped)
	SessionsTotal *prometheus.CounterVec

	// SessionDuration measures session lifetime in seconds.
	// Buckets: 5s, 15s, 30s, 60s, 120s, 300s, 600s, 1800s
	SessionDuration prometheus.Histogram

	// ControlsTotal counts control registrations.
	// Labels: action (first|previous|stop|next|last), status (ok|inactive|unsupported)
	ControlsTotal *prometheus.CounterVec

	// CleanupsTotal counts cleanup executions.
	// Labels: policy (delete_marks|delete_message|keep), status (success|error)
	CleanupsTotal *prometheus.CounterVec

	// RendersTotal counts page render attempts.
	// Labels: status (success|error)
	RendersTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with reg. Use
// prometheus.DefaultRegisterer in production; tests pass their own
// registry so parallel packages never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paginator_sessions_active",
				Help: "Number of live pagination sessions by binding kind",
			},
			[]string{"bindings"},
		),

		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paginator_sessions_total",
				Help: "Total completed pagination sessions by completion reason",
			},
			[]string{"reason"},
		),

		SessionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paginator_session_duration_seconds",
				Help:    "Lifetime of pagination sessions in seconds",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),

		ControlsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paginator_controls_total",
				Help: "Total control registrations by action and outcome",
			},
			[]string{"action", "status"},
		),

		CleanupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paginator_cleanups_total",
				Help: "Total cleanup executions by deletion policy and outcome",
			},
			[]string{"policy", "status"},
		),

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paginator_renders_total",
				Help: "Total page render attempts by outcome",
			},
			[]string{"status"},
		),
	}
}
