package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
// Record methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Intent metrics
	IntentTotal *prometheus.CounterVec

	// Template metrics
	TemplateExecutionsTotal  *prometheus.CounterVec
	TemplateDurationSeconds  *prometheus.HistogramVec
	ChatTurnsTotal           *prometheus.CounterVec
	ChatTurnDurationSeconds  prometheus.Histogram
	ConstanciaDecisionsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_llm_requests_total",
				Help: "Total number of LLM generation calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, timeout
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "school_llm_duration_seconds",
				Help:    "LLM generation latency in seconds by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15}, // Capped by the 15s call timeout
			},
			[]string{"provider"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_llm_fallback_total",
				Help: "Total number of fallbacks from one model to the next",
			},
			[]string{"from", "to"},
		),

		IntentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_intent_total",
				Help: "Total number of detected intents by kind and sub-kind",
			},
			[]string{"kind", "sub_kind"},
		),

		TemplateExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_template_executions_total",
				Help: "Total number of SQL template executions by template and status",
			},
			[]string{"template", "status"}, // status: success, no_rows, error
		),

		TemplateDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "school_template_duration_seconds",
				Help:    "SQL template execution duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"template"},
		),

		ChatTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_chat_turns_total",
				Help: "Total number of processed utterances by intent kind and status",
			},
			[]string{"kind", "status"}, // kind includes pending slots: pending_constancia, pending_file_open, pending_selection
		),

		ChatTurnDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "school_chat_turn_duration_seconds",
				Help:    "End-to-end duration of one processed utterance",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),

		ConstanciaDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_constancia_decisions_total",
				Help: "Total number of preview decisions by option",
			},
			[]string{"option"}, // option: save, open, persist, discard
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "school_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: llm_burst, llm_daily
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "school_sessions_active",
				Help: "Number of open chat sessions",
			},
		),
	}
}

// RecordLLMRequest records one generation call with status and latency.
func (m *Metrics) RecordLLMRequest(provider, status string, duration float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordLLMFallback records a switch from one model to the next.
func (m *Metrics) RecordLLMFallback(from, to string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordIntent records a detected intent.
func (m *Metrics) RecordIntent(kind, subKind string) {
	if m == nil {
		return
	}
	m.IntentTotal.WithLabelValues(kind, subKind).Inc()
}

// RecordTemplate records a template execution.
func (m *Metrics) RecordTemplate(template, status string, duration float64) {
	if m == nil {
		return
	}
	m.TemplateExecutionsTotal.WithLabelValues(template, status).Inc()
	m.TemplateDurationSeconds.WithLabelValues(template).Observe(duration)
}

// RecordChatTurn records one processed utterance.
func (m *Metrics) RecordChatTurn(kind, status string, duration float64) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(kind, status).Inc()
	m.ChatTurnDurationSeconds.Observe(duration)
}

// RecordConstanciaDecision records the option chosen for a preview.
func (m *Metrics) RecordConstanciaDecision(option string) {
	if m == nil {
		return
	}
	m.ConstanciaDecisionsTotal.WithLabelValues(option).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}
