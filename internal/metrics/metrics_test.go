package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.LLMRequestsTotal == nil || m.TemplateExecutionsTotal == nil || m.ChatTurnsTotal == nil {
		t.Fatal("metric vectors not initialized")
	}
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
}

func TestRecordMethods(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordLLMRequest("gemini", "success", 0.8)
	m.RecordLLMRequest("gemini", "error", 0.1)
	m.RecordLLMFallback("gemini/a", "groq/b")
	m.RecordIntent("consulta_alumnos", "busqueda_simple")
	m.RecordTemplate("buscar_alumno", "success", 0.004)
	m.RecordChatTurn("consulta_alumnos", "success", 1.2)
	m.RecordConstanciaDecision("save")
	m.RecordRateLimiterDrop("llm_burst")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "success")); got != 1 {
		t.Errorf("llm success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TemplateExecutionsTotal.WithLabelValues("buscar_alumno", "success")); got != 1 {
		t.Errorf("template count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("sessions active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConstanciaDecisionsTotal.WithLabelValues("save")); got != 1 {
		t.Errorf("decision count = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.RecordLLMRequest("gemini", "success", 1)
	m.RecordLLMFallback("a", "b")
	m.RecordIntent("k", "s")
	m.RecordTemplate("t", "success", 1)
	m.RecordChatTurn("k", "success", 1)
	m.RecordConstanciaDecision("save")
	m.RecordRateLimiterDrop("llm_daily")
	m.SessionOpened()
	m.SessionClosed()
}
