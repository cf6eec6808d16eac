package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/school-records-go/internal/metrics"
)

// QuotaConfig configures a per-session LLM quota.
type QuotaConfig struct {
	Burst           float64 // Bucket capacity
	RefillPerMinute float64
	DailyLimit      int // 0 = no daily cap
	Clock           Clock
}

type sessionQuota struct {
	bucket *Bucket
	daily  *Window
}

// Quota tracks LLM usage per session key. A request must pass both the
// burst bucket and the daily window; nothing is consumed unless both pass.
type Quota struct {
	mu       sync.Mutex
	cfg      QuotaConfig
	sessions map[string]*sessionQuota
	metrics  *metrics.Metrics
}

// NewQuota creates a quota tracker. m may be nil.
func NewQuota(cfg QuotaConfig, m *metrics.Metrics) *Quota {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Quota{cfg: cfg, sessions: make(map[string]*sessionQuota), metrics: m}
}

// Allow consumes one LLM call for key. The check and the consume run under
// one lock so concurrent turns of the same session cannot overdraw.
func (q *Quota) Allow(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, ok := q.sessions[key]
	if !ok {
		s = &sessionQuota{
			bucket: NewBucket(q.cfg.Burst, q.cfg.RefillPerMinute/60, q.cfg.Clock),
			daily:  NewWindow(q.cfg.DailyLimit, 24*time.Hour, q.cfg.Clock),
		}
		q.sessions[key] = s
	}

	if !s.bucket.Check() {
		q.metrics.RecordRateLimiterDrop("llm_burst")
		return false
	}
	if !s.daily.Check() {
		q.metrics.RecordRateLimiterDrop("llm_daily")
		return false
	}
	s.bucket.Consume()
	s.daily.Consume()
	return true
}

// Forget drops the counters of a closed session.
func (q *Quota) Forget(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.sessions, key)
}

// Len returns the number of tracked sessions.
func (q *Quota) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.sessions)
}
