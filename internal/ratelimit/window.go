package ratelimit

import (
	"sync"
	"time"
)

// Window is a sliding window counter: two fixed windows blended by overlap.
//
//	effective = current + previous × (time left in current window / window size)
//
// A nil *Window allows everything.
type Window struct {
	mu       sync.Mutex
	now      Clock
	size     time.Duration
	limit    int
	start    time.Time
	current  int
	previous int
}

// NewWindow returns nil when limit <= 0 (disabled).
func NewWindow(limit int, size time.Duration, now Clock) *Window {
	if limit <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &Window{now: now, size: size, limit: limit, start: now()}
}

// rotate must be called with mu held.
func (w *Window) rotate(t time.Time) {
	elapsed := t.Sub(w.start)
	switch {
	case elapsed < w.size:
		return
	case elapsed < 2*w.size:
		w.previous = w.current
	default:
		w.previous = 0
	}
	w.current = 0
	w.start = w.start.Add(elapsed.Truncate(w.size))
}

func (w *Window) effective(t time.Time) float64 {
	remaining := w.size - t.Sub(w.start)
	weight := float64(remaining) / float64(w.size)
	return float64(w.current) + float64(w.previous)*weight
}

// Check reports whether a request would be allowed without counting it.
func (w *Window) Check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	t := w.now()
	w.rotate(t)
	return w.effective(t) < float64(w.limit)
}

// Consume counts one request.
func (w *Window) Consume() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate(w.now())
	w.current++
}

// Remaining returns how many requests are left in the window, never negative.
func (w *Window) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	t := w.now()
	w.rotate(t)
	return max(0, w.limit-int(w.effective(t)+0.5))
}
