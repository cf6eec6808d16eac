package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestBucketBurstAndRefill(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	b := NewBucket(3, 1, clock.Now) // 1 token per second

	for i := range 3 {
		if !b.Allow() {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if b.Allow() {
		t.Fatal("request beyond burst should be rejected")
	}

	clock.Advance(1500 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("one token should have refilled after 1.5s")
	}
	if b.Allow() {
		t.Fatal("only one token should have refilled")
	}

	clock.Advance(time.Hour)
	if got := b.Available(); got != 3 {
		t.Errorf("Available() = %v, want capacity 3", got)
	}
}

func TestBucketCheckDoesNotConsume(t *testing.T) {
	t.Parallel()
	b := NewBucket(1, 0, newFakeClock().Now)

	if !b.Check() || !b.Check() {
		t.Fatal("Check() must not consume")
	}
	b.Consume()
	if b.Check() {
		t.Fatal("Check() after Consume() should fail with zero refill")
	}
}

func TestWindowLimit(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	w := NewWindow(2, time.Hour, clock.Now)

	for range 2 {
		if !w.Check() {
			t.Fatal("request within limit rejected")
		}
		w.Consume()
	}
	if w.Check() {
		t.Fatal("request over limit allowed")
	}
	if got := w.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}

	// Halfway into the next window half of the previous count still applies.
	clock.Advance(90 * time.Minute)
	if !w.Check() {
		t.Fatal("effective count 1 of 2 should allow a request")
	}

	clock.Advance(3 * time.Hour)
	if got := w.Remaining(); got != 2 {
		t.Errorf("Remaining() after long idle = %d, want 2", got)
	}
}

func TestNilWindowAllows(t *testing.T) {
	t.Parallel()
	w := NewWindow(0, time.Hour, nil)
	if w != nil {
		t.Fatal("NewWindow(0) should return nil")
	}
	if !w.Check() {
		t.Error("nil window must allow")
	}
	w.Consume()
}

func TestQuotaPerSession(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	q := NewQuota(QuotaConfig{Burst: 2, RefillPerMinute: 0, DailyLimit: 10, Clock: clock.Now}, nil)

	if !q.Allow("a") || !q.Allow("a") {
		t.Fatal("burst for session a should allow two calls")
	}
	if q.Allow("a") {
		t.Fatal("third call for session a should be rejected")
	}
	if !q.Allow("b") {
		t.Fatal("session b has its own bucket")
	}

	q.Forget("a")
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after Forget", q.Len())
	}
	if !q.Allow("a") {
		t.Fatal("forgotten session starts from a full bucket")
	}
}

func TestQuotaDailyCapDoesNotDrainBucket(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	q := NewQuota(QuotaConfig{Burst: 5, RefillPerMinute: 60, DailyLimit: 1, Clock: clock.Now}, nil)

	if !q.Allow("s") {
		t.Fatal("first call should pass")
	}
	if q.Allow("s") {
		t.Fatal("daily cap of 1 should reject the second call")
	}
	q.mu.Lock()
	avail := q.sessions["s"].bucket.Available()
	q.mu.Unlock()
	if avail != 4 {
		t.Errorf("bucket tokens = %v, want 4 (rejected call must not consume)", avail)
	}
}
