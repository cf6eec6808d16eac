package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSessionID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := GetSessionID(ctx); got != "" {
		t.Errorf("GetSessionID() on empty context = %q, want empty", got)
	}

	ctx = WithSessionID(ctx, "sess-1")
	if got := GetSessionID(ctx); got != "sess-1" {
		t.Errorf("GetSessionID() = %q, want %q", got, "sess-1")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("GetRequestID() on empty context should report false")
	}
	if _, ok := GetRequestID(WithRequestID(context.Background(), "")); ok {
		t.Error("GetRequestID() with empty value should report false")
	}

	id, ok := GetRequestID(WithRequestID(context.Background(), "req-9"))
	if !ok || id != "req-9" {
		t.Errorf("GetRequestID() = (%q, %v), want (%q, true)", id, ok, "req-9")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithSessionID(parent, "sess-2")
	parent = WithRequestID(parent, "req-2")
	cancel()

	detached := PreserveTracing(parent)
	if detached.Err() != nil {
		t.Fatalf("detached context should not be canceled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should not carry a deadline")
	}
	if got := GetSessionID(detached); got != "sess-2" {
		t.Errorf("session ID = %q, want %q", got, "sess-2")
	}
	if got, _ := GetRequestID(detached); got != "req-2" {
		t.Errorf("request ID = %q, want %q", got, "req-2")
	}
}
