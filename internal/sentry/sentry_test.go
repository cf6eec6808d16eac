package sentry

import (
	"context"
	"errors"
	"testing"
)

func TestInitializeDisabled(t *testing.T) {
	if err := Initialize(Config{}); err != nil {
		t.Fatalf("Initialize() with empty DSN should be a no-op, got %v", err)
	}
}

func TestInitializeRejectsBadSampleRate(t *testing.T) {
	err := Initialize(Config{DSN: "https://key@example.invalid/1", SampleRate: 1.5})
	if err == nil {
		t.Fatal("Initialize() should reject a sample rate above 1")
	}
}

func TestCaptureWithoutClientIsNoop(t *testing.T) {
	// Must not panic when Sentry was never initialized.
	CaptureExceptionWithContext(context.Background(), errors.New("boom"))
	CaptureExceptionWithContext(context.Background(), nil)
	CapturePanic(context.Background(), "nil map")
}
