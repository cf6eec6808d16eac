package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{name: "nil error", err: nil, expected: ActionFail},
		{name: "context canceled", err: context.Canceled, expected: ActionFail},
		{name: "context deadline exceeded", err: context.DeadlineExceeded, expected: ActionRetry},
		{name: "empty response", err: WrapError(ErrEmptyResponse, ProviderGemini, "m", 0), expected: ActionFallback},

		// Status codes carried by LLMError
		{name: "LLMError 429", err: &LLMError{Err: errors.New("rate limited"), StatusCode: http.StatusTooManyRequests}, expected: ActionRetry},
		{name: "LLMError 500", err: &LLMError{Err: errors.New("server error"), StatusCode: http.StatusInternalServerError}, expected: ActionRetry},
		{name: "LLMError 400", err: &LLMError{Err: errors.New("bad request"), StatusCode: http.StatusBadRequest}, expected: ActionFail},
		{name: "LLMError 401", err: &LLMError{Err: errors.New("unauthorized"), StatusCode: http.StatusUnauthorized}, expected: ActionFail},
		{name: "LLMError without status uses text", err: &LLMError{Err: errors.New("quota exceeded")}, expected: ActionFallback},

		// Message patterns
		{name: "quota exhausted", err: errors.New("quota exceeded"), expected: ActionFallback},
		{name: "resource exhausted with quota", err: errors.New("RESOURCE_EXHAUSTED: quota limit"), expected: ActionFallback},
		{name: "rate limit text", err: errors.New("Error 429, Message: rate limit"), expected: ActionRetry},
		{name: "service unavailable", err: errors.New("service unavailable"), expected: ActionRetry},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), expected: ActionRetry},
		{name: "unauthorized text", err: errors.New("401 unauthorized"), expected: ActionFail},
		{name: "forbidden", err: errors.New("permission denied"), expected: ActionFail},
		{name: "unknown error", err: errors.New("something odd"), expected: ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if WrapError(nil, ProviderGroq, "m", 500) != nil {
		t.Error("WrapError(nil) should return nil")
	}

	base := errors.New("boom")
	err := WrapError(base, ProviderGroq, "llama", http.StatusServiceUnavailable)

	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("WrapError() = %T, want *LLMError", err)
	}
	if !errors.Is(err, base) {
		t.Error("WrapError() should unwrap to the original error")
	}
	if llmErr.Provider != ProviderGroq || llmErr.Model != "llama" || !llmErr.Retryable {
		t.Errorf("LLMError = %+v", llmErr)
	}
	if got := err.Error(); got != "boom (status: 503)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("outer: %w", errors.New("daily limit reached"))

	if !ShouldFallback(wrapped) {
		t.Error("ShouldFallback() = false for quota error")
	}
	if !IsRetryable(errors.New("503 bad gateway")) {
		t.Error("IsRetryable() = false for 503")
	}
	if !IsPermanent(errors.New("404 not found")) {
		t.Error("IsPermanent() = false for 404")
	}
}

func TestErrorActionString(t *testing.T) {
	t.Parallel()
	for action, want := range map[ErrorAction]string{ActionRetry: "retry", ActionFallback: "fallback", ActionFail: "fail", ErrorAction(9): "unknown"} {
		if got := action.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", action, got, want)
		}
	}
}
