package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrNotFound is recognized",
			err:      ErrNotFound,
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Joined ErrNotFound is recognized",
			err:      errors.Join(ErrNotFound, errors.New("additional context")),
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Different error is not ErrNotFound",
			err:      ErrRateLimitExceeded,
			checkFn:  IsNotFound,
			expected: false,
		},
		{
			name:     "ErrRateLimitExceeded is recognized",
			err:      fmt.Errorf("quota: %w", ErrRateLimitExceeded),
			checkFn:  IsRateLimitExceeded,
			expected: true,
		},
		{
			name:     "ErrMissingParameter is recognized",
			err:      fmt.Errorf("%w: grado", ErrMissingParameter),
			checkFn:  IsMissingParameter,
			expected: true,
		},
		{
			name:     "ValidationError is recognized",
			err:      fmt.Errorf("load: %w", NewValidationError("buscar_alumno", "bad")),
			checkFn:  IsValidationError,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checkFn(tt.err); got != tt.expected {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"typed", New(KindNoMatch, "search", ""), KindNoMatch},
		{"wrapped typed", fmt.Errorf("outer: %w", Wrap(errors.New("disk"), KindStoreError, "execute", "")), KindStoreError},
		{"missing parameter sentinel", fmt.Errorf("%w: nombre", ErrMissingParameter), KindMissingParameter},
		{"empty utterance sentinel", ErrEmptyUtterance, KindInvalidInput},
		{"no reference sentinel", ErrNoReference, KindAmbiguousReference},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(nil, KindStoreError, "op", "") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	cause := errors.New("database is locked")
	err := Wrap(cause, KindStoreError, "execute", "")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "store_error:execute") {
		t.Errorf("Error() = %q, want kind and op prefix", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	custom := New(KindNoMatch, "search", "No hay alumnos en 6° F.")
	if got := UserMessage(custom); got != "No hay alumnos en 6° F." {
		t.Errorf("UserMessage() = %q, want custom message", got)
	}

	if got := UserMessage(ErrRateLimitExceeded); got != DefaultMessage(KindRateLimited) {
		t.Errorf("UserMessage(sentinel) = %q, want rate-limited default", got)
	}

	for _, kind := range []Kind{
		KindParseFailure, KindAmbiguousReference, KindAmbiguousName, KindNoMatch,
		KindMissingParameter, KindStoreError, KindLLMTransport, KindInvalidInput,
		KindRateLimited, KindInternal,
	} {
		if DefaultMessage(kind) == "" {
			t.Errorf("DefaultMessage(%q) is empty", kind)
		}
	}
}
