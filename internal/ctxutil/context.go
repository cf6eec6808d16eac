// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	sessionIDKey contextKey = "ctxutil.sessionID"
	requestIDKey contextKey = "ctxutil.requestID"
)

// WithSessionID adds a chat session ID to the context.
// The session ID identifies the conversation stack and pending state a turn belongs to.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID retrieves the session ID from the context.
// Returns empty string if not set.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
// A request ID is generated per processed utterance for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// PreserveTracing creates a detached context that keeps the tracing values
// (session ID, request ID) but not the parent's cancellation or deadline.
//
// Used for work that must outlive the request that started it, such as the
// PDF viewer launched after a constancia decision.
func PreserveTracing(ctx context.Context) context.Context {
	detached := context.Background()
	if sessionID := GetSessionID(ctx); sessionID != "" {
		detached = WithSessionID(detached, sessionID)
	}
	if requestID, ok := GetRequestID(ctx); ok {
		detached = WithRequestID(detached, requestID)
	}
	return detached
}
