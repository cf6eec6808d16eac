// Package config provides centralized timeout constants for the application.
//
// The LLM budget dominates a chat turn: one detection call of at most
// LLMRequest, plus one immediate retry on transport errors. Everything
// else (SQLite, PDF conversion) is local and fast.
package config

import "time"

// LLM timeouts
const (
	// LLMRequest is the timeout for a single intent-detection call.
	LLMRequest = 15 * time.Second

	// TurnProcessing bounds one full ProcessMessage call:
	// two LLM attempts plus store and PDF work.
	TurnProcessing = 45 * time.Second
)

// HTTP server timeouts
const (
	HTTPReadHeader = 5 * time.Second
	HTTPRead       = 10 * time.Second
	// HTTPWrite must exceed TurnProcessing so replies are not cut off.
	HTTPWrite = 50 * time.Second
	HTTPIdle  = 120 * time.Second

	// ReadinessCheck bounds the database ping behind /readyz.
	ReadinessCheck = 3 * time.Second

	// GracefulShutdown is the default time allowed for in-flight turns to finish.
	GracefulShutdown = 30 * time.Second
)

// Database timeouts
const (
	// DatabaseBusy is the SQLite busy_timeout for lock contention.
	DatabaseBusy = 30 * time.Second

	// SlowOperation is the threshold above which queries and turns are logged as warnings.
	SlowOperation = 100 * time.Millisecond
)

// External tool timeouts
const (
	// PDFConversion bounds one HTML-to-PDF converter run.
	PDFConversion = 30 * time.Second

	// PDFExtraction bounds one PDF-to-text extractor run.
	PDFExtraction = 15 * time.Second

	// FileOpen bounds launching the OS file handler. The viewer itself is not waited on.
	FileOpen = 10 * time.Second

	// ArchiveUpload bounds one object upload to the archive bucket.
	ArchiveUpload = 30 * time.Second
)

// Session lifecycle
const (
	// SessionIdleTTL is how long an HTTP session may sit idle before the janitor closes it.
	SessionIdleTTL = 30 * time.Minute

	// JanitorInterval is how often idle sessions are swept.
	JanitorInterval = time.Minute
)
