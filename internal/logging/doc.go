// Package logging provides structured logging for dstui.
//
// This package wraps zap with convenience functions for the logging
// patterns used throughout the client. Because the application owns the
// terminal while the TUI is running, logging defaults to silent mode and
// only emits output when DSTUI_LOG_LEVEL is set, in which case everything
// goes to stderr so it can be redirected to a file:
//
//	DSTUI_LOG_LEVEL=debug dstui 2>dstui.log
//
// # Log Levels
//
//   - Debug: API calls, poll cycles, envelope decoding detail
//   - Info: session lifecycle (login, refresh, logout)
//   - Warn: transient failures (poll errors, retries, skipped TLS verification)
//   - Error: startup failures, unrecoverable errors
//
// # Secrets
//
// Credentials and session tokens are never logged at any level. Helper
// functions in this package take only non-sensitive fields on purpose.
package logging
