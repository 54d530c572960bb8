package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output), which keeps log
// lines from tearing through the terminal UI.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "DSTUI_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks DSTUI_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	// Silent mode: the TUI owns the terminal
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the DSTUI_LOG_LEVEL
// environment variable. Silent mode by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogAPICall logs a Download Station API request. The session token and
// credentials must never appear in the fields.
func LogAPICall(api string, method string, path string) {
	Debug("API call",
		zap.String("api", api),
		zap.String("method", method),
		zap.String("path", path),
	)
}

// LogPollCycle logs the outcome of one background poll cycle.
func LogPollCycle(tasks int, err error) {
	if err != nil {
		Warn("poll cycle failed", zap.Error(err))
		return
	}
	Debug("poll cycle complete", zap.Int("tasks", tasks))
}

// LogTaskAction logs the result of a task control action.
func LogTaskAction(action string, taskID string, err error) {
	if err != nil {
		Warn("task action failed",
			zap.String("action", action),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}
	Debug("task action applied",
		zap.String("action", action),
		zap.String("task_id", taskID),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
