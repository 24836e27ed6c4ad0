// Package logging writes the human-readable run log,
// <data dir>/logs/feedkeeper-<date>.log. Machine-readable events go to the
// otel JSONL log instead.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the global logger instance. Nil until Init.
	Logger *log.Logger

	// logFile is the file handle for the log file
	logFile *os.File
)

// Init opens today's log file under dir/logs. verbose enables debug lines.
func Init(dir string, verbose bool) error {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, FileName(time.Now()))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	Close()
	logFile = f
	Logger = log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
	return nil
}

// FileName names the log file for the day of t.
func FileName(t time.Time) string {
	return fmt.Sprintf("feedkeeper-%s.log", t.Format("2006-01-02"))
}

// Close closes the log file. Safe to call without Init.
func Close() {
	if logFile != nil {
		logFile.Close()
	}
	Logger = nil
	logFile = nil
}

// Info logs an info message
func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
