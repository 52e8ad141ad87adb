// Package log provides structured logging to both console and file.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the log file written inside the log directory.
const FileName = "partmatch.log"

// Logger writes human-readable output to stderr and JSON lines to a log file.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New creates a logger writing to stderr and to FileName in logDir.
func New(logDir, level string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, FileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return &Logger{
		Logger: newLogger(zerolog.MultiLevelWriter(console, file), level),
		file:   file,
	}, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names give info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Global logger instance
var globalLogger *Logger

// Init initializes the global logger.
func Init(logDir, level string) error {
	logger, err := New(logDir, level)
	if err != nil {
		return err
	}
	if globalLogger != nil {
		_ = globalLogger.Close()
	}
	globalLogger = logger
	return nil
}

// Get returns the global logger, or a disabled logger before Init.
func Get() zerolog.Logger {
	if globalLogger != nil {
		return globalLogger.Logger
	}
	return zerolog.Nop()
}

// Close closes the global logger.
func Close() error {
	if globalLogger != nil {
		err := globalLogger.Close()
		globalLogger = nil
		return err
	}
	return nil
}
