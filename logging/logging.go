package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger represents a logger instance
type Logger = *logrus.Logger

// Fields represents structured logging fields
type Fields = logrus.Fields

// Format selects the log line layout
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// NewLogger creates a logger writing JSON lines at the given level
func NewLogger(level string) *logrus.Logger {
	return New(FormatJSON, level)
}

// New creates a logger with the given format and level. Unknown levels fall
// back to info.
func New(format Format, level string) *logrus.Logger {
	logger := logrus.New()
	switch format {
	case FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetLevel(ParseLevel(level))
	return logger
}

// NewLoggerWithComponent creates a logger whose entries carry a component field
func NewLoggerWithComponent(component, level string) *logrus.Entry {
	return NewLogger(level).WithField("component", component)
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ParseLevel maps a level name to a logrus level
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
