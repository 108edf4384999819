// Package charmlog adapts github.com/charmbracelet/log to the domain Logger interface.
package charmlog

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

// LevelEnv overrides the log level when --log-level is not given
const LevelEnv = "AIJ_LOG_LEVEL"

// Logger implements interfaces.Logger
type Logger struct {
	l *log.Logger
}

// New creates a logger writing to stderr at the given level
func New(level string) *Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, level string) *Logger {
	return &Logger{
		l: log.NewWithOptions(w, log.Options{
			Level:           ParseLevel(level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		}),
	}
}

// ParseLevel maps a level name to a log.Level; unknown names mean info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ResolveLevel picks the flag value, then AIJ_LOG_LEVEL, then info
func ResolveLevel(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(LevelEnv); env != "" {
		return env
	}
	return "info"
}

// SetLevel changes the level after construction
func (c *Logger) SetLevel(level string) {
	c.l.SetLevel(ParseLevel(level))
}

// With returns a child logger that adds the given fields to every entry
func (c *Logger) With(fields ...interfaces.Field) *Logger {
	return &Logger{l: c.l.With(keyvals(fields)...)}
}

// Debug logs at debug level
func (c *Logger) Debug(msg string, fields ...interfaces.Field) {
	c.l.Debug(msg, keyvals(fields)...)
}

// Info logs at info level
func (c *Logger) Info(msg string, fields ...interfaces.Field) {
	c.l.Info(msg, keyvals(fields)...)
}

// Warn logs at warn level
func (c *Logger) Warn(msg string, fields ...interfaces.Field) {
	c.l.Warn(msg, keyvals(fields)...)
}

// Error logs at error level
func (c *Logger) Error(msg string, fields ...interfaces.Field) {
	c.l.Error(msg, keyvals(fields)...)
}

func keyvals(fields []interfaces.Field) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
