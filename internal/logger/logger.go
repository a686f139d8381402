package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents logging level
type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns string representation of log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses log level from string, unknown values map to INFO
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes leveled key=value lines. Child loggers created with With
// share the level and writer of their parent.
type Logger struct {
	level  *atomic.Int32
	logger *log.Logger
	fields []interface{}
}

// New creates a new logger with specified level
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger with specified level and writer
func NewWithWriter(level Level, w io.Writer) *Logger {
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))
	return &Logger{
		level:  lvl,
		logger: log.New(w, "", 0),
	}
}

// With returns a child logger that prepends the given key/value pairs to every line
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{
		level:  l.level,
		logger: l.logger,
		fields: merged,
	}
}

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if int32(level) < l.level.Load() {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	all := fields
	if len(l.fields) > 0 {
		all = make([]interface{}, 0, len(l.fields)+len(fields))
		all = append(all, l.fields...)
		all = append(all, fields...)
	}

	fieldsStr := ""
	if len(all) > 0 {
		parts := make([]string, 0, len(all)/2)
		for i := 0; i < len(all)-1; i += 2 {
			parts = append(parts, fmt.Sprintf("%v=%v", all[i], all[i+1]))
		}
		if len(parts) > 0 {
			fieldsStr = " " + strings.Join(parts, " ")
		}
	}

	l.logger.Printf("[%s] %s: %s%s", timestamp, level.String(), msg, fieldsStr)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ERROR, msg, fields...)
}

// SetLevel sets the logging level for this logger and all its children
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Secret masks a sensitive value, keeping only the first five characters
func Secret(value string) string {
	if value == "" {
		return "?"
	}
	if len(value) > 5 {
		return value[:5] + "***"
	}
	return "***"
}
