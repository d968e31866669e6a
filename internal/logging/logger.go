// Package logging provides structured JSON logging with correlation ID
// propagation through context.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelRanks = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Logger writes structured JSON log lines
type Logger struct {
	mu      sync.Mutex
	output  io.Writer
	level   LogLevel
	service string
}

// LoggerOption configures a Logger
type LoggerOption func(*Logger)

// WithOutput sets the output writer for the logger
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.output = w
	}
}

// WithLevel sets the minimum log level
func WithLevel(level LogLevel) LoggerOption {
	return func(l *Logger) {
		l.level = level
	}
}

// WithService sets the service name for logs
func WithService(service string) LoggerOption {
	return func(l *Logger) {
		l.service = service
	}
}

// NewLogger creates a new Logger with the specified options
func NewLogger(opts ...LoggerOption) *Logger {
	logger := &Logger{
		output:  os.Stdout,
		level:   LevelInfo,
		service: "quotadeck",
	}

	for _, opt := range opts {
		opt(logger)
	}

	return logger
}

type logEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         LogLevel               `json:"level"`
	Service       string                 `json:"service"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) write(entry logEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	entry.Service = l.service

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}

	fmt.Fprintln(l.output, string(data))
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return levelRanks[level] >= levelRanks[l.level]
}

func (l *Logger) log(level LogLevel, message string, correlationID string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	l.write(logEntry{
		Level:         level,
		Message:       message,
		CorrelationID: correlationID,
		Fields:        fields,
	})

	if level == LevelFatal {
		os.Exit(1)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...interface{}) {
	correlationID, fieldMap := parseFields(fields)
	l.log(LevelDebug, message, correlationID, fieldMap)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...interface{}) {
	correlationID, fieldMap := parseFields(fields)
	l.log(LevelInfo, message, correlationID, fieldMap)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...interface{}) {
	correlationID, fieldMap := parseFields(fields)
	l.log(LevelWarn, message, correlationID, fieldMap)
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...interface{}) {
	correlationID, fieldMap := parseFields(fields)
	l.log(LevelError, message, correlationID, fieldMap)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields ...interface{}) {
	correlationID, fieldMap := parseFields(fields)
	l.log(LevelFatal, message, correlationID, fieldMap)
}

// DebugWithContext logs a debug message with correlation ID from context
func (l *Logger) DebugWithContext(ctx context.Context, message string, fields ...interface{}) {
	_, fieldMap := parseFields(fields)
	l.log(LevelDebug, message, GetCorrelationID(ctx), fieldMap)
}

// InfoWithContext logs an info message with correlation ID from context
func (l *Logger) InfoWithContext(ctx context.Context, message string, fields ...interface{}) {
	_, fieldMap := parseFields(fields)
	l.log(LevelInfo, message, GetCorrelationID(ctx), fieldMap)
}

// WarnWithContext logs a warning message with correlation ID from context
func (l *Logger) WarnWithContext(ctx context.Context, message string, fields ...interface{}) {
	_, fieldMap := parseFields(fields)
	l.log(LevelWarn, message, GetCorrelationID(ctx), fieldMap)
}

// ErrorWithContext logs an error message with correlation ID from context
func (l *Logger) ErrorWithContext(ctx context.Context, message string, fields ...interface{}) {
	_, fieldMap := parseFields(fields)
	l.log(LevelError, message, GetCorrelationID(ctx), fieldMap)
}

// parseFields parses variable key-value pairs into a map
// Expected format: key1, value1, key2, value2, ...
func parseFields(fields []interface{}) (string, map[string]interface{}) {
	correlationID := ""
	fieldMap := make(map[string]interface{})

	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if key == "correlation_id" {
			if id, ok := fields[i+1].(string); ok {
				correlationID = id
			}
			continue
		}
		fieldMap[key] = fields[i+1]
	}

	if len(fieldMap) == 0 {
		fieldMap = nil
	}
	return correlationID, fieldMap
}
