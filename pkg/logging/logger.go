package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &output{writer: writer},
		level: level,
	}
}

// NewLogger creates a JSON logger from a textual level such as "debug".
func NewLogger(writer io.Writer, level string) *JSONLogger {
	return NewJSONLogger(writer, ParseLevel(level))
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	var fieldMap map[string]any
	if n := len(l.fields) + len(fields); n > 0 {
		fieldMap = make(map[string]any, n)
		for _, f := range l.fields {
			fieldMap[f.Key] = f.Value
		}
		// Call-site fields win over preset ones
		for _, f := range fields {
			fieldMap[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
		Fields:  fieldMap,
	})

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.out.writer, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}
	data = append(data, '\n')
	l.out.writer.Write(data)
}

func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set. The child shares
// the parent's writer and starts at the parent's current level.
func (l *JSONLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{
		out:    l.out,
		level:  l.GetLevel(),
		fields: newFields,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.level
}

var (
	defaultLogger Logger
	defaultMu     sync.Mutex
)

// DefaultLogger returns the process-wide logger. It writes to stderr so that
// stdout stays free for results, at the level named by CENTRALITY_LOG_LEVEL
// or LOG_LEVEL.
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		level := os.Getenv("CENTRALITY_LOG_LEVEL")
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		defaultLogger = NewLogger(os.Stderr, level)
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the timer started
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation at info level with its duration
func (t *TimedOperation) End(fields ...Field) time.Duration {
	elapsed := t.Elapsed()
	t.logger.Info(t.msg, t.withLatency(elapsed, fields)...)
	return elapsed
}

// EndWarn logs the operation at warn level with its duration
func (t *TimedOperation) EndWarn(msg string, fields ...Field) time.Duration {
	elapsed := t.Elapsed()
	t.logger.Warn(msg, t.withLatency(elapsed, fields)...)
	return elapsed
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error, fields ...Field) time.Duration {
	elapsed := t.Elapsed()
	t.logger.Error(t.msg, t.withLatency(elapsed, append(fields, Error(err)))...)
	return elapsed
}

func (t *TimedOperation) withLatency(elapsed time.Duration, extra []Field) []Field {
	out := make([]Field, 0, len(t.fields)+len(extra)+1)
	out = append(out, t.fields...)
	out = append(out, extra...)
	return append(out, Latency(elapsed))
}
