// Package logging provides leveled, structured logging for crucible.
//
// Components obtain a named logger via GetLogger and attach persistent
// key/value fields with WithField/WithFields. Logger instances are
// immutable; the With* methods return copies, so loggers are safe to
// share across goroutines.
//
//	logger := logging.GetLogger("engine")
//	logger.InfoWithFields("validation finished",
//	    logging.Field("hypothesis_id", id),
//	    logging.Field("status", status),
//	)
//
// Per-package level overrides allow targeted debugging without turning
// the whole process to DEBUG:
//
//	logging.Initialize("info", map[string]string{"strategy.*": "debug"})
package logging

import (
	"context"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is called by Fatal. Overridable in tests.
	exitFunc = os.Exit
)

// Initialize sets up the global logger with the given default level and
// optional per-package overrides (e.g. {"strategy.*": "debug"}).
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "crucible",
	}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger with the given component name.
// The global logger is lazily initialized at INFO on first use.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// Logger writes leveled log lines for a named component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := PackageLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a formatted debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(levelNameDebug, msg, args...)
	}
}

// Info logs a formatted info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(levelNameInfo, msg, args...)
	}
}

// Warn logs a formatted warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(levelNameWarn, msg, args...)
	}
}

// Error logs a formatted error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(levelNameError, msg, args...)
	}
}

// ErrorWithErr logs an error message with the error appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(levelNameError, msg+" - %v", args...)
	}
}

// Fatal logs a fatal message and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(levelNameFatal, msg, args...)
		exitFunc(1)
	}
}

// WithName returns a logger with a different component name.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
		ctx:    l.ctx,
	}
}

// WithField returns a copy of the logger with one persistent field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	clone.fields[key] = value
	return clone
}

// WithFields returns a copy of the logger with persistent fields added.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	for _, f := range fields {
		clone.fields[f.Key] = f.Value
	}
	return clone
}

// WithContext returns a copy of the logger that extracts trace_id and
// span_id from ctx on every log line.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    ctx,
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields(levelNameDebug, msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields(levelNameInfo, msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields(levelNameWarn, msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(levelNameError, msg, fields...)
	}
}

func (l *Logger) logWithFields(level, msg string, fields ...LogField) {
	contextFields := extractContextFields(l.ctx)

	// Merge priority (last wins): context < persistent < call-site.
	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 || len(fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
	}

	l.writeLog(level, msg, merged)
}

// LogField is a single structured logging field.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// LogLevel represents a logging severity level.
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
	// FATAL level for fatal messages
	FATAL
)

const (
	levelNameDebug = "DEBUG"
	levelNameInfo  = "INFO"
	levelNameWarn  = "WARN"
	levelNameError = "ERROR"
	levelNameFatal = "FATAL"
)

func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case levelNameDebug:
		return DEBUG, nil
	case levelNameInfo:
		return INFO, nil
	case levelNameWarn:
		return WARN, nil
	case levelNameError:
		return ERROR, nil
	case levelNameFatal:
		return FATAL, nil
	default:
		return -1, &invalidLevelError{levelStr}
	}
}

type invalidLevelError struct {
	level string
}

func (e *invalidLevelError) Error() string {
	return "invalid log level: " + e.level + " (must be DEBUG, INFO, WARN, ERROR, or FATAL)"
}
