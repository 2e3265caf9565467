package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// writeLog formats and emits a single log line.
// DEBUG/INFO/WARN go to stdout, ERROR/FATAL to stderr.
func (l *Logger) writeLog(level, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("[%s] [%s] %s: %s", Timestamp(), level, l.name, msg)

	if len(fields) > 0 {
		line += " |"
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	if level == levelNameError || level == levelNameFatal {
		fmt.Fprintf(os.Stderr, "%s\n", line)
	} else {
		log.Println(line)
	}
}

func (l *Logger) logf(level, msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)

	contextFields := extractContextFields(l.ctx)
	var merged map[string]interface{}
	if contextFields != nil || len(l.fields) > 0 {
		merged = make(map[string]interface{})
		for k, v := range contextFields {
			merged[k] = v
		}
		for k, v := range l.fields {
			merged[k] = v
		}
	}

	l.writeLog(level, formatted, merged)
}

// Timestamp returns an RFC3339 timestamp for log lines.
// LOG_TIMESTAMP overrides the clock for deterministic test output.
func Timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey returns the context key under which a trace ID is stored.
func TraceIDKey() interface{} { return traceIDKey }

// SpanIDKey returns the context key under which a span ID is stored.
func SpanIDKey() interface{} { return spanIDKey }

// extractContextFields pulls trace_id/span_id out of ctx if present.
// Returns nil when ctx is nil or carries neither value.
func extractContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}

	var fields map[string]interface{}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		fields = map[string]interface{}{"trace_id": traceID}
	}
	if spanID, ok := ctx.Value(spanIDKey).(string); ok && spanID != "" {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["span_id"] = spanID
	}
	return fields
}
