// Package logging provides the component-scoped structured logger used across
// the orders service.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

var base = newBase(os.Stderr)

func newBase(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure sets the global level ("debug", "info", "warn", "error") and
// format ("text" or "json"). Unknown levels fall back to info.
func Configure(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects all loggers.
func SetOutput(out io.Writer) {
	base.SetOutput(out)
}

// Logger is a structured logger bound to one component.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{entry: base.WithField("component", component)}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.withFields(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.withFields(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.withFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.withFields(fields).Error(msg)
}

// Fatal logs and exits the process with status 1.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.withFields(fields).Fatal(msg)
}

func (l *Logger) withFields(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores a request ID on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored on ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
