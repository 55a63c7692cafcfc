package events

import (
	"context"
	"os"
	"sync"

	"github.com/TheMichaelB/sharegate/internal/models"
)

type contextKey int

const (
	loggerKey contextKey = iota
	operationKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithOperation tags the context logger with the running operation.
func WithOperation(ctx context.Context, op models.Operation) context.Context {
	logger := FromContext(ctx).WithField("op", string(op))
	ctx = context.WithValue(ctx, operationKey, op)
	return WithLogger(ctx, logger)
}

// GetOperation retrieves the operation tag from context.
func GetOperation(ctx context.Context) models.Operation {
	if op, ok := ctx.Value(operationKey).(models.Operation); ok {
		return op
	}
	return ""
}

var defaultLogger = &Logger{
	mu:     &sync.Mutex{},
	level:  InfoLevel,
	format: "text",
	output: os.Stderr,
	fields: make(map[string]interface{}),
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
