package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

func TestFromContext(t *testing.T) {
	logger := events.FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	logger := events.NewTestLogger(events.InfoLevel, "text", &bytes.Buffer{})

	ctx := events.WithLogger(context.Background(), logger)
	assert.Same(t, logger, events.FromContext(ctx))
}

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.InfoLevel, "json", &buf)

	ctx := events.WithLogger(context.Background(), logger)
	ctx = events.WithOperation(ctx, models.OpUpload)

	assert.Equal(t, models.OpUpload, events.GetOperation(ctx))

	events.FromContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), `"op":"upload"`)
}

func TestGetOperationEmpty(t *testing.T) {
	assert.Empty(t, events.GetOperation(context.Background()))
}

func TestSetDefault(t *testing.T) {
	customLogger := events.NewTestLogger(events.InfoLevel, "text", &bytes.Buffer{})
	events.SetDefault(customLogger)

	assert.Same(t, customLogger, events.FromContext(context.Background()))
}
