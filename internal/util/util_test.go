package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	tp, err := InitTracer("catalog-test", "", 5)
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := StartSpan(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsSampled())
}

func TestSpanErrorMarksSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	_, ok := tp.Tracer("t").Start(context.Background(), "ok")
	SpanError(ok, nil)
	ok.End()

	_, failed := tp.Tracer("t").Start(context.Background(), "failed")
	SpanError(failed, errors.New("store down"))
	failed.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "store down", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
}

func TestComponentLoggerIsNamed(t *testing.T) {
	require.NoError(t, InitLogger("test", "catalog-test"))
	assert.NotNil(t, Component("seed"))
	assert.Same(t, GetLogger(), GetLogger())
}
