package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestGetLogFields(t *testing.T) {
	ctx := WithMessageID(context.Background(), "m-1")
	ctx = WithOrigin(ctx, "mqtt:vehicles/V1/push")
	ctx = WithVehicleID(ctx, "V1")

	assert.Equal(t, []interface{}{
		MessageIDKey, "m-1",
		OriginKey, "mqtt:vehicles/V1/push",
		VehicleIDKey, "V1",
	}, GetLogFields(ctx))

	assert.Empty(t, GetLogFields(context.Background()))
}

func TestGetTraceID(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanCtx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{1},
	}))

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(spanCtx))
	assert.Equal(t, "explicit", GetTraceID(WithTraceID(spanCtx, "explicit")))
	assert.Empty(t, GetTraceID(context.Background()))
}
