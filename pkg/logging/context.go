package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	OriginKey      = "origin"
	VehicleIDKey   = "vehicle_id"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, contextKey(MessageIDKey), messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

// WithOrigin records the transport a push arrived on (kafka topic, mqtt topic, http).
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, contextKey(OriginKey), origin)
}

func WithVehicleID(ctx context.Context, vehicleID string) context.Context {
	return context.WithValue(ctx, contextKey(VehicleIDKey), vehicleID)
}

// GetTraceID prefers an explicit trace id and falls back to the active span.
func GetTraceID(ctx context.Context) string {
	if id := getString(ctx, TraceIDKey); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func GetMessageID(ctx context.Context) string {
	return getString(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return getString(ctx, ServiceNameKey)
}

func GetOrigin(ctx context.Context) string {
	return getString(ctx, OriginKey)
}

func GetVehicleID(ctx context.Context) string {
	return getString(ctx, VehicleIDKey)
}

func getString(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, TraceIDKey, id)
	}
	for _, key := range []string{MessageIDKey, ServiceNameKey, OriginKey, VehicleIDKey} {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
