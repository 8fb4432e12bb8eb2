// Package ingest adapts push transports (Kafka, MQTT) to the pipeline.
package ingest

import (
	"context"

	"vehiclepush/internal/parser"
	"vehiclepush/internal/pipeline"
)

// Handler is the pipeline entry point used by every transport.
type Handler interface {
	Handle(ctx context.Context, raw parser.RawMessage) (pipeline.Decision, error)
}

const (
	originKafka = "kafka:"
	originMQTT  = "mqtt:"
)
