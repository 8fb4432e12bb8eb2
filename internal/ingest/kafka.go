package ingest

import (
	"context"
	"encoding/json"

	"vehiclepush/internal/broker"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	apperrors "vehiclepush/pkg/errors"
	"vehiclepush/pkg/logging"
	"vehiclepush/pkg/models"
)

// NewKafkaHandler decodes push envelopes from topic and runs them through h.
// Undecodable records fail with a validation error so the consumer routes
// them to the DLQ as rejected.
func NewKafkaHandler(h Handler, topic string, log logger.Logger) broker.HandlerFunc {
	log = log.Named("kafka-ingest")

	return func(ctx context.Context, msg broker.Message) error {
		var envelope models.PushEnvelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			log.WarnwCtx(ctx, "Undecodable push envelope", "topic", topic, "error", err)
			return apperrors.ErrValidation.WithMessage("invalid push envelope").WithCause(err)
		}

		if envelope.ID != "" {
			ctx = logging.WithMessageID(ctx, envelope.ID)
		}
		if envelope.Metadata.TraceID != "" {
			ctx = logging.WithTraceID(ctx, envelope.Metadata.TraceID)
		}

		origin := envelope.Source
		if origin == "" {
			origin = topic
		}

		_, err := h.Handle(ctx, parser.RawMessage{
			Title:   envelope.Push.Title,
			Type:    envelope.Push.Type,
			Message: envelope.Push.Message,
			Time:    envelope.Push.Time,
			Origin:  originKafka + origin,
		})
		return err
	}
}
