package models

import (
	"time"

	"github.com/google/uuid"
)

type PushEnvelopeBuilder struct {
	envelope *PushEnvelope
}

func NewPushEnvelopeBuilder() *PushEnvelopeBuilder {
	return &PushEnvelopeBuilder{
		envelope: &PushEnvelope{},
	}
}

func (b *PushEnvelopeBuilder) WithID(id string) *PushEnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *PushEnvelopeBuilder) WithSource(source string) *PushEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *PushEnvelopeBuilder) WithReceivedAt(t time.Time) *PushEnvelopeBuilder {
	b.envelope.ReceivedAt = t
	return b
}

func (b *PushEnvelopeBuilder) WithPush(push PushFields) *PushEnvelopeBuilder {
	b.envelope.Push = push
	return b
}

func (b *PushEnvelopeBuilder) WithTraceID(traceID string) *PushEnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

// Build fills a random ID and the current time when they were not set.
func (b *PushEnvelopeBuilder) Build() *PushEnvelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.NewString()
	}
	if b.envelope.ReceivedAt.IsZero() {
		b.envelope.ReceivedAt = time.Now().UTC()
	}
	return b.envelope
}
