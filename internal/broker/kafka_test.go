package broker

import (
	"context"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	"vehiclepush/pkg/errors"
)

type recordingProducer struct {
	topics   []string
	messages []Message
}

func (p *recordingProducer) Publish(_ context.Context, topic string, msg Message) error {
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func newTestConsumer(dlq Producer) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:         config.KafkaConfig{DLQTopic: "push.dlq"},
		logger:      logger.NopLogger(),
		dlqProducer: dlq,
		serviceName: "test",
	}
}

func TestKafkaConsumer_Handle(t *testing.T) {
	tests := []struct {
		name       string
		handler    HandlerFunc
		wantDLQ    bool
		wantReason string
	}{
		{
			name:    "success is not dead-lettered",
			handler: func(context.Context, Message) error { return nil },
		},
		{
			name: "validation error",
			handler: func(context.Context, Message) error {
				return errors.ErrValidation.WithMessage("message is required")
			},
			wantDLQ:    true,
			wantReason: "rejected",
		},
		{
			name: "store failure",
			handler: func(context.Context, Message) error {
				return errors.Wrap(fmt.Errorf("redis down"), errors.ErrStoreUnavailable)
			},
			wantDLQ:    true,
			wantReason: "processing_failed",
		},
		{
			name:       "panic",
			handler:    func(context.Context, Message) error { panic("nil registry") },
			wantDLQ:    true,
			wantReason: "panic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlq := &recordingProducer{}
			c := newTestConsumer(dlq)

			c.handle(context.Background(), kafka.Message{
				Topic:   "push.in",
				Key:     []byte("V1"),
				Value:   []byte(`{"push":{}}`),
				Headers: []kafka.Header{{Key: "origin", Value: []byte("test")}},
			}, "push.in", tt.handler)

			if !tt.wantDLQ {
				assert.Empty(t, dlq.messages)
				return
			}
			require.Len(t, dlq.messages, 1)
			assert.Equal(t, "push.dlq", dlq.topics[0])

			msg := dlq.messages[0]
			assert.Equal(t, []byte("V1"), msg.Key)
			assert.Equal(t, "test", msg.Headers["origin"])
			assert.Equal(t, tt.wantReason, msg.Headers[HeaderDLQReason])
			assert.Equal(t, "push.in", msg.Headers[HeaderDLQSourceTopic])
			assert.NotEmpty(t, msg.Headers[HeaderDLQError])
			assert.NotEmpty(t, msg.Headers[HeaderDLQTimestamp])
		})
	}
}

func TestKafkaConsumer_HandleWithoutDLQ(t *testing.T) {
	c := newTestConsumer(nil)
	assert.NotPanics(t, func() {
		c.handle(context.Background(), kafka.Message{Topic: "push.in"}, "push.in", func(context.Context, Message) error {
			return errors.ErrValidation
		})
	})
}

func TestFactory(t *testing.T) {
	log := logger.NopLogger()
	cfg := config.BrokerConfig{Type: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}

	p, err := NewProducer(cfg, log)
	require.NoError(t, err)
	assert.NoError(t, p.Close())

	c, err := NewConsumer(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &KafkaConsumer{}, c)

	_, err = NewProducer(config.BrokerConfig{Type: "nats"}, log)
	assert.ErrorContains(t, err, `unknown broker type "nats"`)
	_, err = NewConsumer(config.BrokerConfig{}, log)
	assert.Error(t, err)
}
