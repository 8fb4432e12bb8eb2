package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"vehiclepush/internal/broker"
	"vehiclepush/internal/constants"
)

// KafkaBroadcaster publishes broadcast events to a topic. The event header
// distinguishes full notifications from refresh signals.
type KafkaBroadcaster struct {
	producer broker.Producer
	topic    string
}

func NewKafkaBroadcaster(producer broker.Producer, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{producer: producer, topic: topic}
}

func (k *KafkaBroadcaster) Emit(ctx context.Context, e BroadcastEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast event: %w", err)
	}
	return k.producer.Publish(ctx, k.topic, broker.Message{
		Key:     []byte(e.VehicleID),
		Value:   body,
		Headers: map[string]string{constants.EventHeader: constants.EventNotification},
	})
}

func (k *KafkaBroadcaster) Refresh(ctx context.Context) error {
	return k.producer.Publish(ctx, k.topic, broker.Message{
		Headers: map[string]string{constants.EventHeader: constants.EventRefresh},
	})
}
