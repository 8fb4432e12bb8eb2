package broker

import (
	"fmt"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
)

const typeKafka = "kafka"

func unsupported(brokerType string) error {
	return fmt.Errorf("unknown broker type %q (supported: %s)", brokerType, typeKafka)
}

// NewProducer returns the producer used for broadcasts, DLQ records and the
// send command.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if cfg.Type != typeKafka {
		return nil, unsupported(cfg.Type)
	}
	return NewKafkaProducer(cfg.Kafka, log.Named("kafka-producer")), nil
}

// NewConsumer returns the consumer of the push input topic.
func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	if cfg.Type != typeKafka {
		return nil, unsupported(cfg.Type)
	}
	return NewKafkaConsumer(cfg.Kafka, log.Named("kafka-consumer")), nil
}
