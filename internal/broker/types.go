package broker

import "context"

// Message is a transport-neutral broker record.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Producer interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one record. Records are never redelivered: a
// returned error routes the record to the DLQ when one is configured.
type HandlerFunc func(ctx context.Context, msg Message) error
