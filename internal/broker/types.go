package broker

import (
	"context"
)

// Message is one raw broker record. Partition and Offset identify the
// source position for redelivery deduplication.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
}

type Producer interface {
	Publish(ctx context.Context, topic string, msgs ...Message) error
	Close() error
}

// BatchHandlerFunc processes one bounded batch of messages. The batch
// is committed only after the handler returns.
type BatchHandlerFunc func(ctx context.Context, msgs []Message) error

type Consumer interface {
	Consume(ctx context.Context, topic string, handler BatchHandlerFunc) error
	Close() error
	SetServiceName(name string)
}
