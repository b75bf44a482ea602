package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"authlinks/internal/config"
	"authlinks/internal/constants"
	"authlinks/internal/logger"
	"authlinks/pkg/errors"
	"authlinks/pkg/logging"
	"authlinks/pkg/metrics"
	"authlinks/pkg/retry"
	"authlinks/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
		// Tenant-scoped topics are created on demand when a tenant
		// first produces.
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		headers := make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		headers = tracing.InjectTraceContext(ctx, headers)

		kafkaMsgs = append(kafkaMsgs, kafka.Message{
			Topic:   topic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: headers,
			Time:    time.Now(),
		})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		return fmt.Errorf("failed to write kafka messages: %w", err)
	}
	metrics.ObserveKafkaWriteDuration("propagation-service", topic, time.Since(start))
	for range kafkaMsgs {
		metrics.IncKafkaMessagesWritten("propagation-service", topic)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	batchSize   int
	batchWindow time.Duration
	concurrency int
	wg          sync.WaitGroup
	readers     []*kafka.Reader
	readersMu   sync.Mutex
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, prop config.PropagationConfig, log logger.Logger) *KafkaConsumer {
	batchWindow := prop.BatchWindow
	if batchWindow <= 0 {
		batchWindow = 500 * time.Millisecond
	}

	consumer := &KafkaConsumer{
		cfg:         cfg,
		batchSize:   prop.BatchSize,
		batchWindow: batchWindow,
		concurrency: prop.Concurrency,
		logger:      log,
		serviceName: "unknown",
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

// Consume runs the configured number of workers against one consumer
// group. Each worker accumulates a bounded batch, hands it to the
// handler, and commits only after the handler returns. At-least-once:
// a crash mid-batch causes redelivery of the whole batch.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler BatchHandlerFunc) error {
	c.logger.Infow("Starting Kafka consumer workers",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"workers", c.concurrency,
		"batch_size", c.batchSize,
		"service_name", c.serviceName,
	)

	for i := 0; i < c.concurrency; i++ {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			GroupID:  c.cfg.GroupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		})
		c.readersMu.Lock()
		c.readers = append(c.readers, reader)
		c.readersMu.Unlock()

		c.wg.Add(1)
		go c.runWorker(ctx, i, topic, reader, handler)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) runWorker(ctx context.Context, worker int, topic string, reader *kafka.Reader, handler BatchHandlerFunc) {
	defer c.wg.Done()

	workerCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(workerCtx, "Started consuming",
		"topic", topic,
		"worker", worker,
	)

	for {
		raw, err := c.fetchBatch(ctx, reader)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(workerCtx, "Stopped consuming",
					"topic", topic,
					"worker", worker,
					"reason", "context canceled",
				)
				return
			}
			c.logger.ErrorwCtx(workerCtx, "Error fetching kafka messages",
				"error", err,
				"topic", topic,
				"worker", worker,
			)
			time.Sleep(time.Second)
			continue
		}
		if len(raw) == 0 {
			continue
		}

		msgs := make([]Message, 0, len(raw))
		for _, m := range raw {
			metrics.IncKafkaMessagesRead(c.serviceName, topic)
			msgs = append(msgs, toMessage(m))
		}
		metrics.BatchSize.Observe(float64(len(msgs)))

		msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume_batch", raw[0].Headers)
		msgCtx = logging.WithServiceName(msgCtx, c.serviceName)

		if err := c.processBatchWithRetry(msgCtx, msgs, handler, topic); err != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to process batch after retries",
				"error", err,
				"topic", topic,
				"batch_size", len(msgs),
			)
			c.routeBatchToDLQ(msgCtx, msgs, err, topic)
		}

		if err := reader.CommitMessages(ctx, raw...); err != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to commit batch",
				"error", err,
				"topic", topic,
			)
		}
		span.End()
	}
}

// fetchBatch reads up to batchSize messages, returning early once the
// batch window elapses after the first message arrives.
func (c *KafkaConsumer) fetchBatch(ctx context.Context, reader *kafka.Reader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := []kafka.Message{first}
	if c.batchSize <= 1 {
		return batch, nil
	}

	windowCtx, cancel := context.WithTimeout(ctx, c.batchWindow)
	defer cancel()

	for len(batch) < c.batchSize {
		m, err := reader.FetchMessage(windowCtx)
		if err != nil {
			if windowCtx.Err() != nil && ctx.Err() == nil {
				break
			}
			return batch, nil
		}
		batch = append(batch, m)
	}

	return batch, nil
}

func (c *KafkaConsumer) processBatchWithRetry(ctx context.Context, msgs []Message, handler BatchHandlerFunc, topic string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.RetryWithCallback(ctx, policy,
		func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.RecoverPanic(r)
					c.logger.ErrorwCtx(ctx, "Panic recovered during batch processing",
						"error", err,
						"topic", topic,
					)
				}
			}()
			return handler(ctx, msgs)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
			c.logger.WarnwCtx(ctx, "Retrying batch",
				"attempt", attempt,
				"error", err,
				"next_delay", nextDelay,
				"topic", topic,
			)
		},
	)
}

func (c *KafkaConsumer) routeBatchToDLQ(ctx context.Context, msgs []Message, procErr error, topic string) {
	if c.dlqProducer == nil || c.cfg.DLQTopic == "" {
		c.logger.WarnwCtx(ctx, "No DLQ configured, dropping failed batch",
			"topic", topic,
			"batch_size", len(msgs),
		)
		return
	}

	for _, msg := range msgs {
		dlqMsg := msg
		dlqMsg.Headers = cloneHeaders(msg.Headers)
		dlqMsg.Headers["dlq-error"] = procErr.Error()
		dlqMsg.Headers["dlq-source-topic"] = topic

		if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, dlqMsg); err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to send message to DLQ",
				"error", err,
				"topic", topic,
			)
			continue
		}
		metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, topic, "processing_failed").Inc()
	}
}

func (c *KafkaConsumer) Close() error {
	var err error
	c.readersMu.Lock()
	for _, reader := range c.readers {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.readersMu.Unlock()

	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.wg.Wait()
	return err
}

func toMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Partition: m.Partition,
		Offset:    m.Offset,
	}
}

func cloneHeaders(headers map[string]string) map[string]string {
	clone := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		clone[k] = v
	}
	return clone
}
