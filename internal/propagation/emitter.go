package propagation

import (
	"context"
	"encoding/json"
	"time"

	"authlinks/internal/broker"
	"authlinks/internal/constants"
	"authlinks/internal/logger"
)

// KafkaEmitter serializes correction events onto the tenant-scoped
// output topic, keyed by authority id so corrections for one authority
// stay ordered within a partition.
type KafkaEmitter struct {
	producer    broker.Producer
	environment string
	outputTopic string
	logger      logger.Logger
}

func NewKafkaEmitter(producer broker.Producer, environment, outputTopic string, log logger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		producer:    producer,
		environment: environment,
		outputTopic: outputTopic,
		logger:      log,
	}
}

func (e *KafkaEmitter) Publish(ctx context.Context, tenantID string, events []LinksChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	topic := broker.TenantTopic(e.environment, tenantID, e.outputTopic)
	msgs := make([]broker.Message, 0, len(events))
	now := time.Now()

	for _, event := range events {
		event.Tenant = tenantID
		if event.Timestamp.IsZero() {
			event.Timestamp = now
		}

		value, err := json.Marshal(event)
		if err != nil {
			return err
		}

		headers := map[string]string{
			constants.HeaderDomainEventType: constants.DomainEventTypeLinksChange,
			constants.HeaderTenant:          tenantID,
		}
		if event.JobID != nil {
			headers[constants.HeaderJobID] = event.JobID.String()
		}

		msgs = append(msgs, broker.Message{
			Key:     []byte(event.AuthorityID.String()),
			Value:   value,
			Headers: headers,
		})
	}

	if err := e.producer.Publish(ctx, topic, msgs...); err != nil {
		return err
	}

	e.logger.DebugwCtx(ctx, "Published links change events",
		"topic", topic, "events", len(msgs))
	return nil
}
