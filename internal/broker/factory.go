package broker

import (
	"fmt"

	"authlinks/internal/config"
	"authlinks/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, prop config.PropagationConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, prop, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// TenantTopic builds the tenant-scoped topic name
// {environment}.{tenant}.{topic}.
func TenantTopic(environment, tenant, topic string) string {
	return fmt.Sprintf("%s.%s.%s", environment, tenant, topic)
}
