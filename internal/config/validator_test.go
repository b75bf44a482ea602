package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{Host: "localhost", Port: 5432, DBName: "authlinks"},
		},
		Broker: BrokerConfig{
			Type: "kafka",
			Kafka: KafkaConfig{
				Brokers:     []string{"localhost:9092"},
				GroupID:     "propagation-service",
				Environment: "folio",
				InputTopic:  "authorities.authority",
				OutputTopic: "links.instance-authority",
			},
		},
		Propagation: PropagationConfig{LinkPageSize: 100, Concurrency: 2},
	}
}

func TestValidateStatic_Valid(t *testing.T) {
	assert.NoError(t, ValidateStatic(validConfig()))
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "server.port",
		},
		{
			name:    "missing broker type",
			mutate:  func(c *Config) { c.Broker.Type = "" },
			wantMsg: "broker type is required",
		},
		{
			name:    "unknown broker type",
			mutate:  func(c *Config) { c.Broker.Type = "rabbitmq" },
			wantMsg: "unknown broker type",
		},
		{
			name:    "no kafka brokers",
			mutate:  func(c *Config) { c.Broker.Kafka.Brokers = nil },
			wantMsg: "at least one Kafka broker",
		},
		{
			name:    "missing group id",
			mutate:  func(c *Config) { c.Broker.Kafka.GroupID = "" },
			wantMsg: "group ID is required",
		},
		{
			name:    "missing environment",
			mutate:  func(c *Config) { c.Broker.Kafka.Environment = "" },
			wantMsg: "environment prefix",
		},
		{
			name:    "missing input topic",
			mutate:  func(c *Config) { c.Broker.Kafka.InputTopic = "" },
			wantMsg: "input topic is required",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantMsg: "postgres host is required",
		},
		{
			name:    "non-positive page size",
			mutate:  func(c *Config) { c.Propagation.LinkPageSize = 0 },
			wantMsg: "link page size",
		},
		{
			name: "consortium enabled without central tenant",
			mutate: func(c *Config) {
				c.Consortium = ConsortiumConfig{Enabled: true, Workers: 4}
			},
			wantMsg: "central tenant is required",
		},
		{
			name: "consortium enabled without workers",
			mutate: func(c *Config) {
				c.Consortium = ConsortiumConfig{Enabled: true, CentralTenant: "consortium"}
			},
			wantMsg: "worker count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateStatic_ConsortiumDisabledSkipsChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Consortium = ConsortiumConfig{Enabled: false}
	assert.NoError(t, ValidateStatic(cfg))
}
