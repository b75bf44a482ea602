package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Propagation    PropagationConfig
	Consortium     ConsortiumConfig
	Integrations   IntegrationsConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// Environment prefixes every tenant-scoped topic:
	// {environment}.{tenant}.{topic}.
	Environment string      `mapstructure:"environment"`
	InputTopic  string      `mapstructure:"input_topic"`
	OutputTopic string      `mapstructure:"output_topic"`
	DLQTopic    string      `mapstructure:"dlq_topic"`
	Retry       RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PropagationConfig struct {
	// LinkPageSize bounds link pagination in the update and delete
	// handlers; one outbound event is emitted per page.
	LinkPageSize int               `mapstructure:"link_page_size"`
	Concurrency  int               `mapstructure:"concurrency"`
	BatchSize    int               `mapstructure:"batch_size"`
	BatchWindow  time.Duration     `mapstructure:"batch_window"`
	DedupeGuard  DedupeGuardConfig `mapstructure:"dedupe_guard"`
}

type DedupeGuardConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

type ConsortiumConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	CentralTenant string   `mapstructure:"central_tenant"`
	MemberTenants []string `mapstructure:"member_tenants"`
	Workers       int      `mapstructure:"workers"`
	QueueSize     int      `mapstructure:"queue_size"`
	RPS           float64  `mapstructure:"rps"`
	Burst         int      `mapstructure:"burst"`
}

type IntegrationsConfig struct {
	LinkingRulesURL  string        `mapstructure:"linking_rules_url"`
	SourceStorageURL string        `mapstructure:"source_storage_url"`
	SourceFilesURL   string        `mapstructure:"source_files_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	BaseURLCacheTTL  time.Duration `mapstructure:"base_url_cache_ttl"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
