package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	MQTT           MQTTConfig           `mapstructure:"mqtt"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Deduplication  DeduplicationConfig  `mapstructure:"deduplication"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Registry       RegistryConfig       `mapstructure:"registry"`
	Preferences    PreferencesConfig    `mapstructure:"preferences"`
	Sinks          SinksConfig          `mapstructure:"sinks"`
	API            APIConfig            `mapstructure:"api"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	Health         HealthConfig         `mapstructure:"health"`
}

type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	NotifySystemd bool          `mapstructure:"notify_systemd"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `mapstructure:"postgres"`
	Redis         RedisConfig    `mapstructure:"redis"`
	MongoDB       MongoDBConfig  `mapstructure:"mongodb"`
	SQLite        SQLiteConfig   `mapstructure:"sqlite"`
	RunMigrations bool           `mapstructure:"run_migrations"`
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

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type SQLiteConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	InputTopic     string   `mapstructure:"input_topic"`
	BroadcastTopic string   `mapstructure:"broadcast_topic"`
	DLQTopic       string   `mapstructure:"dlq_topic"`
}

type MQTTConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BrokerURL string        `mapstructure:"broker_url"`
	ClientID  string        `mapstructure:"client_id"`
	Topic     string        `mapstructure:"topic"`
	QoS       byte          `mapstructure:"qos"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	KeepAlive time.Duration `mapstructure:"keep_alive"`
	Connect   RetryConfig   `mapstructure:"connect"`
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

type StorageConfig struct {
	Driver      string          `mapstructure:"driver"`
	HistorySize int             `mapstructure:"history_size"`
	Retention   RetentionConfig `mapstructure:"retention"`
}

type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Timezone string        `mapstructure:"timezone"`
}

type DeduplicationConfig struct {
	HashAlgorithm string        `mapstructure:"hash_algorithm"`
	Window        time.Duration `mapstructure:"window"`
}

type ClassificationConfig struct {
	Rules []ClassificationRule `mapstructure:"rules"`
}

// ClassificationRule maps a boolean CEL expression over the lower-cased
// message text to a kind code (A, I or E).
type ClassificationRule struct {
	Name       string `mapstructure:"name"`
	Kind       string `mapstructure:"kind"`
	Expression string `mapstructure:"expression"`
}

type RegistryConfig struct {
	Driver            string          `mapstructure:"driver"`
	SelectedVehicleID string          `mapstructure:"selected_vehicle_id"`
	Vehicles          []VehicleConfig `mapstructure:"vehicles"`
}

type VehicleConfig struct {
	ID       string `mapstructure:"id"`
	Label    string `mapstructure:"label"`
	ImageKey string `mapstructure:"image_key"`
}

type PreferencesConfig struct {
	Driver     string            `mapstructure:"driver"`
	Collection string            `mapstructure:"collection"`
	Values     map[string]string `mapstructure:"values"`
}

type SinksConfig struct {
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

type NotifierConfig struct {
	Type    string        `mapstructure:"type"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BroadcastConfig struct {
	Kafka      bool `mapstructure:"kafka"`
	EventBus   bool `mapstructure:"event_bus"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type APIConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// HealthConfig bounds each dependency check. Timeouts overrides Timeout per
// checker name. A failing Optional checker degrades the service instead of
// making it unhealthy.
type HealthConfig struct {
	Timeout  time.Duration            `mapstructure:"timeout"`
	Timeouts map[string]time.Duration `mapstructure:"timeouts"`
	Optional []string                 `mapstructure:"optional"`
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
