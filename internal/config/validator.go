package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
		func(c *Config) error { return validateMQTT(c.MQTT) },
		func(c *Config) error { return validateDatabase(c.Database) },
		validateStorage,
		func(c *Config) error { return validateDeduplication(c.Deduplication) },
		func(c *Config) error { return validateClassification(c.Classification) },
		validateRegistry,
		validatePreferences,
		validateSinks,
		func(c *Config) error { return validateHealth(c.Health) },
	}

	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout < 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		}
	}

	if cfg.WriteTimeout < 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}

	return nil
}

func validateMQTT(cfg MQTTConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.BrokerURL == "" {
		return &ValidationError{
			Field:   "mqtt.broker_url",
			Message: "MQTT broker URL is required when mqtt is enabled",
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "mqtt.topic",
			Message: "MQTT topic is required when mqtt is enabled",
		}
	}

	if cfg.QoS > 2 {
		return &ValidationError{
			Field:   "mqtt.qos",
			Message: fmt.Sprintf("qos must be 0, 1 or 2, got %d", cfg.QoS),
		}
	}

	if cfg.Connect.MaxInterval > 0 && cfg.Connect.InitialInterval > 0 && cfg.Connect.MaxInterval < cfg.Connect.InitialInterval {
		return &ValidationError{
			Field:   "mqtt.connect.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Connect.Multiplier < 0 {
		return &ValidationError{
			Field:   "mqtt.connect.multiplier",
			Message: "multiplier must be non-negative",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	return nil
}

func validateStorage(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "memory":
	case "sqlite":
		if cfg.Database.SQLite.Path == "" {
			return &ValidationError{
				Field:   "database.sqlite.path",
				Message: "sqlite path is required for the sqlite storage driver",
			}
		}
	case "redis":
		if cfg.Database.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis host is required for the redis storage driver",
			}
		}
	default:
		return &ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("unknown storage driver: %s (supported: memory, sqlite, redis)", cfg.Storage.Driver),
		}
	}

	if cfg.Storage.HistorySize < 0 {
		return &ValidationError{
			Field:   "storage.history_size",
			Message: "history size must be non-negative",
		}
	}

	if cfg.Storage.Retention.Enabled {
		if cfg.Storage.Retention.Schedule == "" {
			return &ValidationError{
				Field:   "storage.retention.schedule",
				Message: "schedule is required when retention is enabled",
			}
		}
		if cfg.Storage.Retention.MaxAge <= 0 {
			return &ValidationError{
				Field:   "storage.retention.max_age",
				Message: "max_age must be positive when retention is enabled",
			}
		}
	}

	return nil
}

func validateDeduplication(cfg DeduplicationConfig) error {
	validAlgorithms := map[string]bool{
		"md5": true, "sha256": true,
	}
	if cfg.HashAlgorithm != "" && !validAlgorithms[strings.ToLower(cfg.HashAlgorithm)] {
		return &ValidationError{
			Field:   "deduplication.hash_algorithm",
			Message: fmt.Sprintf("invalid hash algorithm: %s (valid: md5, sha256)", cfg.HashAlgorithm),
		}
	}

	if cfg.Window < 0 {
		return &ValidationError{
			Field:   "deduplication.window",
			Message: "window must be non-negative",
		}
	}

	return nil
}

func validateClassification(cfg ClassificationConfig) error {
	for i, rule := range cfg.Rules {
		switch rule.Kind {
		case "A", "I", "E":
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("classification.rules[%d].kind", i),
				Message: fmt.Sprintf("kind must be one of A, I, E, got %q", rule.Kind),
			}
		}
		if strings.TrimSpace(rule.Expression) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("classification.rules[%d].expression", i),
				Message: "expression is required",
			}
		}
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	switch cfg.Registry.Driver {
	case "static":
		seen := make(map[string]bool, len(cfg.Registry.Vehicles))
		for i, v := range cfg.Registry.Vehicles {
			if v.ID == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("registry.vehicles[%d].id", i),
					Message: "vehicle id is required",
				}
			}
			if seen[v.ID] {
				return &ValidationError{
					Field:   fmt.Sprintf("registry.vehicles[%d].id", i),
					Message: fmt.Sprintf("duplicate vehicle id %q", v.ID),
				}
			}
			seen[v.ID] = true
		}
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return &ValidationError{
				Field:   "database.postgres.host",
				Message: "PostgreSQL host is required for the postgres registry driver",
			}
		}
	default:
		return &ValidationError{
			Field:   "registry.driver",
			Message: fmt.Sprintf("unknown registry driver: %s (supported: static, postgres)", cfg.Registry.Driver),
		}
	}
	return nil
}

func validatePreferences(cfg *Config) error {
	switch cfg.Preferences.Driver {
	case "static":
	case "mongodb":
		if cfg.Database.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI is required for the mongodb preferences driver",
			}
		}
	default:
		return &ValidationError{
			Field:   "preferences.driver",
			Message: fmt.Sprintf("unknown preferences driver: %s (supported: static, mongodb)", cfg.Preferences.Driver),
		}
	}
	return nil
}

func validateSinks(cfg *Config) error {
	switch cfg.Sinks.Notifier.Type {
	case "log":
	case "webhook":
		u, err := url.Parse(cfg.Sinks.Notifier.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{
				Field:   "sinks.notifier.url",
				Message: fmt.Sprintf("webhook url must be an absolute http(s) URL, got %q", cfg.Sinks.Notifier.URL),
			}
		}
	default:
		return &ValidationError{
			Field:   "sinks.notifier.type",
			Message: fmt.Sprintf("unknown notifier type: %s (supported: log, webhook)", cfg.Sinks.Notifier.Type),
		}
	}

	if cfg.Sinks.Broadcast.Kafka && cfg.Broker.Type != "kafka" {
		return &ValidationError{
			Field:   "sinks.broadcast.kafka",
			Message: "kafka broadcast requires broker.type kafka",
		}
	}

	return nil
}

func validateHealth(cfg HealthConfig) error {
	if cfg.Timeout < 0 {
		return &ValidationError{
			Field:   "health.timeout",
			Message: "timeout must be non-negative",
		}
	}
	for name, timeout := range cfg.Timeouts {
		if timeout <= 0 {
			return &ValidationError{
				Field:   "health.timeouts." + name,
				Message: fmt.Sprintf("timeout must be positive, got %s", timeout),
			}
		}
	}
	return nil
}
