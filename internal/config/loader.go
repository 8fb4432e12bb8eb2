package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"vehiclepush/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// WatchClassification re-reads the classification section whenever the
// config file changes on disk. Other sections require a restart.
func WatchClassification(onChange func(ClassificationConfig), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		var cls ClassificationConfig
		if err := viper.UnmarshalKey("classification", &cls); err != nil {
			onError(fmt.Errorf("failed to unmarshal classification from %s: %w", e.Name, err))
			return
		}
		if err := validateClassification(cls); err != nil {
			onError(err)
			return
		}
		onChange(cls)
	})
	viper.WatchConfig()
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "0s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("storage.driver", constants.StorageDriverMemory)
	viper.SetDefault("storage.history_size", constants.DefaultHistorySize)
	viper.SetDefault("storage.retention.schedule", "@daily")
	viper.SetDefault("storage.retention.max_age", "720h")
	viper.SetDefault("storage.retention.timezone", "UTC")

	viper.SetDefault("deduplication.hash_algorithm", "sha256")

	viper.SetDefault("registry.driver", constants.RegistryDriverStatic)
	viper.SetDefault("preferences.driver", constants.PreferencesDriverStatic)
	viper.SetDefault("preferences.collection", constants.PreferencesCollection)

	viper.SetDefault("sinks.notifier.type", constants.NotifierLog)
	viper.SetDefault("sinks.notifier.timeout", "5s")
	viper.SetDefault("sinks.broadcast.event_bus", true)
	viper.SetDefault("sinks.broadcast.buffer_size", 64)

	viper.SetDefault("broker.kafka.input_topic", constants.DefaultInputTopic)
	viper.SetDefault("broker.kafka.broadcast_topic", constants.DefaultBroadcastTopic)

	viper.SetDefault("mqtt.topic", constants.DefaultMQTTTopic)
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.keep_alive", "30s")
	viper.SetDefault("mqtt.connect.initial_interval", "1s")
	viper.SetDefault("mqtt.connect.max_interval", "30s")
	viper.SetDefault("mqtt.connect.multiplier", 2.0)
	viper.SetDefault("mqtt.connect.max_elapsed_time", "5m")

	viper.SetDefault("api.rate_limit.rps", 10.0)
	viper.SetDefault("api.rate_limit.burst", 20)
	viper.SetDefault("api.rate_limit.cleanup_interval", 300)
	viper.SetDefault("api.rate_limit.max_age", 600)

	viper.SetDefault("health.timeout", "5s")
	viper.SetDefault("health.optional", []string{"mqtt"})
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.broadcast_topic", "BROKER_KAFKA_BROADCAST_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("mqtt.broker_url", "MQTT_BROKER_URL")
	viper.BindEnv("mqtt.username", "MQTT_USERNAME")
	viper.BindEnv("mqtt.password", "MQTT_PASSWORD")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("database.sqlite.path", "DATABASE_SQLITE_PATH")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("sinks.notifier.url", "SINKS_NOTIFIER_URL")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
