package constants

import "time"

const (
	ServiceName = "notify-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixDedup   = "dedup:"
	CacheKeyNotifications = "notifications:history"
)

const (
	DefaultInputTopic     = "vehicle_push"
	DefaultBroadcastTopic = "vehicle_notifications"
	DefaultMQTTTopic      = "vehicles/+/push"
)

const (
	DefaultMongoDBName    = "vehiclepush"
	PreferencesCollection = "preferences"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	SSEKeepAlive       = 15 * time.Second
	SSESubscriberQueue = 16
)

const (
	DefaultHistorySize = 1000
)

const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

const (
	RegistryDriverStatic   = "static"
	RegistryDriverPostgres = "postgres"
)

const (
	PreferencesDriverStatic  = "static"
	PreferencesDriverMongoDB = "mongodb"
)

const (
	NotifierWebhook = "webhook"
	NotifierLog     = "log"
)

const (
	// TimestampLayout is the wire format of push timestamps, always UTC.
	TimestampLayout = "2006-01-02 15:04:05"
)

const (
	EventHeader       = "event"
	EventNotification = "notification"
	EventRefresh      = "refresh"
)
