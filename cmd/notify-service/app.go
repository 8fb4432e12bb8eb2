package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"vehiclepush/internal/api"
	"vehiclepush/internal/config"
	"vehiclepush/internal/constants"
	"vehiclepush/internal/ingest"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	"vehiclepush/internal/pipeline"
	"vehiclepush/internal/preferences"
	"vehiclepush/internal/sink"
	"vehiclepush/internal/store"
	"vehiclepush/internal/vehicle"
	"vehiclepush/pkg/bootstrap"
	"vehiclepush/pkg/health"
	"vehiclepush/pkg/logging"
	"vehiclepush/pkg/metrics"
	"vehiclepush/pkg/migrations"
	"vehiclepush/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	store          *store.Guarded
	registry       vehicle.Registry
	prefs          preferences.Source
	classifier     *parser.RuleClassifier
	coordinator    *pipeline.Coordinator
	bus            *sink.EventBus
	retention      *store.RetentionJob
	mqtt           *ingest.MQTTSubscriber
	checks         *health.CheckerRegistry
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		checks:      health.NewCheckerRegistry(health.WithConfig(cfg.Health)),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterPipelineMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := a.initRegistry(ctx); err != nil {
		return fmt.Errorf("failed to initialize vehicle registry: %w", err)
	}

	if err := a.initPreferences(ctx); err != nil {
		return fmt.Errorf("failed to initialize preferences: %w", err)
	}

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}
	if a.Config.Broker.Type != "" {
		a.checks.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.initRetention(); err != nil {
		return fmt.Errorf("failed to initialize retention: %w", err)
	}

	if a.Config.MQTT.Enabled {
		a.mqtt = ingest.NewMQTTSubscriber(a.Config.MQTT, a.coordinator, a.Logger)
		a.checks.Register(health.NewMQTTChecker(a.mqtt))
	}

	handler := api.NewHandler(a.coordinator, a.bus, a.Config.Sinks.Broadcast.BufferSize, a.Logger)
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      api.NewRouter(a.Config, handler, a.checks, a.Logger),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	return nil
}

func (a *App) initStore(ctx context.Context) error {
	var (
		backend store.Store
		window  = a.Config.Deduplication.Window
		hasher  = store.NewHasher(a.Config.Deduplication.HashAlgorithm)
	)

	switch a.Config.Storage.Driver {
	case constants.StorageDriverSQLite:
		s, err := store.NewSQLiteStore(ctx, a.Config.Database.SQLite, hasher, window)
		if err != nil {
			return err
		}
		a.checks.Register(health.NewSQLiteChecker(s.DB()))
		backend = s
	case constants.StorageDriverRedis:
		client, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redis = client
		a.checks.Register(health.NewRedisChecker(client))
		backend = store.NewRedisStore(client, hasher, window, a.Config.Storage.HistorySize)
	default:
		backend = store.NewMemoryStore(hasher, window, a.Config.Storage.HistorySize)
	}

	if a.Config.CircuitBreaker.Enabled {
		backend = store.NewCircuitBreakerStore(backend, "notification-store", a.Config.CircuitBreaker)
	}

	a.store = store.NewGuarded(backend)
	if count, err := a.store.Count(ctx); err == nil {
		metrics.SetNotificationStoreSize(count)
	}

	a.Logger.InfowCtx(ctx, "Notification store ready",
		"driver", a.Config.Storage.Driver,
		"window", window,
		"circuit_breaker", a.Config.CircuitBreaker.Enabled,
	)
	return nil
}

func (a *App) initRegistry(ctx context.Context) error {
	if a.Config.Registry.Driver != constants.RegistryDriverPostgres {
		a.registry = vehicle.NewStaticRegistry(a.Config.Registry)
		return nil
	}

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	a.checks.Register(health.NewPostgreSQLChecker(db))

	if a.Config.Database.RunMigrations {
		if err := migrations.RunPostgres(db); err != nil {
			return err
		}
	}

	var registry vehicle.Registry = vehicle.NewPostgresRegistry(db)
	if a.Config.CircuitBreaker.Enabled {
		registry = vehicle.NewCircuitBreakerRegistry(registry, a.Config.CircuitBreaker)
	}
	a.registry = registry
	return nil
}

func (a *App) initPreferences(ctx context.Context) error {
	if a.Config.Preferences.Driver != constants.PreferencesDriverMongoDB {
		a.prefs = preferences.NewStaticSource(a.Config.Preferences.Values)
		return nil
	}

	client, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongoClient = client
	a.checks.Register(health.NewMongoDBChecker(client))
	a.prefs = preferences.NewMongoSource(mongoDatabase(a.Config, client), a.Config.Preferences.Collection)
	return nil
}

func (a *App) initPipeline() error {
	classifier, err := parser.NewRuleClassifier(a.Config.Classification.Rules, a.Logger)
	if err != nil {
		return err
	}
	a.classifier = classifier
	metrics.SetClassifierRules(classifier.RuleCount())

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	var targets []sink.NamedBroadcaster
	if a.Config.Sinks.Broadcast.Kafka && a.Producer != nil {
		targets = append(targets, sink.NamedBroadcaster{
			Name:        "kafka",
			Broadcaster: sink.NewKafkaBroadcaster(a.Producer, a.Config.Broker.Kafka.BroadcastTopic),
		})
	}
	if a.Config.Sinks.Broadcast.EventBus {
		a.bus = sink.NewEventBus()
		targets = append(targets, sink.NamedBroadcaster{
			Name:        "event_bus",
			Broadcaster: sink.NewEventBusBroadcaster(a.bus),
		})
	}

	coordinator, err := pipeline.NewCoordinator(pipeline.Deps{
		Parser:      parser.New(classifier, a.Logger.Named("parser")),
		Registry:    a.registry,
		Store:       a.store,
		Preferences: a.prefs,
		Notifier:    notifier,
		Broadcaster: sink.NewMultiBroadcaster(targets...),
		Icons:       sink.PrefixIconResolver{},
		Logger:      a.Logger,
	})
	if err != nil {
		return err
	}
	a.coordinator = coordinator

	a.Logger.Infow("Pipeline ready",
		"classifier_rules", classifier.RuleCount(),
		"notifier", a.Config.Sinks.Notifier.Type,
		"broadcast_targets", len(targets),
	)
	return nil
}

func (a *App) newNotifier() (sink.SystemNotifier, error) {
	if a.Config.Sinks.Notifier.Type == constants.NotifierWebhook {
		return sink.NewWebhookNotifier(a.Config.Sinks.Notifier.URL, a.Config.Sinks.Notifier.Timeout, a.Logger)
	}
	return sink.NewLogNotifier(a.Logger), nil
}

func (a *App) initRetention() error {
	if !a.Config.Storage.Retention.Enabled {
		return nil
	}
	if a.Config.Storage.Driver == constants.StorageDriverRedis {
		a.Logger.Warnw("Retention is handled by the dedup window for the redis driver, job disabled")
		return nil
	}

	job, err := store.NewRetentionJob(a.store, a.store, a.Config.Storage.Retention, a.Logger.Named("retention"))
	if err != nil {
		return err
	}
	a.retention = job
	return nil
}

func (a *App) reloadClassification(cls config.ClassificationConfig) {
	if err := a.classifier.Reload(cls.Rules); err != nil {
		a.Logger.Errorw("Classification reload rejected, keeping previous rules", "error", err)
		return
	}
	metrics.SetClassifierRules(a.classifier.RuleCount())
	a.Logger.Infow("Classification rules reloaded", "rules", a.classifier.RuleCount())
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.Consumer != nil {
		topic := a.Config.Broker.Kafka.InputTopic
		handler := ingest.NewKafkaHandler(a.coordinator, topic, a.Logger)
		g.Go(func() error {
			return a.Consumer.Consume(gCtx, topic, handler)
		})
	}

	if a.mqtt != nil {
		g.Go(func() error {
			return a.mqtt.Connect(gCtx)
		})
	}

	if a.retention != nil {
		a.retention.Start()
	}

	config.WatchClassification(a.reloadClassification, func(err error) {
		a.Logger.Errorw("Classification reload failed", "error", err)
	})

	if a.Config.Server.NotifySystemd {
		if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			a.Logger.Warnw("sd_notify READY failed", "error", err)
		} else if sent {
			a.Logger.Infow("Notified systemd readiness")
		}
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(logging.WithServiceName(context.Background(), constants.ServiceName))
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down notify service")

	if a.Config.Server.NotifySystemd {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	// Intake stops first: the HTTP server and MQTT subscriber drain their
	// in-flight pushes while the broker and store are still open.
	var intakeErrs []error
	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			intakeErrs = append(intakeErrs, fmt.Errorf("HTTP server shutdown error: %w", err))
		}
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}

	additionalShutdown := func(ctx context.Context) []error {
		errs := intakeErrs

		if a.retention != nil {
			a.retention.Stop(shutdownCtx)
		}

		if a.store != nil {
			if err := a.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store close error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(shutdownCtx, a.redis, a.db, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

func mongoDatabase(cfg *config.Config, client *mongo.Client) *mongo.Database {
	name := cfg.Database.MongoDB.Database
	if name == "" {
		name = constants.DefaultMongoDBName
	}
	return client.Database(name)
}
