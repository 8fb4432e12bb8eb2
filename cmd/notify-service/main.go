package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "vehiclepush/cmd/notify-service/docs"
	"vehiclepush/internal/broker"
	"vehiclepush/internal/config"
	"vehiclepush/internal/constants"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/preferences"
	"vehiclepush/internal/vehicle"
	"vehiclepush/pkg/bootstrap"
	"vehiclepush/pkg/logging"
	"vehiclepush/pkg/migrations"
	"vehiclepush/pkg/models"
)

var (
	configFile string
)

const sendTimeout = 10 * time.Second

// @title           Vehicle Push Notify Service API
// @version         1.0
// @description     Ingests vehicle push notifications, deduplicates them and dispatches accepted ones
// @BasePath        /api/v1
// @schemes         http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "notify-service",
		Short: "Vehicle push notification service",
		Long:  "Notify service validates, deduplicates and filters vehicle push notifications and dispatches them to the user and to automation consumers",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sendCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the notify service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting notify service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			log.InfowCtx(ctx, "Service running")
			if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply registry migrations and optionally seed vehicles and preferences from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			connector := bootstrap.NewDatabaseConnector(cfg, log)

			db, err := connector.InitPostgreSQL(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				if err := migrations.RunPostgres(db); err != nil {
					return err
				}
				log.Infow("PostgreSQL migrations applied")

				if seed {
					registry := vehicle.NewPostgresRegistry(db)
					for _, v := range cfg.Registry.Vehicles {
						if err := registry.Upsert(ctx, vehicle.Vehicle{ID: v.ID, Label: v.Label, ImageKey: v.ImageKey}); err != nil {
							return err
						}
					}
					if err := registry.Select(ctx, cfg.Registry.SelectedVehicleID); err != nil {
						return err
					}
					log.Infow("Vehicles seeded", "count", len(cfg.Registry.Vehicles), "selected", cfg.Registry.SelectedVehicleID)
				}
			}

			client, err := connector.InitMongoDB(ctx)
			if err != nil {
				return err
			}
			if client != nil {
				defer client.Disconnect(context.Background())
				mdb := mongoDatabase(cfg, client)
				if err := migrations.EnsurePreferencesCollection(ctx, mdb, cfg.Preferences.Collection); err != nil {
					return err
				}
				log.Infow("MongoDB preferences collection ready", "collection", cfg.Preferences.Collection)

				if seed {
					inserted, err := preferences.NewMongoSource(mdb, cfg.Preferences.Collection).Seed(ctx, cfg.Preferences.Values)
					if err != nil {
						return err
					}
					log.Infow("Preferences seeded", "inserted", inserted)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Seed vehicles and preferences from the config file")
	return cmd
}

func sendCmd() *cobra.Command {
	var push models.PushFields

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a push envelope to the input topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			producer, err := broker.NewProducer(cfg.Broker, log)
			if err != nil {
				return err
			}
			defer producer.Close()

			envelope := models.NewPushEnvelopeBuilder().
				WithSource(constants.ServiceName + "-cli").
				WithPush(push).
				Build()

			body, err := json.Marshal(envelope)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
			defer cancel()

			if err := producer.Publish(ctx, cfg.Broker.Kafka.InputTopic, broker.Message{
				Key:   []byte(push.Title),
				Value: body,
			}); err != nil {
				return err
			}
			log.Infow("Push published", "id", envelope.ID, "topic", cfg.Broker.Kafka.InputTopic)
			return nil
		},
	}

	cmd.Flags().StringVar(&push.Title, "vehicle", "", "Vehicle id (push title)")
	cmd.Flags().StringVar(&push.Type, "type", "", "Kind code: A, I or E (inferred when empty)")
	cmd.Flags().StringVar(&push.Message, "message", "", "Message text")
	cmd.Flags().StringVar(&push.Time, "time", "", "Timestamp as 2006-01-02 15:04:05 UTC")
	_ = cmd.MarkFlagRequired("vehicle")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
