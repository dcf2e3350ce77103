// AgriSense Core - Agricultural IoT Platform
//
// This is the main entry point for the AgriSense Core service. It wires
// the MQTT ingestion pipeline, the SQLite stores, the threshold and
// rule evaluators, and the WebSocket subscription hub into one process
// designed to run unattended at the farm edge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/damirbriga107-creator/agrisense-core/migrations"

	"github.com/damirbriga107-creator/agrisense-core/internal/aggregate"
	"github.com/damirbriga107-creator/agrisense-core/internal/alert"
	"github.com/damirbriga107-creator/agrisense-core/internal/api"
	"github.com/damirbriga107-creator/agrisense-core/internal/automation"
	"github.com/damirbriga107-creator/agrisense-core/internal/device"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/database"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/logging"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/mqtt"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/telemetry"
	"github.com/damirbriga107-creator/agrisense-core/internal/ingest"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting AgriSense Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and apply migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Device registry with warm cache
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	// Reading store and in-memory latest-value tracker
	readingRepo := reading.NewSQLiteRepository(db.DB)
	tracker := reading.NewTracker()

	// Telemetry mirror (optional)
	var influx *telemetry.Client
	if cfg.Telemetry.Enabled {
		influx, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected", "url", cfg.Telemetry.URL, "bucket", cfg.Telemetry.Bucket)
	} else {
		log.Info("telemetry disabled")
	}

	// WebSocket hub: fans readings, alerts, and rule events out to
	// subscribed clients with per-farm tenancy.
	hub := api.NewHub(cfg.WebSocket, log, readingRepo, deviceRegistry)
	go hub.Run(ctx)

	// Threshold evaluator publishes alert lifecycle events to the hub
	alertRepo := alert.NewSQLiteRepository(db.DB)
	evaluator := alert.NewEvaluator(alertRepo, hub, log)

	// MQTT broker connection
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Automation rule engine with warm rule cache
	ruleRepo := automation.NewSQLiteRepository(db.DB)
	ruleRegistry := automation.NewRegistry(ruleRepo)
	ruleRegistry.SetLogger(log)
	if refreshErr := ruleRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation rules: %w", refreshErr)
	}
	engine := automation.NewEngine(ruleRegistry, tracker, mqttClient, hub, ruleRepo, log)
	log.Info("rule engine initialised", "rules", ruleRegistry.GetRuleCount())
	defer func() {
		// Scheduled rule actions may carry long delays; give them the
		// drain window, then leave the rest behind.
		done := make(chan struct{})
		go func() {
			engine.Drain()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.GetDrainTimeout()):
			log.Warn("rule actions still running at shutdown")
		}
	}()

	// Ingestion pipeline: sharded workers between MQTT and the domain
	deps := ingest.Deps{
		Store:     readingStore{repo: readingRepo},
		Devices:   deviceRegistry,
		Tracker:   tracker,
		Evaluator: evaluator,
		Rules:     engine,
		Hub:       hub,
	}
	if influx != nil {
		deps.Telemetry = influx
	}
	pipeline := ingest.NewPipeline(cfg.Pipeline, deps, log)
	pipeline.Start(ctx)
	defer pipeline.Stop()

	// Subscribe the pipeline to the field device topics
	qos := byte(cfg.MQTT.QoS)
	topics := mqtt.Topics{}
	subscriptions := []string{
		topics.AllSensorData(),
		topics.AllDeviceStatus(),
		topics.AllDeviceHeartbeats(),
		topics.AllDeviceAlerts(),
	}
	for _, topic := range subscriptions {
		if subErr := mqttClient.Subscribe(topic, qos, pipeline.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, subErr)
		}
	}
	log.Info("MQTT subscriptions active", "topics", len(subscriptions), "qos", qos)

	// Aggregation scheduler (optional)
	if cfg.Aggregation.Enabled {
		rollupRepo := aggregate.NewSQLiteRepository(db.DB)
		var rollupTelemetry aggregate.TelemetryWriter
		if influx != nil {
			rollupTelemetry = influx
		}
		scheduler := aggregate.NewScheduler(cfg.Aggregation, rollupRepo, readingRepo, rollupTelemetry, log)
		go scheduler.Run(ctx)
	} else {
		log.Info("aggregation disabled")
	}

	// HTTP surface: health check and WebSocket endpoint
	server := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Hub:      hub,
		Version:  version,
	})
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting api server: %w", startErr)
	}
	defer func() {
		log.Info("stopping api server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping api server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Stop accepting new messages before the deferred drain runs, so
	// in-flight readings are processed but no new ones arrive.
	for _, topic := range subscriptions {
		if unsubErr := mqttClient.Unsubscribe(topic); unsubErr != nil {
			log.Warn("error unsubscribing", "topic", topic, "error", unsubErr)
		}
	}

	log.Info("AgriSense Core stopped")
	return nil
}

// readingStore adapts the reading repository to the pipeline's
// value-typed store interface.
type readingStore struct {
	repo reading.Repository
}

func (s readingStore) Insert(ctx context.Context, r reading.Reading) (bool, error) {
	return s.repo.Insert(ctx, &r)
}

// getConfigPath returns the configuration file path.
// Uses AGRISENSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AGRISENSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influx *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influx != nil {
		if err := influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	return nil
}
