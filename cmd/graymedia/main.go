// Gray Logic Media - media device bridge for voice assistants
//
// This is the main entry point for the Gray Logic Media service. It exposes
// TVs, speakers and other media devices from the automation flow to a
// smart-home assistant:
//   - flow messages arrive over MQTT and update each device's state
//   - state changes are reported to the assistant, journalled and recorded
//   - SYNC, QUERY and EXECUTE intents are answered over HTTP
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/nerrad567/gray-logic-media/migrations"

	"github.com/nerrad567/gray-logic-media/internal/api"
	"github.com/nerrad567/gray-logic-media/internal/cloudsync"
	"github.com/nerrad567/gray-logic-media/internal/flow"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence: linear wiring of every component
	log := logging.Default()
	log.Info("starting Gray Logic Media",
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

	log = logging.New(cfg.Logging, version, cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
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
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Flow transport
	mqttAdapter := &mqttFlowAdapter{client: mqttClient}
	publisher, err := flow.NewPublisher(flow.PublisherOptions{
		Client: mqttAdapter,
		Topics: deviceTopics(cfg.Media.Devices),
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log.Component("flow"),
	})
	if err != nil {
		return fmt.Errorf("creating flow publisher: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))

	// Cloud sync
	var (
		reporter *cloudsync.Reporter
		journal  *cloudsync.Journal
	)
	if cfg.CloudSync.Enabled {
		reporter, journal, err = buildReporter(cfg, db, influxClient, hub, log)
		if err != nil {
			return fmt.Errorf("creating cloud sync: %w", err)
		}
		reporter.Start(ctx)
		defer func() {
			log.Info("stopping cloud sync reporter")
			reporter.Stop()
		}()
	} else {
		log.Warn("cloud sync disabled, media devices will not register")
	}

	// Media registry
	registryOpts := media.RegistryOptions{
		Forwarder:    publisher,
		Status:       media.StatusIndicators{publisher, hub},
		Manufacturer: cfg.Media.ManufacturerInfo(),
	}
	if reporter != nil {
		registryOpts.CloudSync = reporter
		registryOpts.OnRemove = func(ctx context.Context, deviceID string) error {
			if err := publisher.ClearStatus(deviceID); err != nil {
				log.Warn("clearing retained status failed", "device_id", deviceID, "error", err)
			}
			publisher.SetTopic(deviceID, "")
			return reporter.Forget(ctx, deviceID)
		}
	}
	registry := media.NewRegistry(registryOpts)
	registry.SetLogger(log.Component("media"))
	defer func() {
		log.Info("closing media registry")
		registry.Close()
	}()

	registered := registerDevices(registry, cfg.Media.Devices, log)
	log.Info("media devices registered", "registered", registered, "configured", len(cfg.Media.Devices))

	// Flow binding: subscribe once the registry can accept messages.
	binding, err := flow.NewBinding(flow.BindingOptions{
		Client:  mqttAdapter,
		Devices: registry,
		QoS:     byte(cfg.MQTT.QoS),
		Logger:  log.Component("flow"),
	})
	if err != nil {
		return fmt.Errorf("creating flow binding: %w", err)
	}
	if err := binding.Start(ctx); err != nil {
		return fmt.Errorf("starting flow binding: %w", err)
	}
	defer func() {
		log.Info("stopping flow binding")
		binding.Stop()
	}()

	// Journal pruning
	var bg sync.WaitGroup
	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer func() {
		stopPrune()
		bg.Wait()
	}()
	if journal != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			journal.RunPruner(pruneCtx, cfg.GetJournalPruneInterval(), cfg.GetJournalRetention(), func(err error) {
				log.Warn("state history prune failed", "error", err)
			})
		}()
	}

	// HTTP API
	apiDeps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Registry:    registry,
		Hub:         hub,
		AgentUserID: cfg.CloudSync.AgentUserID,
		Version:     version,
		Checks: map[string]api.HealthChecker{
			"database":   db,
			"migrations": migrationCheck{db: db},
			"mqtt":       mqttClient,
			"flow":       subscriptionCheck{client: mqttClient, topic: mqtt.Topics{}.AllMediaIn()},
		},
	}
	if influxClient != nil {
		apiDeps.Checks["influxdb"] = influxClient
	}
	if journal != nil {
		apiDeps.Journal = journal
	}
	if reporter != nil {
		apiDeps.Reporter = reporter
	}

	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, pruner, flow binding,
	// registry, reporter, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// buildReporter assembles the report-state fan-out: the assistant push,
// the local journal, InfluxDB telemetry and the WebSocket hub.
func buildReporter(cfg *config.Config, db *database.DB, influxClient *influxdb.Client, hub *api.Hub, log *logging.Logger) (*cloudsync.Reporter, *cloudsync.Journal, error) {
	homeGraph, err := cloudsync.NewHomeGraph(cloudsync.HomeGraphConfig{
		Endpoint:    cfg.CloudSync.Endpoint,
		AgentUserID: cfg.CloudSync.AgentUserID,
		APIKey:      cfg.CloudSync.APIKey,
		Timeout:     cfg.GetCloudSyncTimeout(),
		RateLimit:   cfg.CloudSync.RateLimit,
		Burst:       cfg.CloudSync.Burst,
	})
	if err != nil {
		return nil, nil, err
	}

	sinks := []cloudsync.Sink{homeGraph, hub}

	var journal *cloudsync.Journal
	if cfg.CloudSync.Journal.Enabled {
		journal = cloudsync.NewJournal(db.DB)
		sinks = append(sinks, journal)
	}
	if influxClient != nil {
		sinks = append(sinks, cloudsync.NewTelemetry(influxClient))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Info("cloud sync configured", "endpoint", cfg.CloudSync.Endpoint, "sinks", names)

	reporter := cloudsync.NewReporter(cloudsync.ReporterOptions{
		QueueSize:   cfg.CloudSync.QueueSize,
		PushTimeout: cfg.GetCloudSyncTimeout(),
		Logger:      log.Component("cloudsync"),
	}, sinks...)
	return reporter, journal, nil
}

// registerDevices registers every configured device. A device that fails
// to register is logged and skipped; its status already shows why.
func registerDevices(registry *media.Registry, devices []config.MediaDeviceConfig, log *logging.Logger) int {
	registered := 0
	for _, d := range devices {
		dc := d.DeviceConfig()
		if dc.Topic == "" {
			dc.Topic = mqtt.Topics{}.MediaOut(dc.ID)
		}
		if _, err := registry.Register(dc); err != nil {
			log.Error("media device registration failed", "device_id", dc.ID, "error", err)
			continue
		}
		registered++
	}
	return registered
}

// deviceTopics returns the configured outbound topic overrides.
func deviceTopics(devices []config.MediaDeviceConfig) map[string]string {
	topics := make(map[string]string, len(devices))
	for _, d := range devices {
		dc := d.DeviceConfig()
		if dc.Topic != "" {
			topics[dc.ID] = dc.Topic
		}
	}
	return topics
}

// migrationCheck reports unhealthy while migrations are pending.
type migrationCheck struct {
	db *database.DB
}

// HealthCheck implements api.HealthChecker.
func (m migrationCheck) HealthCheck(ctx context.Context) error {
	_, pending, err := m.db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d migrations pending", len(pending))
	}
	return nil
}

// subscriptionTracker is the part of the MQTT client subscriptionCheck needs.
type subscriptionTracker interface {
	IsConnected() bool
	HasSubscription(topic string) bool
}

// subscriptionCheck reports unhealthy when the inbound flow subscription
// is not tracked by the client and so would not survive a reconnect.
type subscriptionCheck struct {
	client subscriptionTracker
	topic  string
}

// HealthCheck implements api.HealthChecker.
func (s subscriptionCheck) HealthCheck(context.Context) error {
	if !s.client.IsConnected() {
		return mqtt.ErrNotConnected
	}
	if !s.client.HasSubscription(s.topic) {
		return fmt.Errorf("not subscribed to %s", s.topic)
	}
	return nil
}

// mqttFlowAdapter adapts the infrastructure MQTT client to the flow
// package's MQTTClient interface. The primary difference is the Subscribe
// handler signature:
//   - Infrastructure mqtt: func(topic, payload []byte) error
//   - flow expects: func(topic, payload []byte)
type mqttFlowAdapter struct {
	client *mqtt.Client
}

// Publish implements flow.MQTTClient.
func (a *mqttFlowAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements flow.MQTTClient.
func (a *mqttFlowAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements flow.MQTTClient.
func (a *mqttFlowAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements flow.MQTTClient.
func (a *mqttFlowAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
