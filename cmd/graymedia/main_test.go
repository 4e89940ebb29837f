package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the config does not validate.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	configContent := `
site:
  id: test-site

database:
  path: ""

cloud_sync:
  enabled: false

logging:
  level: error
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
	t.Setenv("GRAYLOGIC_DATABASE_PATH", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestDeviceTopics(t *testing.T) {
	topics := deviceTopics([]config.MediaDeviceConfig{
		{ID: " tv-lounge ", DeviceType: "TV", Topic: "flows/lounge/tv"},
		{ID: "speaker", DeviceType: "SPEAKER"},
	})

	if len(topics) != 1 || topics["tv-lounge"] != "flows/lounge/tv" {
		t.Errorf("deviceTopics() = %v", topics)
	}
}

type nopSync struct{}

func (nopSync) ReportState(context.Context, *media.Descriptor, media.State) {}

func TestRegisterDevices(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error"}, "test", "")
	devices := []config.MediaDeviceConfig{
		{ID: "tv-lounge", Name: "Lounge TV", DeviceType: "TV"},
		{ID: "speaker", Name: "Speaker", DeviceType: "SPEAKER", Topic: "flows/speaker"},
		{ID: "tv-lounge", Name: "Duplicate", DeviceType: "TV"},
	}

	registry := media.NewRegistry(media.RegistryOptions{CloudSync: nopSync{}})
	defer registry.Close()

	if got := registerDevices(registry, devices, log); got != 2 {
		t.Errorf("registerDevices() = %d, want 2", got)
	}
	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
}

func TestRegisterDevices_NoCloudSync(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error"}, "test", "")
	registry := media.NewRegistry(media.RegistryOptions{})
	defer registry.Close()

	got := registerDevices(registry, []config.MediaDeviceConfig{{ID: "tv", DeviceType: "TV"}}, log)
	if got != 0 || registry.Count() != 0 {
		t.Errorf("registered %d devices without cloud sync, want 0", got)
	}
}

func TestMigrationCheck(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "media.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	check := migrationCheck{db: db}

	if err := check.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() before Migrate() should report pending migrations")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := check.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() after Migrate() error = %v", err)
	}
}

type fakeTracker struct {
	connected bool
	topics    map[string]bool
}

func (f fakeTracker) IsConnected() bool                 { return f.connected }
func (f fakeTracker) HasSubscription(topic string) bool { return f.topics[topic] }

func TestSubscriptionCheck(t *testing.T) {
	topic := mqtt.Topics{}.AllMediaIn()

	tests := []struct {
		name    string
		client  fakeTracker
		wantErr bool
	}{
		{"subscribed", fakeTracker{connected: true, topics: map[string]bool{topic: true}}, false},
		{"disconnected", fakeTracker{connected: false, topics: map[string]bool{topic: true}}, true},
		{"not subscribed", fakeTracker{connected: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := subscriptionCheck{client: tt.client, topic: topic}.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
