package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-media/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-media/migrations"
)

// TestEmbeddedMigrations applies the shipped schema and checks the journal table.
func TestEmbeddedMigrations(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "graymedia.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, state) VALUES (?, ?)",
		"tv-lounge", `{"on":true}`,
	)
	if err != nil {
		t.Fatalf("insert into state_history error = %v", err)
	}

	var source, createdAt string
	err = db.QueryRowContext(ctx,
		"SELECT source, created_at FROM state_history WHERE device_id = ?", "tv-lounge",
	).Scan(&source, &createdAt)
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if source != "report" {
		t.Errorf("source default = %q, want %q", source, "report")
	}
	if createdAt == "" {
		t.Error("created_at default not applied")
	}

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after Migrate() = %d, want 0", len(pending))
	}
}
