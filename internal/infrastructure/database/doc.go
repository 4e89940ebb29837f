// Package database provides SQLite connectivity for Gray Logic Media.
//
// The local store holds the report-state journal (state_history) that backs
// the device history endpoint and survives restarts.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations with per-migration transactions
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql and live in
// the top-level migrations package. The schema only moves forward.
package database
