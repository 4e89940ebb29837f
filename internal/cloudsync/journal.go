package cloudsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// journalTimeFormat is fixed-width so created_at sorts lexically.
	journalTimeFormat = "2006-01-02T15:04:05.000000Z"
)

// SourceReport marks entries written from state reports.
const SourceReport = "report"

// JournalEntry is one recorded state report.
type JournalEntry struct {
	// ID is the auto-incremented primary key for the row.
	ID int64 `json:"id"`

	// DeviceID is the unique identifier of the device.
	DeviceID string `json:"device_id"`

	// State is the full state that was reported.
	State media.State `json:"state"`

	// Source identifies what produced the entry.
	Source string `json:"source"`

	// CreatedAt is when the entry was written (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Journal keeps a local history of reported states in SQLite.
//
// It is a Sink: every report delivered by the Reporter is appended to the
// state_history table. The history is served by the API and pruned by
// retention.
type Journal struct {
	db *sql.DB
}

// NewJournal creates a journal on an open database whose migrations
// have been applied.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Name implements Sink.
func (j *Journal) Name() string { return "journal" }

// Push implements Sink.
func (j *Journal) Push(ctx context.Context, report Report) error {
	return j.Record(ctx, report.DeviceID, report.State, SourceReport)
}

// Forget implements Forgetter.
func (j *Journal) Forget(ctx context.Context, deviceID string) error {
	_, err := j.DeleteDevice(ctx, deviceID)
	return err
}

// Record appends a state snapshot for a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - state: State snapshot to persist
//   - source: Origin of the entry (defaults to "report")
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) Record(ctx context.Context, deviceID string, state media.State, source string) error {
	if deviceID == "" {
		return ErrInvalidDeviceID
	}
	if source == "" {
		source = SourceReport
	}
	if state == nil {
		state = media.State{}
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		deviceID,
		string(stateJSON),
		source,
		time.Now().UTC().Format(journalTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// History returns recent entries for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []JournalEntry: Entries ordered newest first (may be empty)
//   - error: nil on success, otherwise the underlying query error
func (j *Journal) History(ctx context.Context, deviceID string, limit int) ([]JournalEntry, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, device_id, state, source, created_at
		 FROM state_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]JournalEntry, 0, limit)
	for rows.Next() {
		var entry JournalEntry
		var stateJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}

		timestamp, err := parseJournalTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// DeleteDevice removes every entry of a device.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) DeleteDevice(ctx context.Context, deviceID string) (int64, error) {
	if deviceID == "" {
		return 0, ErrInvalidDeviceID
	}

	result, err := j.db.ExecContext(ctx, "DELETE FROM state_history WHERE device_id = ?", deviceID)
	if err != nil {
		return 0, fmt.Errorf("deleting device history: %w", err)
	}
	return rowsAffected(result)
}

// Prune deletes entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (j *Journal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(journalTimeFormat)
	result, err := j.db.ExecContext(ctx, "DELETE FROM state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}
	return rowsAffected(result)
}

// RunPruner prunes entries older than retention every interval until ctx
// is cancelled. Errors are passed to onError, which may be nil.
func (j *Journal) RunPruner(ctx context.Context, interval, retention time.Duration, onError func(error)) {
	if interval <= 0 || retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Prune(ctx, retention); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseJournalTimestamp parses a timestamp stored in SQLite.
func parseJournalTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(journalTimeFormat, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse(time.RFC3339, value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
