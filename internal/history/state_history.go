package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Logger is the logging interface used by the sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// StateEntry is one recorded state change.
type StateEntry struct {
	ID        int64             `json:"id"`
	DeviceID  string            `json:"device_id"`
	State     hvac.StateMessage `json:"state"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"created_at"`
}

// StateHistory stores state snapshots in the state_history table.
type StateHistory struct {
	db     *sql.DB
	logger Logger
}

// NewStateHistory returns a StateHistory backed by db.
func NewStateHistory(db *sql.DB, logger Logger) *StateHistory {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StateHistory{db: db, logger: logger}
}

// RecordStateChange inserts one snapshot.
func (r *StateHistory) RecordStateChange(ctx context.Context, state hvac.StateMessage, source string) error {
	if state.ID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = hvac.SourceLine
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, state, source) VALUES (?, ?, ?)",
		state.ID,
		string(stateJSON),
		source,
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// HandleState implements hvac.StateSink.
func (r *StateHistory) HandleState(ctx context.Context, change hvac.StateChange) {
	if err := r.RecordStateChange(ctx, change.Message, change.Source); err != nil {
		r.logger.Warn("state history write failed", "device_id", change.Message.ID, "error", err)
	}
}

// GetHistory returns the newest entries for a device, limit 50 by default
// and at most 200.
func (r *StateHistory) GetHistory(ctx context.Context, deviceID string, limit int) ([]StateEntry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
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

	entries := make([]StateEntry, 0, limit)
	for rows.Next() {
		var entry StateEntry
		var stateJSON, createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries older than olderThan and returns the count.
func (r *StateHistory) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, "DELETE FROM state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// RunPruner prunes entries older than retention every interval until ctx
// is cancelled. The first prune runs immediately.
func (r *StateHistory) RunPruner(ctx context.Context, interval, retention time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.PruneHistory(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			r.logger.Warn("state history prune failed", "error", err)
		case n > 0:
			r.logger.Debug("state history pruned", "rows", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// parseTimestamp parses a created_at column.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at %q: %w", value, err)
	}
	return t, nil
}
