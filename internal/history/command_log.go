package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// CommandEntry is one audited command.
type CommandEntry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id,omitempty"`
	Command   string    `json:"command"`
	Origin    string    `json:"origin"`
	OK        bool      `json:"ok"`
	ErrorCode string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows a command log listing.
type Filter struct {
	DeviceID string // optional
	Origin   string // optional: line, web, mqtt
	Limit    int    // default 50, max 200
	Offset   int
}

// ListResult is one page of the command log.
type ListResult struct {
	Commands []CommandEntry `json:"commands"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// CommandLog stores audited commands in the command_log table.
type CommandLog struct {
	db     *sql.DB
	logger Logger
}

// NewCommandLog returns a CommandLog backed by db.
func NewCommandLog(db *sql.DB, logger Logger) *CommandLog {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandLog{db: db, logger: logger}
}

// Create inserts e. CreatedAt is set to now when zero.
func (r *CommandLog) Create(ctx context.Context, e *CommandEntry) error {
	if e.Command == "" {
		return fmt.Errorf("command is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	ok := 0
	if e.OK {
		ok = 1
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log (device_id, command, origin, ok, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.DeviceID, e.Command, e.Origin, ok, e.ErrorCode,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// HandleCommand implements hvac.CommandSink. Only send and raw are audited.
func (r *CommandLog) HandleCommand(ctx context.Context, rec hvac.CommandRecord) {
	if rec.Command != "send" && rec.Command != "raw" {
		return
	}
	e := &CommandEntry{
		DeviceID:  rec.DeviceID,
		Command:   rec.Command,
		Origin:    rec.Source,
		OK:        rec.OK,
		ErrorCode: string(rec.Error),
		CreatedAt: rec.At,
	}
	if err := r.Create(ctx, e); err != nil {
		r.logger.Warn("command log write failed", "cmd", rec.Command, "error", err)
	}
}

// List returns entries matching filter, newest first.
func (r *CommandLog) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var (
		conditions []string
		args       []any
	)
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Origin != "" {
		conditions = append(conditions, "origin = ?")
		args = append(args, filter.Origin)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_log " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := "SELECT id, device_id, command, origin, ok, error_code, created_at FROM command_log " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := make([]CommandEntry, 0, filter.Limit)
	for rows.Next() {
		var (
			e         CommandEntry
			ok        int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Command, &e.Origin, &ok, &e.ErrorCode, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log: %w", err)
		}
		e.OK = ok != 0
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Commands: entries,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}
