package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeLayout has fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Accepted   bool           `json:"accepted"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which audit logs to return.
type Filter struct {
	Action   string // optional: connect, set_voltage, set_current, set_relay, teardown
	EntityID string // optional: PSU identity
	Source   string // optional: api, mqtt, system
	Rejected bool   // only entries that were not accepted
	Limit    int    // default 50, max 200
	Offset   int
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores audit logs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit log entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()[:8]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	accepted := 0
	if log.Accepted {
		accepted = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, user_id, source, details, created_at, accepted, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Action, log.EntityType,
		nullableString(log.EntityID), nullableString(log.UserID),
		log.Source, detailsJSON,
		log.CreatedAt.UTC().Format(timeLayout),
		accepted, nullableString(log.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit logs matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"action", filter.Action},
		{"entity_id", filter.EntityID},
		{"source", filter.Source},
	} {
		if c.value != "" {
			conditions = append(conditions, c.column+" = ?")
			args = append(args, c.value)
		}
	}
	if filter.Rejected {
		conditions = append(conditions, "accepted = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE built from fixed column names and ? placeholders
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, action, entity_type, entity_id, user_id, source, details, created_at, accepted, error FROM audit_logs " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanLog(rows *sql.Rows) (AuditLog, error) {
	var log AuditLog
	var entityID, userID, detailsJSON, errText sql.NullString
	var createdAt string
	var accepted int

	if err := rows.Scan(&log.ID, &log.Action, &log.EntityType,
		&entityID, &userID, &log.Source, &detailsJSON, &createdAt, &accepted, &errText); err != nil {
		return AuditLog{}, fmt.Errorf("scanning audit log: %w", err)
	}

	log.EntityID = entityID.String
	log.UserID = userID.String
	log.Error = errText.String
	log.Accepted = accepted != 0
	if detailsJSON.Valid && detailsJSON.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
			log.Details = details
		}
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		t, err = time.Parse(time.RFC3339, createdAt)
	}
	if err != nil {
		return AuditLog{}, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
	}
	log.CreatedAt = t
	return log, nil
}
