// Package events records domain-level business events (uploads,
// conversions, settings changes) in SQLite for after-the-fact auditing.
//
// Logging is non-blocking by contract: a failing event store must never
// break the pipeline, so errors are logged via slog and swallowed.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvillars/docuforge/idgen"
)

// Event types.
const (
	TypeProjectCreated    = "project_created"
	TypeProjectDeleted    = "project_deleted"
	TypeDocumentUploaded  = "document_uploaded"
	TypeDocumentProcessed = "document_processed"
	TypeDocumentFailed    = "document_failed"
	TypeDocumentDeleted   = "document_deleted"
	TypeSettingsUpdated   = "settings_updated"
	TypeMergeCompleted    = "merge_completed"
)

const schema = `
CREATE TABLE IF NOT EXISTS business_events (
	event_id    TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	details     TEXT,
	success     INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_business_events_type ON business_events(event_type, created_at);
`

// Event is one domain-level occurrence to record.
type Event struct {
	Type       string
	EntityType string // "project", "document", "settings", "merge"
	EntityID   string
	Details    string // optional JSON
	Success    bool
}

// Logger writes business events and manages retention cleanup.
type Logger struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewLogger creates a Logger backed by db, initialising its table.
func NewLogger(db *sql.DB) (*Logger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("events: schema: %w", err)
	}
	return &Logger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}, nil
}

// Log records an event. Errors are logged via slog but never returned.
func (l *Logger) Log(ctx context.Context, e Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_events (event_id, event_type, entity_type, entity_id, details, success, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		l.newID(), e.Type, e.EntityType, e.EntityID, e.Details, e.Success, time.Now().Unix())
	if err != nil {
		slog.Error("event log failed", "error", err, "event_type", e.Type)
	}
}

// Cleanup deletes events older than the retention window. days <= 0 is
// a no-op.
func (l *Logger) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days*86400)
	if _, err := l.db.ExecContext(ctx, `DELETE FROM business_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("events: cleanup: %w", err)
	}
	return nil
}
