package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AuditStore persists audit events. The nil store is a no-op, so audit can
// be disabled by configuration without branching at every call site.
type AuditStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *Logger
}

// NewAuditStore opens (or creates) a SQLite-backed audit trail with WAL mode.
func NewAuditStore(dbPath string) (*AuditStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open audit db %s: %w", dbPath, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	session_id TEXT,
	provider TEXT,
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	details TEXT,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_events_type_ts ON audit_events(event_type, timestamp);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}

	return &AuditStore{db: db, logger: NewLogger()}, nil
}

// SaveEvent persists a single audit event.
func (s *AuditStore) SaveEvent(event *AuditEvent) error {
	if s == nil || event == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var details []byte
	if event.Details != nil {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO audit_events (id, timestamp, event_type, severity, session_id, provider, action, status, details, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.EventType),
		string(event.Severity),
		event.SessionID,
		event.Provider,
		event.Action,
		string(event.Status),
		string(details),
		event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// Record saves the event and logs a warning if persistence fails. Audit
// failures must never fail the guarded operation itself.
func (s *AuditStore) Record(event *AuditEvent) {
	if s == nil {
		return
	}
	if err := s.SaveEvent(event); err != nil {
		s.logger.Warn("audit event not persisted", "event_type", string(event.EventType), "error", err.Error())
	}
}

// RecentEvents returns up to limit events of the given type, newest first.
// An empty eventType matches all events.
func (s *AuditStore) RecentEvents(ctx context.Context, eventType AuditEventType, limit int) ([]*AuditEvent, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, timestamp, event_type, severity, session_id, provider, action, status, details, error_message
		FROM audit_events`
	args := []interface{}{}
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var ts, details string
		if err := rows.Scan(&e.ID, &ts, &e.EventType, &e.Severity, &e.SessionID, &e.Provider, &e.Action, &e.Status, &details, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if parsed, err := parseAuditTimestamp(ts); err == nil {
			e.Timestamp = parsed
		}
		if details != "" {
			_ = json.Unmarshal([]byte(details), &e.Details)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func parseAuditTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, ts)
}

// Close releases the underlying database handle.
func (s *AuditStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
