// Package sqlite persists lifecycle events in an append-only SQLite table.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/coursegate/internal/core/domain"
	"github.com/tjfontaine/coursegate/internal/core/ports"
)

const driverName = "sqlite"

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// Store implements ports.EventStore.
type Store struct {
	db *sqlx.DB
}

var _ ports.EventStore = (*Store)(nil)

// New opens (or creates) the database at path and ensures the schema exists.
// ":memory:" is accepted for tests.
func New(path string) (*Store, error) {
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lifecycle_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			type TEXT NOT NULL,
			data TEXT,
			created_at_ns INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_request ON lifecycle_events(request_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type eventRow struct {
	RequestID   string `db:"request_id"`
	Type        string `db:"type"`
	Data        []byte `db:"data"`
	CreatedAtNS int64  `db:"created_at_ns"`
}

// AppendLifecycleEvent stores event. Data is encoded as JSON.
func (s *Store) AppendLifecycleEvent(ctx context.Context, event *domain.LifecycleEvent) error {
	if event == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var data []byte
	if event.Data != nil {
		var err error
		if data, err = json.Marshal(event.Data); err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO lifecycle_events (request_id, type, data, created_at_ns)
		 VALUES (:request_id, :type, :data, :created_at_ns)`,
		eventRow{
			RequestID:   event.RequestID,
			Type:        string(event.Type),
			Data:        data,
			CreatedAtNS: event.Timestamp.UnixNano(),
		},
	)
	return err
}

// ListLifecycleEvents returns the events of one request in insertion order.
// Data comes back as json.RawMessage.
func (s *Store) ListLifecycleEvents(ctx context.Context, requestID string) ([]*domain.LifecycleEvent, error) {
	if requestID == "" {
		return []*domain.LifecycleEvent{}, nil
	}

	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT request_id, type, data, created_at_ns
		 FROM lifecycle_events
		 WHERE request_id = ?
		 ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, err
	}

	events := make([]*domain.LifecycleEvent, 0, len(rows))
	for _, r := range rows {
		evt := &domain.LifecycleEvent{
			Type:      domain.LifecycleEventType(r.Type),
			RequestID: r.RequestID,
			Timestamp: time.Unix(0, r.CreatedAtNS),
		}
		if len(r.Data) > 0 {
			evt.Data = json.RawMessage(r.Data)
		}
		events = append(events, evt)
	}
	return events, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
