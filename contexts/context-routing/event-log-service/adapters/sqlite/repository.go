package sqliteadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"contex/contexts/context-routing/event-log-service/domain/entities"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	project_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	tenant_id TEXT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (project_id, sequence)
);
CREATE TABLE IF NOT EXISTS event_sequence_counters (
	project_id TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// Repository backs the embedded single-binary deployment mode: same
// (project_id, sequence) schema as the Postgres adapter, against
// modernc.org/sqlite through plain database/sql.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("migrate event log schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Append(ctx context.Context, projectID, tenantID, eventType string, payload json.RawMessage) (entities.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entities.Event{}, err
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, "SELECT value FROM event_sequence_counters WHERE project_id = ?", projectID).Scan(&current)
	if err == sql.ErrNoRows {
		current = 0
		if _, err := tx.ExecContext(ctx, "INSERT INTO event_sequence_counters (project_id, value) VALUES (?, 0)", projectID); err != nil {
			return entities.Event{}, err
		}
	} else if err != nil {
		return entities.Event{}, err
	}

	nextSeq := current + 1
	if _, err := tx.ExecContext(ctx, "UPDATE event_sequence_counters SET value = ? WHERE project_id = ?", nextSeq, projectID); err != nil {
		return entities.Event{}, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events (project_id, sequence, tenant_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		projectID, nextSeq, tenantID, eventType, string(payload), now.Format(time.RFC3339Nano),
	); err != nil {
		return entities.Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return entities.Event{}, err
	}

	return entities.Event{
		ProjectID: projectID,
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   payload,
		Sequence:  nextSeq,
		CreatedAt: now,
	}, nil
}

func (r *Repository) Read(ctx context.Context, projectID string, since int64, limit int) ([]entities.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT tenant_id, event_type, payload, sequence, created_at FROM events WHERE project_id = ? AND sequence > ? ORDER BY sequence ASC LIMIT ?",
		projectID, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []entities.Event
	for rows.Next() {
		var (
			tenantID, eventType, payload, createdAt string
			sequence                                int64
		)
		if err := rows.Scan(&tenantID, &eventType, &payload, &sequence, &createdAt); err != nil {
			return nil, err
		}
		createdAtTime, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		events = append(events, entities.Event{
			ProjectID: projectID,
			TenantID:  tenantID,
			EventType: eventType,
			Payload:   json.RawMessage(payload),
			Sequence:  sequence,
			CreatedAt: createdAtTime,
		})
	}
	return events, rows.Err()
}

func (r *Repository) Length(ctx context.Context, projectID string) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, "SELECT value FROM event_sequence_counters WHERE project_id = ?", projectID).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return value, err
}
