package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
)

// PostgresStore persists escalation events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, event *escalation.Event) error {
	const query = `
		INSERT INTO escalation_events (id, client_id, occurred_at, reason, notified)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, uuid.UUID(event.ClientID), event.OccurredAt, event.Reason, event.Notified)
	if err != nil {
		return fmt.Errorf("record escalation event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID) ([]*escalation.Event, error) {
	const query = `
		SELECT id, client_id, occurred_at, reason, notified
		FROM escalation_events
		WHERE client_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(clientID))
	if err != nil {
		return nil, fmt.Errorf("list escalation events: %w", err)
	}
	defer rows.Close()

	var events []*escalation.Event
	for rows.Next() {
		var e escalation.Event
		var cid uuid.UUID
		if err := rows.Scan(&e.ID, &cid, &e.OccurredAt, &e.Reason, &e.Notified); err != nil {
			return nil, fmt.Errorf("scan escalation event: %w", err)
		}
		e.ClientID = id.ClientID(cid)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalation events: %w", err)
	}
	return events, nil
}
