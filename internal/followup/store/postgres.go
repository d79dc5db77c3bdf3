package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"taxtrail/internal/followup/models"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// PostgresStore persists the follow-up ledger. The primary key on
// (client_id, seq) is the serialization point for racing reminder senders:
// the loser of a race hits the unique violation and gets ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const followupColumns = `client_id, seq, channel, sent_at, subject, missing_snapshot, response_received, responded_at, next_scheduled_at, message_id`

func (s *PostgresStore) Append(ctx context.Context, event *models.Event) error {
	const query = `
		INSERT INTO followup_events (` + followupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var respondedAt, nextScheduledAt sql.NullTime
	if event.RespondedAt != nil {
		respondedAt = sql.NullTime{Time: *event.RespondedAt, Valid: true}
	}
	if event.NextScheduledAt != nil {
		nextScheduledAt = sql.NullTime{Time: *event.NextScheduledAt, Valid: true}
	}
	snapshot, err := json.Marshal(event.MissingSnapshot)
	if err != nil {
		return fmt.Errorf("marshal missing snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(event.ClientID), event.Seq, string(event.Channel), event.SentAt,
		event.Subject, snapshot, event.ResponseReceived,
		respondedAt, nextScheduledAt, event.MessageID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append followup event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, clientID id.ClientID) (*models.Event, error) {
	const query = `SELECT ` + followupColumns + ` FROM followup_events WHERE client_id = $1 ORDER BY seq DESC LIMIT 1`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(clientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest followup event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) Count(ctx context.Context, clientID id.ClientID) (int, error) {
	const query = `SELECT COUNT(*) FROM followup_events WHERE client_id = $1`
	var count int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(clientID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count followup events: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.Event, error) {
	const query = `SELECT ` + followupColumns + ` FROM followup_events WHERE client_id = $1 ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(clientID))
	if err != nil {
		return nil, fmt.Errorf("list followup events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan followup event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followup events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkResponded(ctx context.Context, clientID id.ClientID, seq int, now time.Time) error {
	const query = `
		UPDATE followup_events
		SET response_received = TRUE,
			responded_at = COALESCE(responded_at, $3)
		WHERE client_id = $1 AND seq = $2
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(clientID), seq, now)
	if err != nil {
		return fmt.Errorf("mark followup responded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark followup responded: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var event models.Event
	var cid uuid.UUID
	var channel string
	var snapshot []byte
	var respondedAt, nextScheduledAt sql.NullTime
	var messageID sql.NullString
	if err := row.Scan(&cid, &event.Seq, &channel, &event.SentAt, &event.Subject,
		&snapshot, &event.ResponseReceived, &respondedAt,
		&nextScheduledAt, &messageID); err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &event.MissingSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal missing snapshot: %w", err)
		}
	}
	event.ClientID = id.ClientID(cid)
	event.Channel = models.Channel(channel)
	if respondedAt.Valid {
		event.RespondedAt = &respondedAt.Time
	}
	if nextScheduledAt.Valid {
		event.NextScheduledAt = &nextScheduledAt.Time
	}
	event.MessageID = messageID.String
	return &event, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
