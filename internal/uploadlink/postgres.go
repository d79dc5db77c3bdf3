package uploadlink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// PostgresStore persists upload-link records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	const query = `
		INSERT INTO upload_links (link_id, client_id, secret_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.LinkID, uuid.UUID(record.ClientID),
		record.SecretHash, record.ExpiresAt, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("save upload link: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, linkID uuid.UUID) (*Record, error) {
	const query = `
		SELECT link_id, client_id, secret_hash, expires_at, created_at
		FROM upload_links
		WHERE link_id = $1
	`
	var record Record
	var clientID uuid.UUID
	err := s.db.QueryRowContext(ctx, query, linkID).Scan(
		&record.LinkID, &clientID, &record.SecretHash, &record.ExpiresAt, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find upload link: %w", err)
	}
	record.ClientID = id.ClientID(clientID)
	return &record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, linkID uuid.UUID) error {
	const query = `DELETE FROM upload_links WHERE link_id = $1`
	res, err := s.db.ExecContext(ctx, query, linkID)
	if err != nil {
		return fmt.Errorf("delete upload link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete upload link: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
