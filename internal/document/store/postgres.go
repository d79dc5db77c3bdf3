package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taxtrail/internal/document/models"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// PostgresStore persists document requirements in PostgreSQL. Position is
// assigned from a per-client sequence on first insert and survives upserts,
// keeping registry order stable.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requirementColumns = `client_id, document_type, source, required, satisfied, satisfied_at, last_checked_at, position, created_at, updated_at`

func (s *PostgresStore) Put(ctx context.Context, r *models.Requirement) error {
	const query = `
		INSERT INTO requirements (client_id, document_type, source, required, satisfied, satisfied_at, last_checked_at, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM requirements WHERE client_id = $1),
			$8, $9)
		ON CONFLICT (client_id, document_type) DO UPDATE SET
			source = EXCLUDED.source,
			required = EXCLUDED.required,
			satisfied = EXCLUDED.satisfied,
			satisfied_at = EXCLUDED.satisfied_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ClientID), string(r.Type), r.Source, r.Required, r.Satisfied,
		r.SatisfiedAt, r.LastCheckedAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put requirement: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, clientID id.ClientID, docType models.DocumentType) (*models.Requirement, error) {
	const query = `SELECT ` + requirementColumns + ` FROM requirements WHERE client_id = $1 AND document_type = $2`
	r, err := scanRequirement(s.db.QueryRowContext(ctx, query, uuid.UUID(clientID), string(docType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find requirement: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.Requirement, error) {
	const query = `SELECT ` + requirementColumns + ` FROM requirements WHERE client_id = $1 ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(clientID))
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var out []*models.Requirement
	for rows.Next() {
		r, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requirements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Remove(ctx context.Context, clientID id.ClientID, docType models.DocumentType) error {
	const query = `DELETE FROM requirements WHERE client_id = $1 AND document_type = $2`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(clientID), string(docType))
	if err != nil {
		return fmt.Errorf("remove requirement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove requirement: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkSatisfied(ctx context.Context, clientID id.ClientID, docType models.DocumentType, now time.Time) error {
	const query = `
		UPDATE requirements
		SET satisfied = TRUE,
			satisfied_at = COALESCE(satisfied_at, $3),
			updated_at = $3
		WHERE client_id = $1 AND document_type = $2
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(clientID), string(docType), now)
	if err != nil {
		return fmt.Errorf("mark requirement satisfied: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark requirement satisfied: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchChecked(ctx context.Context, clientID id.ClientID, now time.Time) error {
	const query = `UPDATE requirements SET last_checked_at = $2 WHERE client_id = $1`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(clientID), now); err != nil {
		return fmt.Errorf("touch requirements: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequirement(row rowScanner) (*models.Requirement, error) {
	var r models.Requirement
	var cid uuid.UUID
	var docType string
	var satisfiedAt, lastCheckedAt sql.NullTime
	if err := row.Scan(&cid, &docType, &r.Source, &r.Required, &r.Satisfied,
		&satisfiedAt, &lastCheckedAt, &r.Position, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ClientID = id.ClientID(cid)
	r.Type = models.DocumentType(docType)
	if satisfiedAt.Valid {
		r.SatisfiedAt = &satisfiedAt.Time
	}
	if lastCheckedAt.Valid {
		r.LastCheckedAt = &lastCheckedAt.Time
	}
	return &r, nil
}
