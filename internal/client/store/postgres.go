package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"taxtrail/internal/client/models"
	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// PostgresStore persists clients in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const clientColumns = `id, accountant_id, name, email, phone, tax_year, client_type, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	const query = `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.AccountantID), c.Name, c.Email, c.Phone,
		c.TaxYear, string(c.ClientType), string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	const query = `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(s.db.QueryRowContext(ctx, query, uuid.UUID(clientID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByAccountant(ctx context.Context, accountantID id.AccountantID) ([]*models.Client, error) {
	const query = `SELECT ` + clientColumns + ` FROM clients WHERE accountant_id = $1 ORDER BY created_at, id`
	return s.queryClients(ctx, query, uuid.UUID(accountantID))
}

func (s *PostgresStore) All(ctx context.Context) ([]*models.Client, error) {
	const query = `SELECT ` + clientColumns + ` FROM clients ORDER BY created_at, id`
	return s.queryClients(ctx, query)
}

// UpdateStatus performs a conditional status transition. Zero rows affected
// means either the client vanished or another writer moved the status first.
func (s *PostgresStore) UpdateStatus(ctx context.Context, clientID id.ClientID, from, to escalation.Status, now time.Time) error {
	const query = `
		UPDATE clients SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := s.db.ExecContext(ctx, query, string(to), now, uuid.UUID(clientID), string(from))
	if err != nil {
		return fmt.Errorf("update client status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client status: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, clientID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) queryClients(ctx context.Context, query string, args ...any) ([]*models.Client, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	var cid, aid uuid.UUID
	var clientType, status string
	var phone sql.NullString
	if err := row.Scan(&cid, &aid, &c.Name, &c.Email, &phone, &c.TaxYear,
		&clientType, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.ClientID(cid)
	c.AccountantID = id.AccountantID(aid)
	c.Phone = phone.String
	c.ClientType = models.ClientType(clientType)
	c.Status = escalation.Status(status)
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
