package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
)

// PostgresSettings keeps per-accountant escalation overrides in PostgreSQL.
// Accountants without a stored row resolve to the configured defaults.
type PostgresSettings struct {
	db       *sql.DB
	defaults escalation.Config
}

func NewPostgresSettings(db *sql.DB, defaults escalation.Config) *PostgresSettings {
	return &PostgresSettings{db: db, defaults: defaults}
}

func (s *PostgresSettings) Get(ctx context.Context, accountantID id.AccountantID) (escalation.Config, error) {
	const query = `
		SELECT reminder_threshold, grace_days
		FROM accountant_settings
		WHERE accountant_id = $1
	`
	var cfg escalation.Config
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(accountantID)).
		Scan(&cfg.Threshold, &cfg.GraceDays)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return escalation.Config{}, fmt.Errorf("get accountant settings: %w", err)
	}
	return cfg, nil
}

func (s *PostgresSettings) Put(ctx context.Context, accountantID id.AccountantID, cfg escalation.Config) error {
	const query = `
		INSERT INTO accountant_settings (accountant_id, reminder_threshold, grace_days)
		VALUES ($1, $2, $3)
		ON CONFLICT (accountant_id) DO UPDATE
		SET reminder_threshold = EXCLUDED.reminder_threshold,
		    grace_days         = EXCLUDED.grace_days,
		    updated_at         = now()
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.UUID(accountantID), cfg.Threshold, cfg.GraceDays); err != nil {
		return fmt.Errorf("put accountant settings: %w", err)
	}
	return nil
}
