package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taxtrail/internal/audit"
	"taxtrail/internal/client/models"
	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/requestcontext"
)

// Store is the client persistence the service depends on.
type Store interface {
	Create(ctx context.Context, c *models.Client) error
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	FindByAccountant(ctx context.Context, accountantID id.AccountantID) ([]*models.Client, error)
	UpdateStatus(ctx context.Context, clientID id.ClientID, from, to escalation.Status, now time.Time) error
}

// ReportInvalidator drops any cached status report for an accountant after a
// client write.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, accountantID id.AccountantID) error
}

// Service handles client intake and lifecycle.
type Service struct {
	store       Store
	settings    escalation.SettingsStore
	auditor     *audit.Publisher
	invalidator ReportInvalidator
	logger      *slog.Logger
}

type Option func(*Service)

func WithInvalidator(inv ReportInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(store Store, settings escalation.SettingsStore, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: settings,
		auditor:  auditor,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams is the intake payload.
type CreateParams struct {
	Name       string
	Email      string
	Phone      string
	TaxYear    int
	ClientType models.ClientType
}

// Create registers a new client for the accountant.
func (s *Service) Create(ctx context.Context, accountantID id.AccountantID, params CreateParams) (*models.Client, error) {
	now := requestcontext.Now(ctx)
	client, err := models.NewClient(id.NewClientID(), accountantID,
		params.Name, params.Email, params.Phone, params.TaxYear, params.ClientType, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, client); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "client already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store client")
	}
	s.emit(ctx, client, audit.EventClientCreated, fmt.Sprintf("tax_year=%d type=%s", client.TaxYear, client.ClientType))
	s.invalidate(ctx, accountantID)
	s.logger.InfoContext(ctx, "client created",
		"client_id", client.ID,
		"tax_year", client.TaxYear,
		"client_type", client.ClientType,
	)
	return client, nil
}

// Get returns one owned client.
func (s *Service) Get(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*models.Client, error) {
	return s.ownedClient(ctx, accountantID, clientID)
}

// List returns the accountant's clients in creation order.
func (s *Service) List(ctx context.Context, accountantID id.AccountantID) ([]*models.Client, error) {
	clients, err := s.store.FindByAccountant(ctx, accountantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return clients, nil
}

// ClearEscalation is the manual override that releases a client from the
// terminal escalated status back to incomplete. Only the owning accountant
// may clear.
func (s *Service) ClearEscalation(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*models.Client, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	if client.Status != escalation.StatusEscalated {
		return nil, dErrors.New(dErrors.CodeInvalidState, "client is not escalated")
	}
	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, clientID, escalation.StatusEscalated, escalation.StatusIncomplete, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "client status changed concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client status")
	}
	client.ApplyStatus(escalation.StatusIncomplete, now)
	s.invalidate(ctx, accountantID)
	s.logger.InfoContext(ctx, "escalation cleared", "client_id", clientID)
	return client, nil
}

// Settings returns the accountant's escalation thresholds.
func (s *Service) Settings(ctx context.Context, accountantID id.AccountantID) (escalation.Config, error) {
	cfg, err := s.settings.Get(ctx, accountantID)
	if err != nil {
		return escalation.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load settings")
	}
	return cfg, nil
}

// UpdateSettings overrides the accountant's escalation thresholds.
func (s *Service) UpdateSettings(ctx context.Context, accountantID id.AccountantID, cfg escalation.Config) error {
	if cfg.Threshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "reminder threshold must be at least 1")
	}
	if cfg.GraceDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "grace days cannot be negative")
	}
	if err := s.settings.Put(ctx, accountantID, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store settings")
	}
	s.invalidate(ctx, accountantID)
	return nil
}

func (s *Service) ownedClient(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*models.Client, error) {
	client, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	if !client.OwnedBy(accountantID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return client, nil
}

func (s *Service) emit(ctx context.Context, client *models.Client, action audit.Action, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		AccountantID: client.AccountantID,
		ClientID:     client.ID,
		Action:       action,
		Detail:       detail,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, accountantID id.AccountantID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, accountantID); err != nil {
		s.logger.WarnContext(ctx, "report cache invalidation failed", "accountant_id", accountantID, "error", err)
	}
}
