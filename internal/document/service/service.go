package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taxtrail/internal/audit"
	clientmodels "taxtrail/internal/client/models"
	"taxtrail/internal/document/classify"
	"taxtrail/internal/document/models"
	"taxtrail/internal/document/scan"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/requestcontext"
)

// RequirementStore is the registry persistence the service depends on.
type RequirementStore interface {
	Put(ctx context.Context, r *models.Requirement) error
	Find(ctx context.Context, clientID id.ClientID, docType models.DocumentType) (*models.Requirement, error)
	ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.Requirement, error)
	Remove(ctx context.Context, clientID id.ClientID, docType models.DocumentType) error
	MarkSatisfied(ctx context.Context, clientID id.ClientID, docType models.DocumentType, now time.Time) error
	TouchChecked(ctx context.Context, clientID id.ClientID, now time.Time) error
}

// ClientStore is the slice of client persistence needed for ownership checks.
type ClientStore interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*clientmodels.Client, error)
}

// ReportInvalidator drops any cached status report for an accountant after a
// registry write, so the next status read recomputes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, accountantID id.AccountantID) error
}

// Service manages the per-client document requirement registry and reconciles
// it against uploaded artifacts.
type Service struct {
	requirements RequirementStore
	clients      ClientStore
	source       scan.Source
	auditor      *audit.Publisher
	invalidator  ReportInvalidator
	logger       *slog.Logger
}

type Option func(*Service)

// WithInvalidator wires report-cache invalidation into registry writes.
func WithInvalidator(inv ReportInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(requirements RequirementStore, clients ClientStore, source scan.Source, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		requirements: requirements,
		clients:      clients,
		source:       source,
		auditor:      auditor,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckResult is the outcome of one reconcile pass.
type CheckResult struct {
	Completion models.Completion     `json:"completion"`
	Received   []models.DocumentType `json:"received"`
	Missing    []models.DocumentType `json:"missing"`
	Unknown    []string              `json:"unknown"`
	CheckedAt  time.Time             `json:"checked_at"`
}

// Add registers a new requirement for a client owned by the accountant.
// Adding a type that already exists is a conflict; use Update instead.
func (s *Service) Add(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType, source string, required bool) (*models.Requirement, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requirements.Find(ctx, clientID, docType); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "requirement already exists for this document type")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing requirement")
	}

	now := requestcontext.Now(ctx)
	r, err := models.NewRequirement(clientID, docType, source, required, now)
	if err != nil {
		return nil, err
	}
	if err := s.requirements.Put(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store requirement")
	}
	s.emit(ctx, client, audit.EventRequirementAdded, fmt.Sprintf("type=%s required=%t", docType, required))
	s.invalidate(ctx, accountantID)
	return r, nil
}

// Update changes source/required flags on an existing requirement. Satisfied
// state is untouched; reconcile owns that.
func (s *Service) Update(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType, source string, required bool) (*models.Requirement, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	r, err := s.requirements.Find(ctx, clientID, docType)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "requirement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirement")
	}

	if source != "" {
		r.Source = source
	}
	r.Required = required
	r.UpdatedAt = requestcontext.Now(ctx)
	if err := s.requirements.Put(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store requirement")
	}
	s.emit(ctx, client, audit.EventRequirementUpdated, fmt.Sprintf("type=%s required=%t", docType, required))
	s.invalidate(ctx, accountantID)
	return r, nil
}

// Remove deletes a requirement from the registry.
func (s *Service) Remove(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType) error {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return err
	}
	if err := s.requirements.Remove(ctx, clientID, docType); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "requirement not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove requirement")
	}
	s.emit(ctx, client, audit.EventRequirementRemoved, fmt.Sprintf("type=%s", docType))
	s.invalidate(ctx, accountantID)
	return nil
}

// List returns the client's registry in insertion order plus its completion.
func (s *Service) List(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Requirement, *models.Completion, error) {
	if _, err := s.ownedClient(ctx, accountantID, clientID); err != nil {
		return nil, nil, err
	}
	reqs, err := s.requirements.ListByClient(ctx, clientID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirements")
	}
	completion := models.Compute(reqs)
	return reqs, &completion, nil
}

// ApplyStandard seeds the registry from the standard template for the
// client's type. Existing entries for a templated type are left alone, so
// re-applying is safe after manual edits.
func (s *Service) ApplyStandard(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Requirement, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var added []*models.Requirement
	for _, entry := range models.StandardTemplate(string(client.ClientType)) {
		if _, err := s.requirements.Find(ctx, clientID, entry.Type); err == nil {
			continue
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing requirement")
		}
		r, err := models.NewRequirement(clientID, entry.Type, entry.Source, entry.Required, now)
		if err != nil {
			return nil, err
		}
		if err := s.requirements.Put(ctx, r); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store requirement")
		}
		added = append(added, r)
	}
	s.emit(ctx, client, audit.EventTemplateApplied, fmt.Sprintf("client_type=%s added=%d", client.ClientType, len(added)))
	s.invalidate(ctx, accountantID)
	return added, nil
}

// Reconcile pulls the client's uploaded artifacts from the scan source,
// classifies each one, and marks matching requirements satisfied. Artifacts
// that classify to a type with no registry entry are reported as unknown, not
// auto-added: only the accountant decides what the client owes.
func (s *Service) Reconcile(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*CheckResult, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	artifacts, err := s.source.List(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "document source is unavailable")
	}

	now := requestcontext.Now(ctx)
	received := make(map[models.DocumentType]struct{})
	var unknown []string
	for _, artifact := range artifacts {
		docType := classify.Classify(artifact.Filename, map[string]string{
			classify.MetadataTypeKey: artifact.DeclaredType,
		})
		if docType == models.TypeUnknown {
			unknown = append(unknown, artifact.Filename)
			continue
		}
		if _, seen := received[docType]; seen {
			continue
		}
		switch err := s.requirements.MarkSatisfied(ctx, clientID, docType, now); {
		case err == nil:
			received[docType] = struct{}{}
			s.emit(ctx, client, audit.EventRequirementSatisfied, fmt.Sprintf("type=%s file=%s", docType, artifact.Filename))
		case errors.Is(err, sentinel.ErrNotFound):
			unknown = append(unknown, artifact.Filename)
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark requirement satisfied")
		}
	}

	if err := s.requirements.TouchChecked(ctx, clientID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stamp check time")
	}
	reqs, err := s.requirements.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirements")
	}
	completion := models.Compute(reqs)

	missing := make([]models.DocumentType, 0, len(completion.Missing))
	for _, r := range completion.Missing {
		missing = append(missing, r.Type)
	}
	result := &CheckResult{
		Completion: completion,
		Missing:    missing,
		Unknown:    unknown,
		CheckedAt:  now,
	}
	for _, r := range reqs {
		if r.Satisfied {
			result.Received = append(result.Received, r.Type)
		}
	}
	s.invalidate(ctx, accountantID)
	s.logger.InfoContext(ctx, "reconciled client documents",
		"client_id", clientID,
		"completion_pct", completion.Percentage,
		"unknown_artifacts", len(unknown),
	)
	return result, nil
}

// ownedClient loads a client and verifies ownership. Unowned clients report
// not-found so the API does not leak other accountants' client IDs.
func (s *Service) ownedClient(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*clientmodels.Client, error) {
	client, err := s.clients.FindByID(ctx, clientID)
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

func (s *Service) emit(ctx context.Context, client *clientmodels.Client, action audit.Action, detail string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		AccountantID: client.AccountantID,
		ClientID:     client.ID,
		Action:       action,
		Detail:       detail,
		RequestID:    requestcontext.RequestID(ctx),
		Timestamp:    requestcontext.Now(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
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
