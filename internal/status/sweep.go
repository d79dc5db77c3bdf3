package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taxtrail/internal/audit"
	clientmodels "taxtrail/internal/client/models"
	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// SweepClientStore is the client persistence the sweep worker mutates.
type SweepClientStore interface {
	ClientStore
	All(ctx context.Context) ([]*clientmodels.Client, error)
	UpdateStatus(ctx context.Context, clientID id.ClientID, from, to escalation.Status, now time.Time) error
}

// EscalationRecorder persists escalation events for the audit trail.
type EscalationRecorder interface {
	Record(ctx context.Context, event *escalation.Event) error
}

// EscalationNotifier tells the accountant a client just escalated.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, client *clientmodels.Client, reason string) error
}

// Sweep is the daily (by default) worker that re-evaluates every client,
// persists status transitions, and records escalations. It is the only
// writer of client status, so the read path stays pure.
type Sweep struct {
	clients     SweepClientStore
	service     *Service
	settings    escalation.SettingsStore
	escalations EscalationRecorder
	notifier    EscalationNotifier
	auditor     *audit.Publisher
	cache       Cache
	metrics     *Metrics
	interval    time.Duration
	logger      *slog.Logger
}

type SweepOption func(*Sweep)

func SweepWithNotifier(n EscalationNotifier) SweepOption {
	return func(s *Sweep) { s.notifier = n }
}

func SweepWithCache(cache Cache) SweepOption {
	return func(s *Sweep) { s.cache = cache }
}

func SweepWithMetrics(metrics *Metrics) SweepOption {
	return func(s *Sweep) { s.metrics = metrics }
}

func SweepWithInterval(interval time.Duration) SweepOption {
	return func(s *Sweep) { s.interval = interval }
}

func NewSweep(clients SweepClientStore, service *Service, settings escalation.SettingsStore, escalations EscalationRecorder, auditor *audit.Publisher, logger *slog.Logger, opts ...SweepOption) *Sweep {
	s := &Sweep{
		clients:     clients,
		service:     service,
		settings:    settings,
		escalations: escalations,
		auditor:     auditor,
		interval:    24 * time.Hour,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps immediately, then on every tick until the context ends.
func (s *Sweep) Run(ctx context.Context) error {
	if err := s.Once(ctx); err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "error", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Once(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// Once re-evaluates every client. Per-client failures are logged and
// skipped; the sweep always covers the rest of the fleet.
func (s *Sweep) Once(ctx context.Context) error {
	clients, err := s.clients.All(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}

	now := time.Now()
	configs := make(map[id.AccountantID]escalation.Config)
	touched := make(map[id.AccountantID]struct{})
	byStatus := make(map[escalation.Status]int)
	transitions, escalated := 0, 0

	for _, client := range clients {
		cfg, ok := configs[client.AccountantID]
		if !ok {
			cfg, err = s.settings.Get(ctx, client.AccountantID)
			if err != nil {
				s.logger.WarnContext(ctx, "settings load failed during sweep",
					"accountant_id", client.AccountantID, "error", err)
				continue
			}
			configs[client.AccountantID] = cfg
		}

		row, err := s.service.evaluate(ctx, client, cfg, now)
		if err != nil {
			s.logger.WarnContext(ctx, "client evaluation failed during sweep",
				"client_id", client.ID, "error", err)
			continue
		}
		byStatus[row.Status]++
		if row.Status == client.Status {
			continue
		}
		if err := client.CanTransitionTo(row.Status); err != nil {
			continue
		}
		if err := s.clients.UpdateStatus(ctx, client.ID, client.Status, row.Status, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Another writer moved the client first; next sweep settles it.
				continue
			}
			s.logger.WarnContext(ctx, "status update failed during sweep",
				"client_id", client.ID, "error", err)
			continue
		}
		transitions++
		touched[client.AccountantID] = struct{}{}
		if row.Status == escalation.StatusEscalated {
			escalated++
			s.recordEscalation(ctx, client, row)
		}
	}

	if s.metrics != nil {
		for _, st := range []escalation.Status{
			escalation.StatusComplete, escalation.StatusIncomplete,
			escalation.StatusAtRisk, escalation.StatusEscalated,
		} {
			s.metrics.ClientsByStatus.WithLabelValues(string(st)).Set(float64(byStatus[st]))
		}
	}
	if s.cache != nil {
		for accountantID := range touched {
			if err := s.cache.Invalidate(ctx, accountantID); err != nil {
				s.logger.WarnContext(ctx, "report cache invalidation failed",
					"accountant_id", accountantID, "error", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "sweep complete",
		"clients", len(clients),
		"transitions", transitions,
		"escalated", escalated,
	)
	return nil
}

func (s *Sweep) recordEscalation(ctx context.Context, client *clientmodels.Client, row ClientStatus) {
	reason := fmt.Sprintf("%d reminders sent, %d%% complete, grace period elapsed",
		row.FollowupCount, row.CompletionPct)

	notified := false
	if s.notifier != nil {
		if err := s.notifier.NotifyEscalation(ctx, client, reason); err != nil {
			s.logger.WarnContext(ctx, "escalation notification failed",
				"client_id", client.ID, "error", err)
		} else {
			notified = true
		}
	}

	event := escalation.NewEvent(client.ID, reason, notified, time.Now())
	if err := s.escalations.Record(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "escalation event record failed",
			"client_id", client.ID, "error", err)
	}
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			AccountantID: client.AccountantID,
			ClientID:     client.ID,
			Action:       audit.EventClientEscalated,
			Detail:       reason,
			Timestamp:    event.OccurredAt,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "client escalated",
		"client_id", client.ID,
		"reason", reason,
	)
}
