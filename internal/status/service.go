package status

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	clientmodels "taxtrail/internal/client/models"
	docmodels "taxtrail/internal/document/models"
	"taxtrail/internal/escalation"
	fumodels "taxtrail/internal/followup/models"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/requestcontext"
)

// ClientStore is the slice of client persistence the aggregator reads.
type ClientStore interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*clientmodels.Client, error)
	FindByAccountant(ctx context.Context, accountantID id.AccountantID) ([]*clientmodels.Client, error)
}

// RequirementReader supplies the registry view per client.
type RequirementReader interface {
	ListByClient(ctx context.Context, clientID id.ClientID) ([]*docmodels.Requirement, error)
}

// LedgerReader supplies the follow-up history per client.
type LedgerReader interface {
	Count(ctx context.Context, clientID id.ClientID) (int, error)
	Latest(ctx context.Context, clientID id.ClientID) (*fumodels.Event, error)
}

// Service is the status aggregator: it joins the registry and the ledger,
// runs the escalation policy, and produces sorted, summarized reports.
type Service struct {
	clients      ClientStore
	requirements RequirementReader
	ledger       LedgerReader
	settings     escalation.SettingsStore
	cache        Cache
	metrics      *Metrics
	logger       *slog.Logger
}

type Option func(*Service)

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

func New(clients ClientStore, requirements RequirementReader, ledger LedgerReader, settings escalation.SettingsStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		clients:      clients,
		requirements: requirements,
		ledger:       ledger,
		settings:     settings,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report computes the accountant's dashboard. An empty filter includes every
// client; otherwise only clients in the filtered status appear, and the
// summary covers the filtered set. One client failing to evaluate does not
// fail the report: that client appears as an error marker.
func (s *Service) Report(ctx context.Context, accountantID id.AccountantID, filter escalation.Status) (*Report, error) {
	if filter != "" && !filter.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status filter")
	}

	rows, err := s.reportRows(ctx, accountantID)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		filtered := make([]ClientStatus, 0, len(rows))
		for _, row := range rows {
			if row.Error == "" && row.Status == filter {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	// Urgency order; SliceStable keeps creation order within a status.
	sort.SliceStable(rows, func(i, j int) bool {
		return statusPriority(rows[i]) < statusPriority(rows[j])
	})

	return &Report{
		GeneratedAt: requestcontext.Now(ctx),
		Clients:     rows,
		Summary:     summarize(rows),
	}, nil
}

// ClientStatus computes one client's enriched status. Unlike Report, an
// evaluation failure here is an error, not a marker.
func (s *Service) ClientStatus(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*ClientStatus, error) {
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
	cfg, err := s.settings.Get(ctx, accountantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escalation settings")
	}
	row, err := s.evaluate(ctx, client, cfg, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) reportRows(ctx context.Context, accountantID id.AccountantID) ([]ClientStatus, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, accountantID)
		switch {
		case err == nil:
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			return cached, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "report cache read failed", "error", err)
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
	}

	clients, err := s.clients.FindByAccountant(ctx, accountantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	cfg, err := s.settings.Get(ctx, accountantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escalation settings")
	}

	now := requestcontext.Now(ctx)
	rows := make([]ClientStatus, 0, len(clients))
	for _, client := range clients {
		row, err := s.evaluate(ctx, client, cfg, now)
		if err != nil {
			if s.metrics != nil {
				s.metrics.ClientEvalErrors.Inc()
			}
			s.logger.WarnContext(ctx, "client evaluation failed",
				"client_id", client.ID, "error", err)
			rows = append(rows, ClientStatus{
				ClientID: client.ID,
				Name:     client.Name,
				Email:    client.Email,
				TaxYear:  client.TaxYear,
				Error:    dErrors.MessageOf(err),
			})
			continue
		}
		rows = append(rows, row)
	}
	if s.metrics != nil {
		s.metrics.ReportsGenerated.Inc()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, accountantID, rows); err != nil {
			s.logger.WarnContext(ctx, "report cache write failed", "error", err)
		}
	}
	return rows, nil
}

// evaluate joins one client's registry and ledger and runs the policy.
// A stored escalated status is sticky: the policy may compute something
// milder, but only a manual clear leaves escalated.
func (s *Service) evaluate(ctx context.Context, client *clientmodels.Client, cfg escalation.Config, now time.Time) (ClientStatus, error) {
	reqs, err := s.requirements.ListByClient(ctx, client.ID)
	if err != nil {
		return ClientStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirements")
	}
	completion := docmodels.Compute(reqs)

	count, err := s.ledger.Count(ctx, client.ID)
	if err != nil {
		return ClientStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count follow-ups")
	}
	inputs := escalation.Inputs{
		CompletionPct: completion.Percentage,
		FollowupCount: count,
	}
	latest, err := s.ledger.Latest(ctx, client.ID)
	switch {
	case err == nil:
		inputs.LastFollowupAt = &latest.SentAt
		inputs.NextFollowupAt = latest.NextScheduledAt
	case !errors.Is(err, sentinel.ErrNotFound):
		return ClientStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest follow-up")
	}

	outcome := escalation.Evaluate(now, inputs, cfg)
	if client.Status == escalation.StatusEscalated {
		outcome.Status = escalation.StatusEscalated
		outcome.NextAction = "Requires accountant intervention - call client directly"
	}

	missing := make([]string, 0, len(completion.Missing))
	for _, r := range completion.Missing {
		missing = append(missing, string(r.Type))
	}
	return ClientStatus{
		ClientID:            client.ID,
		Name:                client.Name,
		Email:               client.Email,
		TaxYear:             client.TaxYear,
		ClientType:          string(client.ClientType),
		Status:              outcome.Status,
		CompletionPct:       completion.Percentage,
		MissingDocuments:    missing,
		FollowupCount:       count,
		LastFollowupAt:      inputs.LastFollowupAt,
		NextFollowupAt:      inputs.NextFollowupAt,
		DaysUntilEscalation: outcome.DaysUntilEscalation,
		NextAction:          outcome.NextAction,
	}, nil
}

// statusPriority sorts error markers after real statuses.
func statusPriority(row ClientStatus) int {
	if row.Error != "" {
		return 5
	}
	return row.Status.Priority()
}
