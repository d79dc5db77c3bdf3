package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taxtrail/internal/audit"
	clientmodels "taxtrail/internal/client/models"
	docmodels "taxtrail/internal/document/models"
	"taxtrail/internal/followup/message"
	"taxtrail/internal/followup/models"
	"taxtrail/internal/followup/notify"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/sentinel"
	"taxtrail/pkg/requestcontext"
)

// LedgerStore is the append-only follow-up ledger.
type LedgerStore interface {
	Append(ctx context.Context, event *models.Event) error
	Latest(ctx context.Context, clientID id.ClientID) (*models.Event, error)
	Count(ctx context.Context, clientID id.ClientID) (int, error)
	ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.Event, error)
	MarkResponded(ctx context.Context, clientID id.ClientID, seq int, now time.Time) error
}

// ClientStore is the slice of client persistence needed for ownership checks.
type ClientStore interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*clientmodels.Client, error)
}

// RequirementReader supplies the registry view used to snapshot missing
// documents at send time.
type RequirementReader interface {
	ListByClient(ctx context.Context, clientID id.ClientID) ([]*docmodels.Requirement, error)
}

// ReportInvalidator drops any cached status report for an accountant after a
// ledger write.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, accountantID id.AccountantID) error
}

// SenderProfile is the accountant identity stamped into outgoing reminders.
type SenderProfile struct {
	Name  string
	Firm  string
	Phone string
}

// Service sends reminders and maintains the follow-up ledger.
type Service struct {
	ledger       LedgerStore
	clients      ClientStore
	requirements RequirementReader
	notifier     notify.Notifier
	schedule     models.Schedule
	profile      SenderProfile
	auditor      *audit.Publisher
	invalidator  ReportInvalidator
	logger       *slog.Logger
}

type Option func(*Service)

func WithSchedule(schedule models.Schedule) Option {
	return func(s *Service) { s.schedule = schedule }
}

func WithSenderProfile(profile SenderProfile) Option {
	return func(s *Service) { s.profile = profile }
}

func WithInvalidator(inv ReportInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(ledger LedgerStore, clients ClientStore, requirements RequirementReader, notifier notify.Notifier, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		ledger:       ledger,
		clients:      clients,
		requirements: requirements,
		notifier:     notifier,
		schedule:     models.DefaultSchedule(),
		auditor:      auditor,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendResult reports a successful reminder send.
type SendResult struct {
	Event     *models.Event `json:"event"`
	Recipient string        `json:"recipient"`
}

// SendReminder renders and delivers the next reminder for a client, then
// appends it to the ledger. A client with nothing missing is an invalid-state
// error; a delivery failure leaves the ledger untouched so the reminder can
// be retried without skipping a sequence number.
func (s *Service) SendReminder(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, channel models.Channel, customMessage string) (*SendResult, error) {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		channel = models.ChannelEmail
	}
	if !channel.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown reminder channel")
	}

	reqs, err := s.requirements.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirements")
	}
	completion := docmodels.Compute(reqs)
	if completion.Percentage == 100 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "all required documents received; nothing to remind about")
	}
	missing := make([]string, 0, len(completion.Missing))
	for _, r := range completion.Missing {
		missing = append(missing, string(r.Type))
	}

	count, err := s.ledger.Count(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count follow-ups")
	}
	seq := count + 1
	now := requestcontext.Now(ctx)

	rendered := message.Render(seq, message.Personalization{
		ClientName:      client.Name,
		TaxYear:         client.TaxYear,
		Missing:         missing,
		AccountantName:  s.profile.Name,
		AccountantFirm:  s.profile.Firm,
		AccountantPhone: s.profile.Phone,
	}, customMessage)

	messageID, err := s.notifier.Send(ctx, notify.Delivery{
		To:      client.Email,
		Phone:   client.Phone,
		Channel: channel,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "reminder delivery failed")
	}

	event, err := models.NewEvent(clientID, seq, channel, rendered.Subject, missing, now)
	if err != nil {
		return nil, err
	}
	next := s.schedule.NextAfter(now, seq)
	event.NextScheduledAt = &next
	event.MessageID = messageID

	if err := s.ledger.Append(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A racing sender won the slot. The client did get a reminder, so
			// surface the conflict rather than double-logging.
			return nil, dErrors.New(dErrors.CodeConflict, "a reminder with this sequence was already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append follow-up event")
	}

	s.emit(ctx, client, audit.EventReminderSent, fmt.Sprintf("seq=%d channel=%s missing=%d", seq, channel, len(missing)))
	s.invalidate(ctx, accountantID)
	s.logger.InfoContext(ctx, "reminder sent",
		"client_id", clientID,
		"seq", seq,
		"channel", channel,
		"message_id", messageID,
	)
	return &SendResult{Event: event, Recipient: client.Email}, nil
}

// MarkResponded flags a ledger entry once the client replies.
func (s *Service) MarkResponded(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, seq int) error {
	client, err := s.ownedClient(ctx, accountantID, clientID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	if err := s.ledger.MarkResponded(ctx, clientID, seq, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "follow-up event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark follow-up responded")
	}
	s.emit(ctx, client, audit.EventResponseRecorded, fmt.Sprintf("seq=%d", seq))
	s.invalidate(ctx, accountantID)
	return nil
}

// History returns the client's full follow-up ledger in sequence order.
func (s *Service) History(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Event, error) {
	if _, err := s.ownedClient(ctx, accountantID, clientID); err != nil {
		return nil, err
	}
	events, err := s.ledger.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-up events")
	}
	return events, nil
}

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
