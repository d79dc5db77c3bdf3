package status

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taxtrail/internal/audit"
	auditstore "taxtrail/internal/audit/store"
	clientmodels "taxtrail/internal/client/models"
	clientstore "taxtrail/internal/client/store"
	docmodels "taxtrail/internal/document/models"
	docstore "taxtrail/internal/document/store"
	"taxtrail/internal/escalation"
	escstore "taxtrail/internal/escalation/store"
	fumodels "taxtrail/internal/followup/models"
	fustore "taxtrail/internal/followup/store"
	id "taxtrail/pkg/domain"
)

type recordingNotifier struct {
	notified []id.ClientID
	fail     bool
}

func (n *recordingNotifier) NotifyEscalation(_ context.Context, client *clientmodels.Client, _ string) error {
	if n.fail {
		return context.DeadlineExceeded
	}
	n.notified = append(n.notified, client.ID)
	return nil
}

type SweepSuite struct {
	suite.Suite
	ctx          context.Context
	now          time.Time
	sweep        *Sweep
	clients      *clientstore.InMemoryStore
	requirements *docstore.InMemoryStore
	ledger       *fustore.InMemoryStore
	escalations  *escstore.InMemoryStore
	auditLog     *auditstore.InMemoryStore
	notifier     *recordingNotifier
	accountantID id.AccountantID
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Now()
	s.accountantID = id.NewAccountantID()

	s.clients = clientstore.NewInMemory()
	s.requirements = docstore.NewInMemory()
	s.ledger = fustore.NewInMemory()
	s.escalations = escstore.NewInMemory()
	s.auditLog = auditstore.NewInMemory()
	s.notifier = &recordingNotifier{}

	settings := escalation.NewInMemorySettings(escalation.DefaultConfig())
	logger := slog.New(slog.DiscardHandler)
	service := New(s.clients, s.requirements, s.ledger, settings, logger)
	s.sweep = NewSweep(s.clients, service, settings, s.escalations,
		audit.NewPublisher(s.auditLog), logger, SweepWithNotifier(s.notifier))
}

func (s *SweepSuite) addClient(name string) id.ClientID {
	client, err := clientmodels.NewClient(id.NewClientID(), s.accountantID,
		name, name+"@example.com", "", 2025, clientmodels.TypeIndividual, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clients.Create(s.ctx, client))
	return client.ID
}

func (s *SweepSuite) addRequirement(clientID id.ClientID, satisfied bool) {
	r, err := docmodels.NewRequirement(clientID, "W-2", "", true, s.now)
	s.Require().NoError(err)
	if satisfied {
		r.MarkSatisfied(s.now)
	}
	s.Require().NoError(s.requirements.Put(s.ctx, r))
}

func (s *SweepSuite) exhaustReminders(clientID id.ClientID, lastSentAt time.Time) {
	for i := 1; i <= 3; i++ {
		event, err := fumodels.NewEvent(clientID, i, fumodels.ChannelEmail, "subject", nil, lastSentAt)
		s.Require().NoError(err)
		s.Require().NoError(s.ledger.Append(s.ctx, event))
	}
}

func (s *SweepSuite) status(clientID id.ClientID) escalation.Status {
	client, err := s.clients.FindByID(s.ctx, clientID)
	s.Require().NoError(err)
	return client.Status
}

func (s *SweepSuite) TestSweepPersistsTransitions() {
	doneID := s.addClient("done")
	s.addRequirement(doneID, true)

	freshID := s.addClient("fresh")
	s.addRequirement(freshID, false)

	s.Require().NoError(s.sweep.Once(s.ctx))

	s.Equal(escalation.StatusComplete, s.status(doneID))
	s.Equal(escalation.StatusIncomplete, s.status(freshID))
}

func (s *SweepSuite) TestSweepEscalatesAndRecords() {
	clientID := s.addClient("overdue")
	s.addRequirement(clientID, false)
	s.exhaustReminders(clientID, s.now.Add(-72*time.Hour))

	s.Require().NoError(s.sweep.Once(s.ctx))

	s.Equal(escalation.StatusEscalated, s.status(clientID))
	s.Equal([]id.ClientID{clientID}, s.notifier.notified)

	events, err := s.escalations.ListByClient(s.ctx, clientID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.True(events[0].Notified)
	s.Contains(events[0].Reason, "3 reminders sent")

	trail := s.auditLog.ByClient(clientID)
	s.Require().Len(trail, 1)
	s.Equal(audit.EventClientEscalated, trail[0].Action)
}

func (s *SweepSuite) TestSweepIsIdempotent() {
	clientID := s.addClient("overdue")
	s.addRequirement(clientID, false)
	s.exhaustReminders(clientID, s.now.Add(-72*time.Hour))

	s.Require().NoError(s.sweep.Once(s.ctx))
	s.Require().NoError(s.sweep.Once(s.ctx))

	events, err := s.escalations.ListByClient(s.ctx, clientID)
	s.Require().NoError(err)
	s.Len(events, 1, "an already-escalated client must not re-escalate")
}

func (s *SweepSuite) TestSweepNeverDeescalates() {
	clientID := s.addClient("cleared-docs")
	s.addRequirement(clientID, false)
	s.exhaustReminders(clientID, s.now.Add(-72*time.Hour))
	s.Require().NoError(s.sweep.Once(s.ctx))
	s.Require().Equal(escalation.StatusEscalated, s.status(clientID))

	// All documents arrive afterwards; the client still needs a manual clear.
	s.Require().NoError(s.requirements.MarkSatisfied(s.ctx, clientID, "W-2", s.now))
	s.Require().NoError(s.sweep.Once(s.ctx))
	s.Equal(escalation.StatusEscalated, s.status(clientID))
}

func (s *SweepSuite) TestNotifierFailureStillRecordsEvent() {
	s.notifier.fail = true
	clientID := s.addClient("overdue")
	s.addRequirement(clientID, false)
	s.exhaustReminders(clientID, s.now.Add(-72*time.Hour))

	s.Require().NoError(s.sweep.Once(s.ctx))

	events, err := s.escalations.ListByClient(s.ctx, clientID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.False(events[0].Notified)
}
