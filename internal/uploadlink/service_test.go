package uploadlink

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
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/requestcontext"
	"taxtrail/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx          context.Context
	now          time.Time
	svc          *Service
	store        *InMemoryStore
	clients      *clientstore.InMemoryStore
	auditLog     *auditstore.InMemoryStore
	accountantID id.AccountantID
	clientID     id.ClientID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s.accountantID = id.NewAccountantID()
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.store = NewInMemoryStore()
	s.clients = clientstore.NewInMemory()
	s.auditLog = auditstore.NewInMemory()
	s.svc = New(s.store, s.clients, "test-signing-key", "taxtrail-test",
		audit.NewPublisher(s.auditLog), slog.New(slog.DiscardHandler))

	client, err := clientmodels.NewClient(id.NewClientID(), s.accountantID,
		"Jordan Reyes", "jordan@example.com", "", 2025, clientmodels.TypeIndividual, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clients.Create(s.ctx, client))
	s.clientID = client.ID
}

func (s *ServiceSuite) TestIssueAndRedeem() {
	link, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, time.Hour)
	s.Require().NoError(err)
	s.NotEmpty(link.Token)
	s.NotEmpty(link.Secret)
	s.Equal(s.now.Add(time.Hour), link.ExpiresAt)

	clientID, err := s.svc.Redeem(s.ctx, link.Token, link.Secret)
	s.Require().NoError(err)
	s.Equal(s.clientID, clientID)

	trail := s.auditLog.ByClient(s.clientID)
	s.Require().Len(trail, 1)
	s.Equal(audit.EventUploadLinkIssued, trail[0].Action)
}

func (s *ServiceSuite) TestIssueClampsTTL() {
	link, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, 365*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(s.now.Add(DefaultTTL), link.ExpiresAt)
}

func (s *ServiceSuite) TestIssueForForeignClient() {
	_, err := s.svc.Issue(s.ctx, id.NewAccountantID(), s.clientID, time.Hour)
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestRedeemWithWrongSecret() {
	link, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, time.Hour)
	s.Require().NoError(err)

	_, err = s.svc.Redeem(s.ctx, link.Token, "not-the-secret")
	testutil.AssertCode(s.T(), err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestRedeemGarbageToken() {
	_, err := s.svc.Redeem(s.ctx, "not-a-token", "whatever")
	testutil.AssertCode(s.T(), err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestRedeemExpiredLink() {
	link, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, time.Hour)
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(2*time.Hour))
	_, err = s.svc.Redeem(later, link.Token, link.Secret)
	testutil.AssertCode(s.T(), err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestRevokedLinkStopsWorking() {
	link, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, time.Hour)
	s.Require().NoError(err)

	records := s.storeRecords()
	s.Require().Len(records, 1)
	s.Require().NoError(s.svc.Revoke(s.ctx, s.accountantID, records[0].LinkID))

	_, err = s.svc.Redeem(s.ctx, link.Token, link.Secret)
	testutil.AssertCode(s.T(), err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestRevokeByForeignAccountant() {
	_, err := s.svc.Issue(s.ctx, s.accountantID, s.clientID, time.Hour)
	s.Require().NoError(err)

	records := s.storeRecords()
	s.Require().Len(records, 1)
	err = s.svc.Revoke(s.ctx, id.NewAccountantID(), records[0].LinkID)
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) storeRecords() []*Record {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	out := make([]*Record, 0, len(s.store.records))
	for _, r := range s.store.records {
		copied := *r
		out = append(out, &copied)
	}
	return out
}
