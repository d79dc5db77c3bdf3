package service

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
	"taxtrail/internal/document/models"
	"taxtrail/internal/document/scan"
	docstore "taxtrail/internal/document/store"
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
	requirements *docstore.InMemoryStore
	clients      *clientstore.InMemoryStore
	source       *scan.InMemorySource
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
	s.ctx = requestcontext.WithTime(requestcontext.WithAccountantID(context.Background(), s.accountantID), s.now)

	s.requirements = docstore.NewInMemory()
	s.clients = clientstore.NewInMemory()
	s.source = scan.NewInMemorySource()
	s.auditLog = auditstore.NewInMemory()

	s.svc = New(s.requirements, s.clients, s.source,
		audit.NewPublisher(s.auditLog), slog.New(slog.DiscardHandler))

	client, err := clientmodels.NewClient(id.NewClientID(), s.accountantID,
		"Jordan Reyes", "jordan@example.com", "", 2025, clientmodels.TypeIndividual, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clients.Create(s.ctx, client))
	s.clientID = client.ID
}

func (s *ServiceSuite) addRequirement(docType models.DocumentType, required bool) {
	_, err := s.svc.Add(s.ctx, s.accountantID, s.clientID, docType, "", required)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAddRequirement() {
	r, err := s.svc.Add(s.ctx, s.accountantID, s.clientID, "W-2", "All Employers", true)
	s.Require().NoError(err)
	s.Equal(models.DocumentType("W-2"), r.Type)
	s.Equal("All Employers", r.Source)
	s.True(r.Required)
	s.False(r.Satisfied)

	events := s.auditLog.ByClient(s.clientID)
	s.Require().Len(events, 1)
	s.Equal(audit.EventRequirementAdded, events[0].Action)
}

func (s *ServiceSuite) TestAddDuplicateConflicts() {
	s.addRequirement("W-2", true)
	_, err := s.svc.Add(s.ctx, s.accountantID, s.clientID, "W-2", "", true)
	testutil.AssertCode(s.T(), err, dErrors.CodeConflict)
}

func (s *ServiceSuite) TestAddDefaultsSourceToUnknown() {
	r, err := s.svc.Add(s.ctx, s.accountantID, s.clientID, "1099-INT", "", false)
	s.Require().NoError(err)
	s.Equal("Unknown", r.Source)
}

func (s *ServiceSuite) TestOwnershipHidesForeignClients() {
	stranger := id.NewAccountantID()
	_, err := s.svc.Add(s.ctx, stranger, s.clientID, "W-2", "", true)
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)

	_, _, err = s.svc.List(s.ctx, stranger, s.clientID)
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestUpdateRequirement() {
	s.addRequirement("1099-INT", false)
	r, err := s.svc.Update(s.ctx, s.accountantID, s.clientID, "1099-INT", "First National", true)
	s.Require().NoError(err)
	s.Equal("First National", r.Source)
	s.True(r.Required)
}

func (s *ServiceSuite) TestUpdateMissingRequirement() {
	_, err := s.svc.Update(s.ctx, s.accountantID, s.clientID, "1099-B", "", true)
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestRemoveRequirement() {
	s.addRequirement("W-2", true)
	s.Require().NoError(s.svc.Remove(s.ctx, s.accountantID, s.clientID, "W-2"))

	err := s.svc.Remove(s.ctx, s.accountantID, s.clientID, "W-2")
	testutil.AssertCode(s.T(), err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestListPreservesInsertionOrder() {
	s.addRequirement("Prior Year Tax Return", true)
	s.addRequirement("W-2", true)
	s.addRequirement("1099-INT", false)

	reqs, completion, err := s.svc.List(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Require().Len(reqs, 3)
	s.Equal(models.DocumentType("Prior Year Tax Return"), reqs[0].Type)
	s.Equal(models.DocumentType("W-2"), reqs[1].Type)
	s.Equal(models.DocumentType("1099-INT"), reqs[2].Type)
	s.Equal(0, completion.Percentage)
	s.Equal(2, completion.TotalRequired)
}

func (s *ServiceSuite) TestApplyStandardIndividualTemplate() {
	added, err := s.svc.ApplyStandard(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Require().Len(added, 4)
	s.Equal(models.DocumentType("W-2"), added[0].Type)

	// Re-applying after a manual edit must not clobber it.
	_, err = s.svc.Update(s.ctx, s.accountantID, s.clientID, "1099-INT", "First National", true)
	s.Require().NoError(err)
	again, err := s.svc.ApplyStandard(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Empty(again)

	r, err := s.requirements.Find(s.ctx, s.clientID, "1099-INT")
	s.Require().NoError(err)
	s.Equal("First National", r.Source)
	s.True(r.Required)
}

func (s *ServiceSuite) TestReconcileMatchesUploads() {
	s.addRequirement("W-2", true)
	s.addRequirement("1099-INT", true)
	s.source.Add(s.clientID, scan.Artifact{Filename: "2024_W2_employerABC.pdf", UploadedAt: s.now})

	result, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Equal(50, result.Completion.Percentage)
	s.Equal([]models.DocumentType{"W-2"}, result.Received)
	s.Equal([]models.DocumentType{"1099-INT"}, result.Missing)
	s.Empty(result.Unknown)
	s.Equal(s.now, result.CheckedAt)
}

func (s *ServiceSuite) TestReconcileCompleteRegistry() {
	s.addRequirement("W-2", true)
	s.source.Add(s.clientID, scan.Artifact{Filename: "w2.pdf", UploadedAt: s.now})

	result, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Equal(100, result.Completion.Percentage)
	s.Empty(result.Missing)

	_, completion, err := s.svc.List(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Require().NotNil(completion)
	s.Equal(100, completion.Percentage)
	s.Empty(completion.Missing)
}

func (s *ServiceSuite) TestReconcileDeclaredTypeWins() {
	s.addRequirement("1099-DIV", true)
	s.source.Add(s.clientID, scan.Artifact{
		Filename:     "scan001.pdf",
		DeclaredType: "1099-DIV",
		UploadedAt:   s.now,
	})

	result, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Equal(100, result.Completion.Percentage)
	s.Equal([]models.DocumentType{"1099-DIV"}, result.Received)
}

func (s *ServiceSuite) TestReconcileReportsUnknownArtifacts() {
	s.addRequirement("W-2", true)
	s.source.Add(s.clientID, scan.Artifact{Filename: "holiday_photo.jpg"})
	s.source.Add(s.clientID, scan.Artifact{Filename: "1099-b_broker.pdf"}) // classifies, but not in registry

	result, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	s.Equal(0, result.Completion.Percentage)
	s.ElementsMatch([]string{"holiday_photo.jpg", "1099-b_broker.pdf"}, result.Unknown)
}

func (s *ServiceSuite) TestReconcileStampsLastChecked() {
	s.addRequirement("W-2", true)
	_, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)

	r, err := s.requirements.Find(s.ctx, s.clientID, "W-2")
	s.Require().NoError(err)
	s.Require().NotNil(r.LastCheckedAt)
	s.Equal(s.now, *r.LastCheckedAt)
}

func (s *ServiceSuite) TestReconcileIsIdempotent() {
	s.addRequirement("W-2", true)
	s.source.Add(s.clientID, scan.Artifact{Filename: "w2.pdf"})

	first, err := s.svc.Reconcile(s.ctx, s.accountantID, s.clientID)
	s.Require().NoError(err)
	firstSatisfiedAt := s.satisfiedAt("W-2")

	later := requestcontext.WithTime(s.ctx, s.now.Add(48*time.Hour))
	second, err := s.svc.Reconcile(later, s.accountantID, s.clientID)
	s.Require().NoError(err)

	s.Equal(first.Completion.Percentage, second.Completion.Percentage)
	s.Equal(firstSatisfiedAt, s.satisfiedAt("W-2"), "first satisfaction timestamp must win")
}

func (s *ServiceSuite) satisfiedAt(docType models.DocumentType) time.Time {
	r, err := s.requirements.Find(s.ctx, s.clientID, docType)
	s.Require().NoError(err)
	s.Require().NotNil(r.SatisfiedAt)
	return *r.SatisfiedAt
}
