package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	clientmodels "taxtrail/internal/client/models"
	clientstore "taxtrail/internal/client/store"
	docmodels "taxtrail/internal/document/models"
	docstore "taxtrail/internal/document/store"
	"taxtrail/internal/escalation"
	fustore "taxtrail/internal/followup/store"
	"taxtrail/internal/jwttoken"
	"taxtrail/internal/platform/middleware"
	"taxtrail/internal/status"
	id "taxtrail/pkg/domain"
)

type statusFixture struct {
	router       http.Handler
	tokens       *jwttoken.Service
	clients      *clientstore.InMemoryStore
	requirements *docstore.InMemoryStore
}

func newStatusFixture(t *testing.T) *statusFixture {
	t.Helper()
	clients := clientstore.NewInMemory()
	requirements := docstore.NewInMemory()
	ledger := fustore.NewInMemory()
	settings := escalation.NewInMemorySettings(escalation.DefaultConfig())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc := status.New(clients, requirements, ledger, settings, logger)
	tokens := jwttoken.NewService("test-signing-key", "taxtrail", "taxtrail-api")

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.RequireAuth(tokens, logger))
	h.Register(r)

	return &statusFixture{router: r, tokens: tokens, clients: clients, requirements: requirements}
}

func (f *statusFixture) seedClient(t *testing.T, accountantID id.AccountantID, name string, missingDocs []docmodels.DocumentType) id.ClientID {
	t.Helper()
	ctx := context.Background()
	client, err := clientmodels.NewClient(
		id.ClientID(uuid.New()), accountantID,
		name, "client@example.com", "", 2025,
		clientmodels.TypeIndividual, time.Now())
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	if err := f.clients.Create(ctx, client); err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}
	for _, docType := range missingDocs {
		req, err := docmodels.NewRequirement(client.ID, docType, "Employer", true, time.Now())
		if err != nil {
			t.Fatalf("failed to build requirement: %v", err)
		}
		if err := f.requirements.Put(ctx, req); err != nil {
			t.Fatalf("failed to seed requirement: %v", err)
		}
	}
	return client.ID
}

func (f *statusFixture) get(t *testing.T, accountantID id.AccountantID, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	token, err := f.tokens.GenerateAccessToken(uuid.UUID(accountantID), time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type reportResponse struct {
	Clients []struct {
		ClientID         uuid.UUID `json:"client_id"`
		Name             string    `json:"name"`
		Status           string    `json:"status"`
		CompletionPct    int       `json:"completion_pct"`
		MissingDocuments []string  `json:"missing_documents"`
	} `json:"clients"`
	Summary struct {
		Total      int `json:"total"`
		Complete   int `json:"complete"`
		Incomplete int `json:"incomplete"`
	} `json:"summary"`
}

func TestReportRequiresAuth(t *testing.T) {
	f := newStatusFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestReportCoversAccountantBook(t *testing.T) {
	f := newStatusFixture(t)
	accountantID := id.AccountantID(uuid.New())

	f.seedClient(t, accountantID, "Done Client", nil)
	f.seedClient(t, accountantID, "Waiting Client", []docmodels.DocumentType{"W-2", "1099-INT"})
	// Another accountant's client must never appear.
	f.seedClient(t, id.AccountantID(uuid.New()), "Foreign Client", nil)

	rec := f.get(t, accountantID, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Summary.Total != 2 {
		t.Fatalf("expected 2 clients in report, got %d", report.Summary.Total)
	}
	if report.Summary.Complete != 1 || report.Summary.Incomplete != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	// Incomplete work sorts ahead of finished clients.
	if report.Clients[0].Name != "Waiting Client" {
		t.Fatalf("expected waiting client first, got %q", report.Clients[0].Name)
	}
	if got := report.Clients[0].MissingDocuments; len(got) != 2 || got[0] != "W-2" {
		t.Fatalf("unexpected missing documents: %v", got)
	}
	if report.Clients[1].CompletionPct != 100 {
		t.Fatalf("expected empty registry to read complete, got %d%%", report.Clients[1].CompletionPct)
	}
}

func TestReportFilter(t *testing.T) {
	f := newStatusFixture(t)
	accountantID := id.AccountantID(uuid.New())
	f.seedClient(t, accountantID, "Done Client", nil)
	f.seedClient(t, accountantID, "Waiting Client", []docmodels.DocumentType{"W-2"})

	rec := f.get(t, accountantID, "/status?filter=complete")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report reportResponse
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Summary.Total != 1 || len(report.Clients) != 1 {
		t.Fatalf("expected filter to narrow to 1 client, got %d", report.Summary.Total)
	}
	if report.Clients[0].Name != "Done Client" {
		t.Fatalf("unexpected filtered client: %q", report.Clients[0].Name)
	}

	badRec := f.get(t, accountantID, "/status?filter=bogus")
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter, got %d", badRec.Code)
	}
}

func TestClientStatusEndpoint(t *testing.T) {
	f := newStatusFixture(t)
	accountantID := id.AccountantID(uuid.New())
	clientID := f.seedClient(t, accountantID, "Waiting Client", []docmodels.DocumentType{"W-2"})

	rec := f.get(t, accountantID, "/clients/"+clientID.String()+"/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var row struct {
		Status        string `json:"status"`
		CompletionPct int    `json:"completion_pct"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&row); err != nil {
		t.Fatalf("failed to decode row: %v", err)
	}
	if row.Status != "incomplete" || row.CompletionPct != 0 {
		t.Fatalf("unexpected row: %+v", row)
	}

	// Foreign accountants get 404, not 403, so client IDs never leak.
	foreignRec := f.get(t, id.AccountantID(uuid.New()), "/clients/"+clientID.String()+"/status")
	if foreignRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign client, got %d", foreignRec.Code)
	}
}
