package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taxtrail/internal/document/models"
	docservice "taxtrail/internal/document/service"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/httputil"
	"taxtrail/pkg/requestcontext"
)

// Service defines the registry operations the handler needs.
type Service interface {
	Add(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType, source string, required bool) (*models.Requirement, error)
	Update(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType, source string, required bool) (*models.Requirement, error)
	Remove(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, docType models.DocumentType) error
	List(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Requirement, *models.Completion, error)
	ApplyStandard(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Requirement, error)
	Reconcile(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*docservice.CheckResult, error)
}

// Handler wires the document requirement endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts document endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clients/{clientID}/requirements", h.HandleAdd)
	r.Get("/clients/{clientID}/requirements", h.HandleList)
	r.Put("/clients/{clientID}/requirements", h.HandleUpdate)
	r.Delete("/clients/{clientID}/requirements", h.HandleRemove)
	r.Post("/clients/{clientID}/requirements/standard", h.HandleApplyStandard)
	r.Post("/clients/{clientID}/documents/check", h.HandleCheck)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequirementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	requirement, err := h.service.Add(ctx, accountantID, clientID, models.DocumentType(req.DocumentType), req.Source, req.Required)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requirement)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequirementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	requirement, err := h.service.Update(ctx, accountantID, clientID, models.DocumentType(req.DocumentType), req.Source, req.Required)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requirement)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	docType := strings.TrimSpace(r.URL.Query().Get("type"))
	if docType == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "type query parameter is required"))
		return
	}
	if err := h.service.Remove(ctx, accountantID, clientID, models.DocumentType(docType)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	requirements, completion, err := h.service.List(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"requirements": requirements,
		"completion":   completion,
	})
}

func (h *Handler) HandleApplyStandard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	added, err := h.service.ApplyStandard(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"added": added})
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.Reconcile(ctx, accountantID, clientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "document check failed",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", clientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func authedRequest(w http.ResponseWriter, r *http.Request) (id.AccountantID, id.ClientID, bool) {
	accountantID := requestcontext.AccountantID(r.Context())
	if accountantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountantID{}, id.ClientID{}, false
	}
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return id.AccountantID{}, id.ClientID{}, false
	}
	return accountantID, clientID, true
}
