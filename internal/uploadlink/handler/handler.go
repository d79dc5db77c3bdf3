package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"taxtrail/internal/uploadlink"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/httputil"
	"taxtrail/pkg/requestcontext"
)

// Service defines the upload-link operations the handler needs.
type Service interface {
	Issue(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, ttl time.Duration) (*uploadlink.Link, error)
	Redeem(ctx context.Context, token, secret string) (id.ClientID, error)
	Revoke(ctx context.Context, accountantID id.AccountantID, linkID uuid.UUID) error
}

// IssueRequest is the body for POST /v1/clients/{clientID}/upload-links.
type IssueRequest struct {
	TTLHours int `json:"ttl_hours"`
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TTLHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_hours cannot be negative")
	}
	return nil
}

// RedeemRequest is the body for POST /v1/upload-links/redeem. This endpoint
// is unauthenticated: the link token plus share code is the credential.
type RedeemRequest struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

func (r *RedeemRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Token == "" || r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "token and secret are required")
	}
	return nil
}

// Handler wires the upload-link endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated upload-link endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clients/{clientID}/upload-links", h.HandleIssue)
	r.Delete("/upload-links/{linkID}", h.HandleRevoke)
}

// RegisterPublic mounts the unauthenticated redeem endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/upload-links/redeem", h.HandleRedeem)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID := requestcontext.AccountantID(ctx)
	if accountantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	link, err := h.service.Issue(ctx, accountantID, clientID, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RedeemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	clientID, err := h.service.Redeem(ctx, req.Token, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "upload link redemption failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"client_id": clientID.String()})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID := requestcontext.AccountantID(ctx)
	if accountantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	linkID, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid link id"))
		return
	}
	if err := h.service.Revoke(ctx, accountantID, linkID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
