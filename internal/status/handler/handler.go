package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taxtrail/internal/escalation"
	"taxtrail/internal/status"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/httputil"
	"taxtrail/pkg/requestcontext"
)

// Service defines the aggregator operations the handler needs.
type Service interface {
	Report(ctx context.Context, accountantID id.AccountantID, filter escalation.Status) (*status.Report, error)
	ClientStatus(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*status.ClientStatus, error)
}

// Handler wires the status dashboard endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts status endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/status", h.HandleReport)
	r.Get("/clients/{clientID}/status", h.HandleClientStatus)
}

// HandleReport handles GET /v1/status?filter=at_risk.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	accountantID := requestcontext.AccountantID(ctx)
	if accountantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter := escalation.Status(r.URL.Query().Get("filter"))
	report, err := h.service.Report(ctx, accountantID, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "status report failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "status report generated",
		"request_id", requestcontext.RequestID(ctx),
		"clients", report.Summary.Total,
		"escalated", report.Summary.Escalated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleClientStatus handles GET /v1/clients/{clientID}/status.
func (h *Handler) HandleClientStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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
	row, err := h.service.ClientStatus(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}
