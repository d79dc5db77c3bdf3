package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taxtrail/internal/followup/models"
	fuservice "taxtrail/internal/followup/service"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/httputil"
	"taxtrail/pkg/requestcontext"
)

// Service defines the follow-up operations the handler needs.
type Service interface {
	SendReminder(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, channel models.Channel, customMessage string) (*fuservice.SendResult, error)
	MarkResponded(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID, seq int) error
	History(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) ([]*models.Event, error)
}

// SendReminderRequest is the body for POST /v1/clients/{clientID}/reminders.
type SendReminderRequest struct {
	Channel       string `json:"channel"`
	CustomMessage string `json:"custom_message"`
}

func (r *SendReminderRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Channel != "" && !models.Channel(r.Channel).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "channel must be email, sms or both")
	}
	return nil
}

// Handler wires the reminder endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts reminder endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clients/{clientID}/reminders", h.HandleSend)
	r.Get("/clients/{clientID}/reminders", h.HandleHistory)
	r.Post("/clients/{clientID}/reminders/{seq}/response", h.HandleMarkResponded)
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SendReminderRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.SendReminder(ctx, accountantID, clientID, models.Channel(req.Channel), req.CustomMessage)
	if err != nil {
		h.logger.ErrorContext(ctx, "reminder send failed",
			"request_id", requestID,
			"client_id", clientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	events, err := h.service.History(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) HandleMarkResponded(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, clientID, ok := authedRequest(w, r)
	if !ok {
		return
	}
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid sequence number"))
		return
	}
	if err := h.service.MarkResponded(ctx, accountantID, clientID, seq); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
