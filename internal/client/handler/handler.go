package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taxtrail/internal/client/models"
	clientservice "taxtrail/internal/client/service"
	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
	"taxtrail/pkg/platform/httputil"
	"taxtrail/pkg/requestcontext"
)

// Service defines the client operations the handler needs.
type Service interface {
	Create(ctx context.Context, accountantID id.AccountantID, params clientservice.CreateParams) (*models.Client, error)
	Get(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*models.Client, error)
	List(ctx context.Context, accountantID id.AccountantID) ([]*models.Client, error)
	ClearEscalation(ctx context.Context, accountantID id.AccountantID, clientID id.ClientID) (*models.Client, error)
	Settings(ctx context.Context, accountantID id.AccountantID) (escalation.Config, error)
	UpdateSettings(ctx context.Context, accountantID id.AccountantID, cfg escalation.Config) error
}

// Handler wires client intake and lifecycle endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts client endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clients", h.HandleCreate)
	r.Get("/clients", h.HandleList)
	r.Get("/clients/{clientID}", h.HandleGet)
	r.Post("/clients/{clientID}/clear-escalation", h.HandleClearEscalation)
	r.Get("/settings", h.HandleGetSettings)
	r.Put("/settings", h.HandleUpdateSettings)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	client, err := h.service.Create(ctx, accountantID, clientservice.CreateParams{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		TaxYear:    req.TaxYear,
		ClientType: models.ClientType(req.ClientType),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "client creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, client)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	clients, err := h.service.List(ctx, accountantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	clientID, ok := pathClientID(w, r)
	if !ok {
		return
	}
	client, err := h.service.Get(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) HandleClearEscalation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	clientID, ok := pathClientID(w, r)
	if !ok {
		return
	}
	client, err := h.service.ClearEscalation(ctx, accountantID, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "escalation cleared",
		"request_id", requestcontext.RequestID(ctx),
		"client_id", clientID,
	)
	httputil.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	cfg, err := h.service.Settings(ctx, accountantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"reminder_threshold": cfg.Threshold,
		"grace_days":         cfg.GraceDays,
	})
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountantID, ok := authedAccountant(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateSettingsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cfg := escalation.Config{Threshold: req.ReminderThreshold, GraceDays: req.GraceDays}
	if err := h.service.UpdateSettings(ctx, accountantID, cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"reminder_threshold": cfg.Threshold,
		"grace_days":         cfg.GraceDays,
	})
}

func authedAccountant(w http.ResponseWriter, ctx context.Context) (id.AccountantID, bool) {
	accountantID := requestcontext.AccountantID(ctx)
	if accountantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountantID{}, false
	}
	return accountantID, true
}

func pathClientID(w http.ResponseWriter, r *http.Request) (id.ClientID, bool) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return id.ClientID{}, false
	}
	return clientID, true
}
