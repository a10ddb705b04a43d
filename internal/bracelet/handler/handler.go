package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safeband/internal/bracelet/models"
	"safeband/internal/bracelet/service"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/httputil"
	"safeband/pkg/requestcontext"
)

// Service defines the bracelet operations the handler depends on.
type Service interface {
	RequestActivation(ctx context.Context, req service.ActivationRequest) (*models.Identity, error)
	ReportStatus(ctx context.Context, req service.StatusReport) (*models.Identity, error)
	ProvisionBatch(ctx context.Context, req service.ProvisionRequest) (*service.ProvisionResult, error)
	UnlockBatch(ctx context.Context, batchID id.BatchID) (int, error)
}

// Handler wires bracelet endpoints to the bracelet service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a bracelet handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the caregiver-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bracelets/activate", h.HandleActivate)
	r.Post("/bracelets/{braceletID}/status", h.HandleStatus)
}

// RegisterAdmin mounts the operator endpoints (provision, unlock).
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/batches/{batchID}/provision", h.HandleProvision)
	r.Post("/batches/{batchID}/unlock", h.HandleUnlock)
}

// HandleActivate handles POST /bracelets/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ActivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.RequestActivation(ctx, service.ActivationRequest{
		BraceletID:  req.ParsedBraceletID(),
		SecretToken: req.SecretToken,
		UserID:      userID,
		ProfileID:   req.ParsedProfileID(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activation handled",
		"request_id", requestID,
		"bracelet_id", record.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleStatus handles POST /bracelets/{braceletID}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	braceletID, err := id.ParseBraceletID(chi.URLParam(r, "braceletID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.ReportStatus(ctx, service.StatusReport{
		BraceletID: braceletID,
		NewStatus:  req.ParsedStatus(),
		ActorID:    userID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleProvision handles POST /admin/batches/{batchID}/provision.
func (h *Handler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	batchID, err := id.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ProvisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.ProvisionBatch(ctx, service.ProvisionRequest{
		BatchID: batchID,
		Prefix:  req.Prefix,
		Size:    req.Size,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleUnlock handles POST /admin/batches/{batchID}/unlock.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	batchID, err := id.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	unlocked, err := h.service.UnlockBatch(ctx, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unlocked": unlocked})
}
