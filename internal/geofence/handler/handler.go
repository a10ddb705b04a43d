package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safeband/internal/alert"
	"safeband/internal/geofence/models"
	"safeband/internal/geofence/service"
	id "safeband/pkg/domain"
	"safeband/pkg/platform/httputil"
	"safeband/pkg/requestcontext"
)

// Service defines the geofence operations the handler depends on.
type Service interface {
	CreateZone(ctx context.Context, profileID id.ProfileID, params service.ZoneParams) (*models.Zone, error)
	ListZones(ctx context.Context, profileID id.ProfileID) ([]*models.Zone, error)
	UpdateZone(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID, params service.ZoneParams, enabled bool) (*models.Zone, error)
	DisableZone(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (*models.Zone, error)
	EvaluatePosition(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID, position models.Position) (*service.PositionResult, error)
	DismissAlert(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (alert.State, error)
	StopTracking(ctx context.Context, profileID id.ProfileID) (int, error)
}

// Handler wires zone and tracking endpoints to the geofence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a geofence handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the caregiver-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/profiles/{profileID}", func(r chi.Router) {
		r.Post("/zones", h.HandleCreateZone)
		r.Get("/zones", h.HandleListZones)
		r.Put("/zones/{zoneID}", h.HandleUpdateZone)
		r.Delete("/zones/{zoneID}", h.HandleDisableZone)
		r.Post("/zones/{zoneID}/position", h.HandlePosition)
		r.Post("/zones/{zoneID}/dismiss", h.HandleDismiss)
		r.Delete("/tracking", h.HandleStopTracking)
	})
}

func (h *Handler) HandleCreateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ZoneRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	zone, err := h.service.CreateZone(ctx, profileID, service.ZoneParams{
		Name:         req.Name,
		Center:       req.Center,
		RadiusMeters: req.RadiusMeters,
		Color:        req.Color,
		AlertDelay:   req.ParsedAlertDelay(),
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, zone)
}

func (h *Handler) HandleListZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	zones, err := h.service.ListZones(ctx, profileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

func (h *Handler) HandleUpdateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	profileID, zoneID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ZoneRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	zone, err := h.service.UpdateZone(ctx, profileID, zoneID, service.ZoneParams{
		Name:         req.Name,
		Center:       req.Center,
		RadiusMeters: req.RadiusMeters,
		Color:        req.Color,
		AlertDelay:   req.ParsedAlertDelay(),
		SortOrder:    req.SortOrder,
	}, req.ParsedEnabled())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) HandleDisableZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, zoneID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	zone, err := h.service.DisableZone(ctx, profileID, zoneID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, zone)
}

func (h *Handler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	profileID, zoneID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[PositionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.EvaluatePosition(ctx, profileID, zoneID, req.Position())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, zoneID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	state, err := h.service.DismissAlert(ctx, profileID, zoneID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"alert_state": string(state)})
}

func (h *Handler) HandleStopTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	removed, err := h.service.StopTracking(ctx, profileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"pairs_removed": removed})
}

func pathIDs(r *http.Request) (id.ProfileID, id.ZoneID, error) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		return id.ProfileID{}, id.ZoneID{}, err
	}
	zoneID, err := id.ParseZoneID(chi.URLParam(r, "zoneID"))
	if err != nil {
		return id.ProfileID{}, id.ZoneID{}, err
	}
	return profileID, zoneID, nil
}
