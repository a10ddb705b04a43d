// Package service implements safe zone management and position
// evaluation for tracked profiles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"safeband/internal/alert"
	"safeband/internal/geofence"
	geofencemetrics "safeband/internal/geofence/metrics"
	"safeband/internal/geofence/models"
	"safeband/internal/geofence/store"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/sentinel"
	"safeband/pkg/requestcontext"
)

// Service orchestrates zone CRUD, geofence evaluation, and the alert
// debounce engine.
type Service struct {
	zones   store.ZoneStore
	engine  *alert.Engine
	logger  *slog.Logger
	metrics *geofencemetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *geofencemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the geofence service.
func New(zones store.ZoneStore, engine *alert.Engine, opts ...Option) *Service {
	s := &Service{
		zones:  zones,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ZoneParams are the caregiver-editable zone fields.
type ZoneParams struct {
	Name         string
	Center       models.LatLng
	RadiusMeters float64
	Color        string
	AlertDelay   time.Duration
	SortOrder    int
}

// CreateZone adds a new enabled zone to the caregiver's profile.
func (s *Service) CreateZone(ctx context.Context, profileID id.ProfileID, params ZoneParams) (*models.Zone, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "profile id is required")
	}

	now := requestcontext.Now(ctx)
	zone, err := models.NewZone(id.ZoneID(uuid.New()), profileID, params.Name,
		params.Center, params.RadiusMeters, params.Color, params.AlertDelay, params.SortOrder, now)
	if err != nil {
		return nil, err
	}
	if err := s.zones.Create(ctx, zone); err != nil {
		return nil, s.translateStoreErr(err)
	}

	s.metrics.RecordZoneWrite("create")
	s.logger.Info("safe zone created",
		"profile_id", profileID,
		"zone_id", zone.ID,
		"radius_meters", zone.RadiusMeters,
	)
	return zone, nil
}

// ListZones returns the profile's zones in caregiver display order.
func (s *Service) ListZones(ctx context.Context, profileID id.ProfileID) ([]*models.Zone, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	zones, err := s.zones.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return zones, nil
}

// UpdateZone replaces the caregiver-editable fields of one zone.
// Disabling a zone clears its alert state so a later re-enable starts
// from SAFE.
func (s *Service) UpdateZone(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID, params ZoneParams, enabled bool) (*models.Zone, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	zone, err := s.zones.FindByID(ctx, profileID, zoneID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	if err := zone.ApplyUpdate(params.Name, params.Center, params.RadiusMeters,
		params.Color, params.AlertDelay, enabled, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.zones.Update(ctx, zone); err != nil {
		return nil, s.translateStoreErr(err)
	}

	if !zone.Enabled {
		s.engine.Reset(ctx, alert.Key{ProfileID: profileID, ZoneID: zoneID})
	}
	s.metrics.RecordZoneWrite("update")
	s.logger.Info("safe zone updated",
		"profile_id", profileID,
		"zone_id", zoneID,
		"enabled", zone.Enabled,
	)
	return zone, nil
}

// DisableZone turns off monitoring for a zone without deleting it.
// Zones are never physically removed; history and re-enablement stay
// cheap.
func (s *Service) DisableZone(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (*models.Zone, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	zone, err := s.zones.FindByID(ctx, profileID, zoneID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	zone.Enabled = false
	zone.UpdatedAt = requestcontext.Now(ctx)
	if err := s.zones.Update(ctx, zone); err != nil {
		return nil, s.translateStoreErr(err)
	}

	s.engine.Reset(ctx, alert.Key{ProfileID: profileID, ZoneID: zoneID})
	s.metrics.RecordZoneWrite("disable")
	s.logger.Info("safe zone disabled",
		"profile_id", profileID,
		"zone_id", zoneID,
	)
	return zone, nil
}

// PositionResult is the outcome of evaluating one sample against one
// zone.
type PositionResult struct {
	ZoneID         id.ZoneID   `json:"zone_id"`
	IsInside       bool        `json:"is_inside"`
	DistanceMeters float64     `json:"distance_meters"`
	AlertState     alert.State `json:"alert_state"`
}

// EvaluatePosition classifies a sample against one zone and advances
// that zone's debounce state machine. Disabled zones are classified but
// never advance alert state.
func (s *Service) EvaluatePosition(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID, position models.Position) (*PositionResult, error) {
	zone, err := s.zones.FindByID(ctx, profileID, zoneID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return s.evaluate(ctx, zone, position)
}

// EvaluateAll classifies a sample against every zone of the profile.
// Position sources (device feed, simulator) call this per sample.
func (s *Service) EvaluateAll(ctx context.Context, profileID id.ProfileID, position models.Position) ([]*PositionResult, error) {
	zones, err := s.zones.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}

	results := make([]*PositionResult, 0, len(zones))
	for _, zone := range zones {
		result, err := s.evaluate(ctx, zone, position)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) evaluate(ctx context.Context, zone *models.Zone, position models.Position) (*PositionResult, error) {
	evaluation, err := geofence.Evaluate(zone.Center, zone.RadiusMeters, position.LatLng)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEvaluation(evaluation.IsInside)

	key := alert.Key{ProfileID: zone.ProfileID, ZoneID: zone.ID}
	state := s.engine.StateOf(key)
	if zone.Enabled {
		state = s.engine.Observe(ctx, key, zone.AlertDelay, evaluation.IsInside, position)
	}
	return &PositionResult{
		ZoneID:         zone.ID,
		IsInside:       evaluation.IsInside,
		DistanceMeters: evaluation.DistanceMeters,
		AlertState:     state,
	}, nil
}

// DismissAlert clears an active alert at the caregiver's request.
func (s *Service) DismissAlert(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (alert.State, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if _, err := s.zones.FindByID(ctx, profileID, zoneID); err != nil {
		return "", s.translateStoreErr(err)
	}

	state := s.engine.Dismiss(ctx, alert.Key{ProfileID: profileID, ZoneID: zoneID})
	s.logger.Info("alert dismissed",
		"profile_id", profileID,
		"zone_id", zoneID,
		"user_id", requestcontext.UserID(ctx),
	)
	return state, nil
}

// StopTracking tears down all debounce state for a profile, canceling
// outstanding timers.
func (s *Service) StopTracking(ctx context.Context, profileID id.ProfileID) (int, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	removed := s.engine.StopTracking(ctx, profileID)
	s.logger.Info("tracking stopped",
		"profile_id", profileID,
		"pairs_removed", removed,
	)
	return removed, nil
}

func (s *Service) translateStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "safe zone not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "safe zone already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage is unavailable")
	default:
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "zone store failed")
	}
}
