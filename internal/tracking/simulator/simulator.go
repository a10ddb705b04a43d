// Package simulator generates synthetic bracelet movement for
// development in place of real GPS hardware.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"safeband/internal/geofence/models"
	"safeband/internal/geofence/service"
	"safeband/internal/platform/config"
	id "safeband/pkg/domain"
)

// metersPerDegreeLat is accurate enough for the small random-walk steps
// the simulator produces.
const metersPerDegreeLat = 111_320.0

// maxStepMeters bounds each random-walk step; a child walks, not
// teleports.
const maxStepMeters = 40.0

// Evaluator is the slice of the geofence service the simulator needs.
type Evaluator interface {
	EvaluateAll(ctx context.Context, profileID id.ProfileID, position models.Position) ([]*service.PositionResult, error)
}

// ZoneLister supplies the profile's zones so the walk can start from a
// meaningful point.
type ZoneLister interface {
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Zone, error)
}

// Simulator random-walks one profile and feeds each synthetic sample
// through geofence evaluation at a fixed interval.
type Simulator struct {
	cfg       config.SimulatorConfig
	zones     ZoneLister
	evaluator Evaluator
	logger    *slog.Logger
}

// New constructs a movement simulator.
func New(cfg config.SimulatorConfig, zones ZoneLister, evaluator Evaluator, logger *slog.Logger) *Simulator {
	return &Simulator{cfg: cfg, zones: zones, evaluator: evaluator, logger: logger}
}

// Run walks until the context is canceled. The walk starts at the
// center of the profile's first zone so early samples classify inside.
func (s *Simulator) Run(ctx context.Context) error {
	profileID, err := id.ParseProfileID(s.cfg.ProfileID)
	if err != nil {
		return err
	}

	position, err := s.startingPoint(ctx, profileID)
	if err != nil {
		return err
	}
	s.logger.Info("movement simulator started",
		"profile_id", profileID,
		"interval", s.cfg.Interval,
		"start_lat", position.Lat,
		"start_lng", position.Lng,
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			position = step(position)
			sample := models.Position{LatLng: position, Timestamp: now}
			if _, err := s.evaluator.EvaluateAll(ctx, profileID, sample); err != nil {
				s.logger.Error("simulated sample evaluation failed",
					"profile_id", profileID,
					"error", err,
				)
			}
		}
	}
}

func (s *Simulator) startingPoint(ctx context.Context, profileID id.ProfileID) (models.LatLng, error) {
	zones, err := s.zones.ListByProfile(ctx, profileID)
	if err != nil {
		return models.LatLng{}, err
	}
	if len(zones) > 0 {
		return zones[0].Center, nil
	}
	return models.LatLng{}, nil
}

// step moves the walk by a uniform random offset of at most
// maxStepMeters in each axis, clamped to valid coordinates.
func step(p models.LatLng) models.LatLng {
	dLat := (rand.Float64()*2 - 1) * maxStepMeters / metersPerDegreeLat
	dLng := (rand.Float64()*2 - 1) * maxStepMeters / metersPerDegreeLat

	next := models.LatLng{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
	if next.Lat > 90 {
		next.Lat = 90
	}
	if next.Lat < -90 {
		next.Lat = -90
	}
	if next.Lng > 180 {
		next.Lng = next.Lng - 360
	}
	if next.Lng < -180 {
		next.Lng = next.Lng + 360
	}
	return next
}
