package handler

import (
	"strings"
	"time"

	"safeband/internal/geofence/models"
	dErrors "safeband/pkg/domain-errors"
)

// ZoneRequest is the HTTP request body for zone create and update.
type ZoneRequest struct {
	Name          string        `json:"name"`
	Center        models.LatLng `json:"center"`
	RadiusMeters  float64       `json:"radius_meters"`
	Color         string        `json:"color"`
	AlertDelayMin int           `json:"alert_delay_minutes"`
	SortOrder     int           `json:"sort_order"`
	Enabled       *bool         `json:"enabled,omitempty"`

	parsedAlertDelay time.Duration
}

// Validate validates and parses the request. Deep range checks (radius,
// delay bounds, coordinates) live in the zone model; this catches the
// obviously malformed shapes early.
func (r *ZoneRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.AlertDelayMin <= 0 {
		return dErrors.New(dErrors.CodeValidation, "alert_delay_minutes must be positive")
	}
	r.parsedAlertDelay = time.Duration(r.AlertDelayMin) * time.Minute
	return nil
}

// ParsedAlertDelay returns the delay as a duration.
func (r *ZoneRequest) ParsedAlertDelay() time.Duration { return r.parsedAlertDelay }

// ParsedEnabled defaults to true when the field is absent.
func (r *ZoneRequest) ParsedEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// PositionRequest is the HTTP request body for position evaluation.
type PositionRequest struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *PositionRequest) Validate() error {
	if err := (models.LatLng{Lat: r.Lat, Lng: r.Lng}).Validate(); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "timestamp is required")
	}
	return nil
}

// Position converts the request into the domain sample type.
func (r *PositionRequest) Position() models.Position {
	return models.Position{
		LatLng:    models.LatLng{Lat: r.Lat, Lng: r.Lng},
		Timestamp: r.Timestamp,
	}
}
