package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
)

// Safe zone bounds. Radii below 100 m drown in GPS noise; above 5 km a
// zone stops being a meaningful "safe zone".
const (
	MinRadiusMeters = 100.0
	MaxRadiusMeters = 5000.0
	MinAlertDelay   = 1 * time.Minute
	MaxAlertDelay   = 60 * time.Minute
)

// LatLng is a geographic point in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects non-finite values and out-of-range coordinates.
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return dErrors.New(dErrors.CodeValidation, "coordinates must be finite numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if p.Lng < -180 || p.Lng > 180 {
		return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

// Position is one tracked sample for a profile.
type Position struct {
	LatLng
	Timestamp time.Time `json:"timestamp"`
}

// Zone is a caregiver-defined circular safe zone.
//
// Invariants:
//   - RadiusMeters within [100, 5000]
//   - AlertDelay within [1m, 60m]
//   - Center coordinates valid per LatLng.Validate
//
// Zones are consumed read-only by the geofence evaluator; only the
// owning caregiver creates, edits, or disables them.
type Zone struct {
	ID           id.ZoneID     `json:"id"`
	ProfileID    id.ProfileID  `json:"profile_id"`
	Name         string        `json:"name"`
	Center       LatLng        `json:"center"`
	RadiusMeters float64       `json:"radius_meters"`
	Color        string        `json:"color"`
	Enabled      bool          `json:"enabled"`
	AlertDelay   time.Duration `json:"-"`
	SortOrder    int           `json:"sort_order"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewZone constructs a validated, enabled zone.
func NewZone(zoneID id.ZoneID, profileID id.ProfileID, name string, center LatLng, radiusMeters float64, color string, alertDelay time.Duration, sortOrder int, now time.Time) (*Zone, error) {
	zone := &Zone{
		ID:           zoneID,
		ProfileID:    profileID,
		Name:         strings.TrimSpace(name),
		Center:       center,
		RadiusMeters: radiusMeters,
		Color:        strings.TrimSpace(color),
		Enabled:      true,
		AlertDelay:   alertDelay,
		SortOrder:    sortOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := zone.validate(); err != nil {
		return nil, err
	}
	return zone, nil
}

// ApplyUpdate replaces the caregiver-editable fields after validation.
func (z *Zone) ApplyUpdate(name string, center LatLng, radiusMeters float64, color string, alertDelay time.Duration, enabled bool, now time.Time) error {
	updated := *z
	updated.Name = strings.TrimSpace(name)
	updated.Center = center
	updated.RadiusMeters = radiusMeters
	updated.Color = strings.TrimSpace(color)
	updated.AlertDelay = alertDelay
	updated.Enabled = enabled
	updated.UpdatedAt = now
	if err := updated.validate(); err != nil {
		return err
	}
	*z = updated
	return nil
}

func (z *Zone) validate() error {
	if z.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "zone name is required")
	}
	if err := z.Center.Validate(); err != nil {
		return err
	}
	if z.RadiusMeters < MinRadiusMeters || z.RadiusMeters > MaxRadiusMeters {
		return dErrors.New(dErrors.CodeValidation, "radius must be between 100 and 5000 meters")
	}
	if z.AlertDelay < MinAlertDelay || z.AlertDelay > MaxAlertDelay {
		return dErrors.New(dErrors.CodeValidation, "alert delay must be between 1 and 60 minutes")
	}
	return nil
}

// MarshalJSON emits the alert delay in minutes so zone responses use
// the same field the write API accepts.
func (z Zone) MarshalJSON() ([]byte, error) {
	type plain Zone
	return json.Marshal(struct {
		plain
		AlertDelayMinutes int `json:"alert_delay_minutes"`
	}{plain(z), int(z.AlertDelay / time.Minute)})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (z *Zone) UnmarshalJSON(data []byte) error {
	type plain Zone
	aux := struct {
		*plain
		AlertDelayMinutes int `json:"alert_delay_minutes"`
	}{plain: (*plain)(z)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	z.AlertDelay = time.Duration(aux.AlertDelayMinutes) * time.Minute
	return nil
}

// Clone returns a copy so stores never hand out aliased records.
func (z *Zone) Clone() *Zone {
	clone := *z
	return &clone
}
