package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
)

type ZoneSuite struct {
	suite.Suite
	now       time.Time
	profileID id.ProfileID
}

func TestZoneSuite(t *testing.T) {
	suite.Run(t, new(ZoneSuite))
}

func (s *ZoneSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.profileID = id.ProfileID(uuid.New())
}

func (s *ZoneSuite) newZone() *Zone {
	zone, err := NewZone(id.ZoneID(uuid.New()), s.profileID, "Home",
		LatLng{Lat: 12.3714, Lng: -1.5197}, 500, "#22c55e", 5*time.Minute, 0, s.now)
	s.Require().NoError(err)
	return zone
}

func (s *ZoneSuite) TestNewZone() {
	zone := s.newZone()
	s.True(zone.Enabled, "new zones start enabled")
	s.Equal("Home", zone.Name)
	s.Equal(s.now, zone.CreatedAt)
}

func (s *ZoneSuite) TestValidationBounds() {
	cases := []struct {
		name   string
		mutate func(z *Zone)
	}{
		{"empty name", func(z *Zone) { z.Name = " " }},
		{"radius below minimum", func(z *Zone) { z.RadiusMeters = 99 }},
		{"radius above maximum", func(z *Zone) { z.RadiusMeters = 5001 }},
		{"delay below minimum", func(z *Zone) { z.AlertDelay = 30 * time.Second }},
		{"delay above maximum", func(z *Zone) { z.AlertDelay = 61 * time.Minute }},
		{"latitude out of range", func(z *Zone) { z.Center.Lat = 95 }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			zone := s.newZone()
			tc.mutate(zone)
			err := zone.ApplyUpdate(zone.Name, zone.Center, zone.RadiusMeters,
				zone.Color, zone.AlertDelay, zone.Enabled, s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ZoneSuite) TestBoundaryValuesAccepted() {
	for _, radius := range []float64{MinRadiusMeters, MaxRadiusMeters} {
		zone := s.newZone()
		err := zone.ApplyUpdate(zone.Name, zone.Center, radius,
			zone.Color, zone.AlertDelay, zone.Enabled, s.now)
		s.NoError(err, "radius %v is within bounds", radius)
	}
	for _, delay := range []time.Duration{MinAlertDelay, MaxAlertDelay} {
		zone := s.newZone()
		err := zone.ApplyUpdate(zone.Name, zone.Center, zone.RadiusMeters,
			zone.Color, delay, zone.Enabled, s.now)
		s.NoError(err, "delay %v is within bounds", delay)
	}
}

func (s *ZoneSuite) TestApplyUpdateFailureLeavesZoneIntact() {
	zone := s.newZone()
	original := *zone

	err := zone.ApplyUpdate("Updated", zone.Center, 50, zone.Color, zone.AlertDelay, false, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(original, *zone, "a rejected update must not partially apply")
}

// TestWireFormatUsesMinutes: the delay crosses the wire in the same
// unit the write API accepts, never as a raw Duration.
func (s *ZoneSuite) TestWireFormatUsesMinutes() {
	zone := s.newZone()

	data, err := json.Marshal(zone)
	s.Require().NoError(err)
	s.Contains(string(data), `"alert_delay_minutes":5`)
	s.NotContains(string(data), `"alert_delay":`)

	var decoded Zone
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Equal(5*time.Minute, decoded.AlertDelay)
	s.Equal(zone.Name, decoded.Name)
}

func (s *ZoneSuite) TestApplyUpdate() {
	zone := s.newZone()
	later := s.now.Add(time.Hour)

	err := zone.ApplyUpdate("School", LatLng{Lat: 12.38, Lng: -1.51}, 800, "#3b82f6", 10*time.Minute, false, later)
	s.Require().NoError(err)
	s.Equal("School", zone.Name)
	s.Equal(800.0, zone.RadiusMeters)
	s.False(zone.Enabled)
	s.Equal(later, zone.UpdatedAt)
	s.Equal(s.now, zone.CreatedAt, "creation time never changes")
}
