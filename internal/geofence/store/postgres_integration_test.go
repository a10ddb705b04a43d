//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeband/internal/geofence/models"
	"safeband/internal/geofence/store"
	id "safeband/pkg/domain"
	"safeband/pkg/platform/sentinel"
	"safeband/pkg/testutil/containers"
)

type PostgresZoneSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.Postgres
	profileID id.ProfileID
	now       time.Time
}

func TestPostgresZoneSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresZoneSuite))
}

func (s *PostgresZoneSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresZoneSuite) SetupTest() {
	s.profileID = id.ProfileID(uuid.New())
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "safe_zones"))
}

func (s *PostgresZoneSuite) newZone(name string, sortOrder int, createdAt time.Time) *models.Zone {
	zone, err := models.NewZone(id.ZoneID(uuid.New()), s.profileID, name,
		models.LatLng{Lat: 12.3714, Lng: -1.5197}, 500, "#22c55e", 5*time.Minute, sortOrder, createdAt)
	s.Require().NoError(err)
	return zone
}

func (s *PostgresZoneSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	zone := s.newZone("Home", 0, s.now)

	s.Require().NoError(s.store.Create(ctx, zone))
	s.ErrorIs(s.store.Create(ctx, zone), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, s.profileID, zone.ID)
	s.Require().NoError(err)
	s.Equal(zone.Name, found.Name)
	s.Equal(zone.RadiusMeters, found.RadiusMeters)
	s.Equal(zone.AlertDelay, found.AlertDelay)
	s.True(found.Enabled)

	_, err = s.store.FindByID(ctx, s.profileID, id.ZoneID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresZoneSuite) TestListByProfileOrdered() {
	ctx := context.Background()
	park := s.newZone("Park", 2, s.now)
	home := s.newZone("Home", 0, s.now.Add(time.Second))
	school := s.newZone("School", 0, s.now.Add(2*time.Second))

	for _, zone := range []*models.Zone{park, school, home} {
		s.Require().NoError(s.store.Create(ctx, zone))
	}

	zones, err := s.store.ListByProfile(ctx, s.profileID)
	s.Require().NoError(err)
	s.Require().Len(zones, 3)
	s.Equal("Home", zones[0].Name)
	s.Equal("School", zones[1].Name)
	s.Equal("Park", zones[2].Name)
}

func (s *PostgresZoneSuite) TestUpdate() {
	ctx := context.Background()
	zone := s.newZone("Home", 0, s.now)
	s.Require().NoError(s.store.Create(ctx, zone))

	s.Require().NoError(zone.ApplyUpdate("Home Base", zone.Center, 800,
		"#3b82f6", 10*time.Minute, false, s.now.Add(time.Hour)))
	s.Require().NoError(s.store.Update(ctx, zone))

	found, err := s.store.FindByID(ctx, s.profileID, zone.ID)
	s.Require().NoError(err)
	s.Equal("Home Base", found.Name)
	s.Equal(800.0, found.RadiusMeters)
	s.Equal(10*time.Minute, found.AlertDelay)
	s.False(found.Enabled)

	ghost := s.newZone("Ghost", 0, s.now)
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
}
