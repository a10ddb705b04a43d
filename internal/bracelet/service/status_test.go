package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeband/internal/bracelet/models"
	"safeband/internal/bracelet/store"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/requestcontext"
)

type StatusSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
	now     time.Time
	userID  id.UserID
}

func TestStatusSuite(t *testing.T) {
	suite.Run(t, new(StatusSuite))
}

func (s *StatusSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.userID = id.UserID(uuid.New())
}

// seedActive inserts a bracelet activated by s.userID.
func (s *StatusSuite) seedActive(braceletID id.BraceletID) {
	identity, err := models.NewFactoryIdentity(braceletID, "BATCH-1",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", s.now)
	s.Require().NoError(err)
	identity.Status = models.StatusInactive
	identity.ApplyActivation(s.userID, id.ProfileID(uuid.New()), s.now)
	created, err := s.store.CreateIfAbsent(s.ctx, identity)
	s.Require().NoError(err)
	s.Require().True(created)
}

func (s *StatusSuite) report(braceletID id.BraceletID, next models.Status) (*models.Identity, error) {
	return s.service.ReportStatus(s.ctx, StatusReport{
		BraceletID: braceletID,
		NewStatus:  next,
		ActorID:    s.userID,
	})
}

func (s *StatusSuite) TestLostAndRecovered() {
	s.seedActive("BF-001")

	record, err := s.report("BF-001", models.StatusLost)
	s.Require().NoError(err)
	s.Equal(models.StatusLost, record.Status)
	s.NotNil(record.LinkedUserID, "losing a bracelet keeps the linkage")

	record, err = s.report("BF-001", models.StatusActive)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, record.Status)
}

func (s *StatusSuite) TestLostToStolenToRecovered() {
	s.seedActive("BF-001")

	_, err := s.report("BF-001", models.StatusLost)
	s.Require().NoError(err)
	record, err := s.report("BF-001", models.StatusStolen)
	s.Require().NoError(err)
	s.Equal(models.StatusStolen, record.Status)

	record, err = s.report("BF-001", models.StatusActive)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, record.Status)
}

func (s *StatusSuite) TestDeactivatedIsTerminal() {
	s.seedActive("BF-001")

	record, err := s.report("BF-001", models.StatusDeactivated)
	s.Require().NoError(err)
	s.Equal(models.StatusDeactivated, record.Status)
	s.Nil(record.LinkedUserID)
	s.Nil(record.LinkedProfileID)

	for _, next := range []models.Status{
		models.StatusActive, models.StatusLost, models.StatusStolen, models.StatusDeactivated,
	} {
		_, err := s.report("BF-001", next)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition),
			"DEACTIVATED must reject transition to %s", next)
	}
}

// TestCannotActivateByStatusReport: an unlocked bracelet waiting for
// its buyer must not be flippable to ACTIVE by anyone who guesses the
// engraved id. That would skip the token check and leave the record
// ACTIVE with no linkage.
func (s *StatusSuite) TestCannotActivateByStatusReport() {
	identity, err := models.NewFactoryIdentity("BF-001", "BATCH-1",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", s.now)
	s.Require().NoError(err)
	identity.Status = models.StatusInactive
	_, err = s.store.CreateIfAbsent(s.ctx, identity)
	s.Require().NoError(err)

	_, err = s.service.ReportStatus(s.ctx, StatusReport{
		BraceletID: "BF-001",
		NewStatus:  models.StatusActive,
		ActorID:    id.UserID(uuid.New()),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	record, err := s.store.FindByID(s.ctx, "BF-001")
	s.Require().NoError(err)
	s.Equal(models.StatusInactive, record.Status, "the bracelet stays activatable by its buyer")
	s.Nil(record.LinkedUserID)
}

func (s *StatusSuite) TestForeignActorForbidden() {
	s.seedActive("BF-001")

	_, err := s.service.ReportStatus(s.ctx, StatusReport{
		BraceletID: "BF-001",
		NewStatus:  models.StatusLost,
		ActorID:    id.UserID(uuid.New()),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// The rejected report must not have moved the record.
	record, err := s.store.FindByID(s.ctx, "BF-001")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, record.Status)
}

func (s *StatusSuite) TestUnauthenticatedActor() {
	_, err := s.service.ReportStatus(s.ctx, StatusReport{
		BraceletID: "BF-001",
		NewStatus:  models.StatusLost,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *StatusSuite) TestUnknownBracelet() {
	_, err := s.report("XX-999", models.StatusLost)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
