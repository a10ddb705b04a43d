package service

import (
	"context"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/requestcontext"
)

// StatusReport is a caregiver-initiated lifecycle transition request.
type StatusReport struct {
	BraceletID id.BraceletID
	NewStatus  models.Status
	ActorID    id.UserID
}

// ReportStatus applies a reported transition (lost, stolen, recovered,
// deactivated) after checking it against the transition table. Illegal
// requests fail with invalid_transition and leave the record untouched.
func (s *Service) ReportStatus(ctx context.Context, req StatusReport) (*models.Identity, error) {
	if req.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	now := requestcontext.Now(ctx)
	record, err := s.identities.Execute(ctx, req.BraceletID,
		func(b *models.Identity) error {
			// Only the linked caregiver may report on a linked bracelet.
			if b.LinkedUserID != nil && *b.LinkedUserID != req.ActorID {
				return dErrors.New(dErrors.CodeForbidden, "bracelet is linked to a different account")
			}
			return b.CanReport(req.NewStatus)
		},
		func(b *models.Identity) {
			b.ApplyReport(req.NewStatus, now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err, "bracelet not found")
	}

	s.metrics.RecordTransition(string(req.NewStatus))
	s.logger.InfoContext(ctx, "bracelet status reported",
		"request_id", requestcontext.RequestID(ctx),
		"bracelet_id", req.BraceletID,
		"status", string(req.NewStatus),
		"actor_id", req.ActorID,
	)
	return record, nil
}
