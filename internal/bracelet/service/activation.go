package service

import (
	"context"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/requestcontext"
)

// ActivationRequest carries the presented credentials from a bracelet
// scan plus the caregiver/profile to bind.
type ActivationRequest struct {
	BraceletID  id.BraceletID
	SecretToken string
	UserID      id.UserID
	ProfileID   id.ProfileID
}

// RequestActivation verifies the presented (id, secret) pair and binds
// the bracelet to the caregiver and profile as one atomic record
// mutation. Two concurrent calls against the same INACTIVE bracelet
// serialize in the store: exactly one succeeds, the loser observes
// already_linked.
func (s *Service) RequestActivation(ctx context.Context, req ActivationRequest) (*models.Identity, error) {
	if req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if req.ProfileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "profile id is required")
	}

	now := requestcontext.Now(ctx)

	if s.throttle != nil && !s.throttle.allow(req.BraceletID, now) {
		s.metrics.RecordThrottled()
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "too many failed activation attempts for this bracelet")
	}

	record, err := s.identities.Execute(ctx, req.BraceletID,
		func(b *models.Identity) error {
			if err := b.CanActivate(); err != nil {
				return err
			}
			if !b.VerifyToken(req.SecretToken) {
				return dErrors.New(dErrors.CodeTokenMismatch, "secret token does not match")
			}
			return nil
		},
		func(b *models.Identity) {
			b.ApplyActivation(req.UserID, req.ProfileID, now)
		},
	)
	if err != nil {
		err = translateStoreErr(err, "bracelet not found")
		code := dErrors.CodeOf(err)
		if s.throttle != nil && code == dErrors.CodeTokenMismatch {
			s.throttle.recordFailure(req.BraceletID, now)
		}
		s.metrics.RecordActivation(string(code))
		// Rejections log the raw User-Agent besides the normalized
		// device: forensics on token guessing needs the exact string.
		s.logger.WarnContext(ctx, "activation rejected",
			"request_id", requestcontext.RequestID(ctx),
			"bracelet_id", req.BraceletID,
			"result", string(code),
			"client_ip", requestcontext.ClientIP(ctx),
			"device", requestcontext.Device(ctx),
			"user_agent", requestcontext.UserAgent(ctx),
		)
		return nil, err
	}

	if s.throttle != nil {
		s.throttle.clear(req.BraceletID)
	}
	s.metrics.RecordActivation("success")
	s.logger.InfoContext(ctx, "bracelet activated",
		"request_id", requestcontext.RequestID(ctx),
		"bracelet_id", req.BraceletID,
		"user_id", req.UserID,
		"profile_id", req.ProfileID,
		"device", requestcontext.Device(ctx),
	)
	return record, nil
}
