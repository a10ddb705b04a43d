package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/requestcontext"
)

// maxBatchSize keeps the numeric namespace within the 3-4 digit
// engraving format.
const maxBatchSize = 9999

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// ProvisionRequest describes one provisioning run for a batch.
type ProvisionRequest struct {
	BatchID id.BatchID
	Prefix  string
	Size    int
}

// ProvisionResult reports what a provisioning run actually did.
type ProvisionResult struct {
	BatchID id.BatchID      `json:"batch_id"`
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	IDs     []id.BraceletID `json:"ids"`
}

// ProvisionBatch creates Size factory-locked identity records with
// sequential ids PREFIX-001..PREFIX-NNNN and fresh 256-bit secrets.
//
// Re-running for an existing batch is idempotent: ids that already
// exist are skipped and their engraved secrets stay untouched. The
// freshly generated token for a skipped id is discarded, never written.
func (s *Service) ProvisionBatch(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if !prefixPattern.MatchString(req.Prefix) {
		return nil, dErrors.New(dErrors.CodeValidation, "prefix must be 2-5 uppercase letters")
	}
	if req.Size < 1 || req.Size > maxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("size must be between 1 and %d", maxBatchSize))
	}

	now := requestcontext.Now(ctx)
	result := &ProvisionResult{BatchID: req.BatchID}

	for n := 1; n <= req.Size; n++ {
		braceletID := id.BraceletID(fmt.Sprintf("%s-%03d", req.Prefix, n))

		token, err := newSecretToken()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret token")
		}
		identity, err := models.NewFactoryIdentity(braceletID, req.BatchID, token, now)
		if err != nil {
			return nil, err
		}

		created, err := s.identities.CreateIfAbsent(ctx, identity)
		if err != nil {
			return nil, translateStoreErr(err, "bracelet not found")
		}
		if created {
			result.Created++
			result.IDs = append(result.IDs, braceletID)
		} else {
			result.Skipped++
		}
	}

	s.metrics.RecordProvisioned(result.Created)
	s.logger.InfoContext(ctx, "batch provisioned",
		"batch_id", req.BatchID,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

// UnlockBatch releases every factory-locked bracelet in the batch for
// activation. Bracelets already past FACTORY_LOCKED are left alone.
func (s *Service) UnlockBatch(ctx context.Context, batchID id.BatchID) (int, error) {
	records, err := s.identities.ListByBatch(ctx, batchID)
	if err != nil {
		return 0, translateStoreErr(err, "batch not found")
	}
	if len(records) == 0 {
		return 0, dErrors.New(dErrors.CodeNotFound, "batch has no provisioned bracelets")
	}

	now := requestcontext.Now(ctx)
	unlocked := 0
	for _, record := range records {
		if record.Status != models.StatusFactoryLocked {
			continue
		}
		_, err := s.identities.Execute(ctx, record.ID,
			func(b *models.Identity) error { return b.CanUnlock() },
			func(b *models.Identity) { b.ApplyUnlock(now) },
		)
		if err != nil {
			// A concurrent unlock already moved this record on; skip it.
			if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				continue
			}
			return unlocked, translateStoreErr(err, "bracelet not found")
		}
		unlocked++
	}

	s.logger.InfoContext(ctx, "batch unlocked", "batch_id", batchID, "unlocked", unlocked)
	return unlocked, nil
}

// newSecretToken draws 256 bits from the crypto random source, hex
// encoded to the 64 characters engraved alongside the QR code.
func newSecretToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not read random source: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
