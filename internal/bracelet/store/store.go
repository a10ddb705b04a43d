package store

import (
	"context"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
)

// IdentityStore persists bracelet identity records.
//
// Execute is the atomic read-check-write primitive: implementations
// hold the record's lock (mutex in memory, SELECT FOR UPDATE in
// postgres) across validate and mutate, so concurrent mutations of the
// same bracelet serialize and at most one wins. Validate failures abort
// without mutation. Records for different bracelets are independent.
type IdentityStore interface {
	// CreateIfAbsent inserts the record unless the ID already exists.
	// Returns false (and no error) when the ID was already present, so
	// provisioning re-runs are idempotent.
	CreateIfAbsent(ctx context.Context, identity *models.Identity) (bool, error)

	FindByID(ctx context.Context, braceletID id.BraceletID) (*models.Identity, error)

	// ListByBatch returns all records of a batch ordered by bracelet ID.
	ListByBatch(ctx context.Context, batchID id.BatchID) ([]*models.Identity, error)

	// Execute runs validate then mutate on the record under the record
	// lock and persists the result. Returns sentinel.ErrNotFound if the
	// record does not exist and the validate error verbatim if
	// validation fails.
	Execute(ctx context.Context, braceletID id.BraceletID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error)
}
