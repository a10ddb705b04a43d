package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	dErrors "safeband/pkg/domain-errors"
	"safeband/pkg/platform/sentinel"
)

// retryBackoff is the single backoff before the one storage retry. The
// retry policy lives here at the adapter boundary; domain validation
// failures are never retried.
const retryBackoff = 150 * time.Millisecond

// Postgres persists identity records in the bracelet_identities table.
// Execute uses SELECT ... FOR UPDATE so the read-check-write of one
// record is a single serialized unit; rows for different bracelets do
// not block each other.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is the DDL for the identity table, applied by the operator's
// migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS bracelet_identities (
    id                TEXT PRIMARY KEY,
    secret_token      TEXT NOT NULL,
    status            TEXT NOT NULL,
    batch_id          TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL,
    linked_user_id    UUID,
    linked_profile_id UUID
);
CREATE INDEX IF NOT EXISTS idx_bracelet_identities_batch ON bracelet_identities (batch_id, id);
`

func (s *Postgres) CreateIfAbsent(ctx context.Context, identity *models.Identity) (bool, error) {
	var created bool
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO bracelet_identities
				(id, secret_token, status, batch_id, created_at, updated_at, linked_user_id, linked_profile_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			identity.ID.String(), identity.SecretToken, string(identity.Status), identity.BatchID.String(),
			identity.CreatedAt, identity.UpdatedAt, nullableUser(identity.LinkedUserID), nullableProfile(identity.LinkedProfileID),
		)
		if err != nil {
			return fmt.Errorf("insert bracelet identity: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert bracelet identity: %w", err)
		}
		created = rows > 0
		return nil
	})
	return created, err
}

func (s *Postgres) FindByID(ctx context.Context, braceletID id.BraceletID) (*models.Identity, error) {
	var record *models.Identity
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, selectIdentity+` WHERE id = $1`, braceletID.String())
		found, err := scanIdentity(row)
		if err != nil {
			return err
		}
		record = found
		return nil
	})
	return record, err
}

func (s *Postgres) ListByBatch(ctx context.Context, batchID id.BatchID) ([]*models.Identity, error) {
	var records []*models.Identity
	err := s.withRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, selectIdentity+` WHERE batch_id = $1 ORDER BY id`, batchID.String())
		if err != nil {
			return fmt.Errorf("list batch: %w", err)
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			record, err := scanIdentity(rows)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Postgres) Execute(ctx context.Context, braceletID id.BraceletID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	var record *models.Identity
	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, selectIdentity+` WHERE id = $1 FOR UPDATE`, braceletID.String())
		working, err := scanIdentity(row)
		if err != nil {
			return err
		}
		if err := validate(working); err != nil {
			return err
		}
		mutate(working)

		_, err = tx.ExecContext(ctx, `
			UPDATE bracelet_identities
			SET status = $2, updated_at = $3, linked_user_id = $4, linked_profile_id = $5
			WHERE id = $1`,
			working.ID.String(), string(working.Status), working.UpdatedAt,
			nullableUser(working.LinkedUserID), nullableProfile(working.LinkedProfileID),
		)
		if err != nil {
			return fmt.Errorf("update bracelet identity: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		record = working
		return nil
	})
	return record, err
}

const selectIdentity = `
	SELECT id, secret_token, status, batch_id, created_at, updated_at, linked_user_id, linked_profile_id
	FROM bracelet_identities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		record    models.Identity
		rawID     string
		rawStatus string
		rawBatch  string
		userID    uuid.NullUUID
		profileID uuid.NullUUID
	)
	err := row.Scan(&rawID, &record.SecretToken, &rawStatus, &rawBatch,
		&record.CreatedAt, &record.UpdatedAt, &userID, &profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bracelet identity: %w", err)
	}
	record.ID = id.BraceletID(rawID)
	record.Status = models.Status(rawStatus)
	record.BatchID = id.BatchID(rawBatch)
	if userID.Valid {
		u := id.UserID(userID.UUID)
		record.LinkedUserID = &u
	}
	if profileID.Valid {
		p := id.ProfileID(profileID.UUID)
		record.LinkedProfileID = &p
	}
	return &record, nil
}

func nullableUser(userID *id.UserID) uuid.NullUUID {
	if userID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*userID), Valid: true}
}

func nullableProfile(profileID *id.ProfileID) uuid.NullUUID {
	if profileID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*profileID), Valid: true}
}

// withRetry retries a storage operation once after a short backoff,
// then surfaces the fault as sentinel.ErrUnavailable. Domain and
// not-found results pass through untouched so callers never conflate
// "token was wrong" with "could not reach storage".
func (s *Postgres) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !retryable(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}
	if err = op(); err == nil || !retryable(err) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
}

func retryable(err error) bool {
	if errors.Is(err, sentinel.ErrNotFound) {
		return false
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
