package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"safeband/internal/geofence/models"
	id "safeband/pkg/domain"
	"safeband/pkg/platform/sentinel"
)

const retryBackoff = 150 * time.Millisecond

// Postgres persists safe zones in the safe_zones table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is the DDL for the zone table, applied by the operator's
// migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS safe_zones (
    id            UUID PRIMARY KEY,
    profile_id    UUID NOT NULL,
    name          TEXT NOT NULL,
    center_lat    DOUBLE PRECISION NOT NULL,
    center_lng    DOUBLE PRECISION NOT NULL,
    radius_meters DOUBLE PRECISION NOT NULL,
    color         TEXT NOT NULL,
    enabled       BOOLEAN NOT NULL,
    alert_delay_s BIGINT NOT NULL,
    sort_order    INT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_safe_zones_profile ON safe_zones (profile_id, sort_order, created_at);
`

func (s *Postgres) Create(ctx context.Context, zone *models.Zone) error {
	return s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO safe_zones
				(id, profile_id, name, center_lat, center_lng, radius_meters, color, enabled, alert_delay_s, sort_order, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			uuid.UUID(zone.ID), uuid.UUID(zone.ProfileID), zone.Name,
			zone.Center.Lat, zone.Center.Lng, zone.RadiusMeters, zone.Color,
			zone.Enabled, int64(zone.AlertDelay/time.Second), zone.SortOrder,
			zone.CreatedAt, zone.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert zone: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert zone: %w", err)
		}
		if rows == 0 {
			return sentinel.ErrConflict
		}
		return nil
	})
}

func (s *Postgres) FindByID(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (*models.Zone, error) {
	var zone *models.Zone
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, selectZone+` WHERE id = $1 AND profile_id = $2`,
			uuid.UUID(zoneID), uuid.UUID(profileID))
		found, err := scanZone(row)
		if err != nil {
			return err
		}
		zone = found
		return nil
	})
	return zone, err
}

func (s *Postgres) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Zone, error) {
	var zones []*models.Zone
	err := s.withRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, selectZone+` WHERE profile_id = $1 ORDER BY sort_order, created_at`,
			uuid.UUID(profileID))
		if err != nil {
			return fmt.Errorf("list zones: %w", err)
		}
		defer rows.Close()

		zones = zones[:0]
		for rows.Next() {
			zone, err := scanZone(rows)
			if err != nil {
				return err
			}
			zones = append(zones, zone)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

func (s *Postgres) Update(ctx context.Context, zone *models.Zone) error {
	return s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE safe_zones
			SET name = $3, center_lat = $4, center_lng = $5, radius_meters = $6,
			    color = $7, enabled = $8, alert_delay_s = $9, sort_order = $10, updated_at = $11
			WHERE id = $1 AND profile_id = $2`,
			uuid.UUID(zone.ID), uuid.UUID(zone.ProfileID), zone.Name,
			zone.Center.Lat, zone.Center.Lng, zone.RadiusMeters, zone.Color,
			zone.Enabled, int64(zone.AlertDelay/time.Second), zone.SortOrder, zone.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update zone: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update zone: %w", err)
		}
		if rows == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

const selectZone = `
	SELECT id, profile_id, name, center_lat, center_lng, radius_meters, color, enabled, alert_delay_s, sort_order, created_at, updated_at
	FROM safe_zones`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (*models.Zone, error) {
	var (
		zone       models.Zone
		zoneID     uuid.UUID
		profileID  uuid.UUID
		alertDelay int64
	)
	err := row.Scan(&zoneID, &profileID, &zone.Name,
		&zone.Center.Lat, &zone.Center.Lng, &zone.RadiusMeters, &zone.Color,
		&zone.Enabled, &alertDelay, &zone.SortOrder, &zone.CreatedAt, &zone.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan zone: %w", err)
	}
	zone.ID = id.ZoneID(zoneID)
	zone.ProfileID = id.ProfileID(profileID)
	zone.AlertDelay = time.Duration(alertDelay) * time.Second
	return &zone, nil
}

// withRetry mirrors the identity store's retry policy: one retry after
// a short backoff, then sentinel.ErrUnavailable.
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
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
