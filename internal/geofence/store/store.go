package store

import (
	"context"

	"safeband/internal/geofence/models"
	id "safeband/pkg/domain"
)

// ZoneStore persists safe zones as an ordered sub-collection per
// profile. Listing order is sort_order then creation time, which is
// the order caregivers arranged their zones in.
type ZoneStore interface {
	Create(ctx context.Context, zone *models.Zone) error
	FindByID(ctx context.Context, profileID id.ProfileID, zoneID id.ZoneID) (*models.Zone, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Zone, error)
	Update(ctx context.Context, zone *models.Zone) error
}
