package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"droscher.com/BeerLedger/pkg/model"
)

// UpsertVenue stores the venue unless one with the same name and location
// exists, and returns the id of the stored row either way.
func (r *Repository) UpsertVenue(ctx context.Context, venue model.Venue) (uint64, error) {
	venue.ID = 0

	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&venue)
	if result.Error != nil {
		return 0, fmt.Errorf("upserting venue %q: %w", venue.Name, result.Error)
	}

	if result.RowsAffected > 0 && venue.ID != 0 {
		return venue.ID, nil
	}

	stored := model.Venue{}

	result = r.DB.WithContext(ctx).
		Where("name = ? AND location_json = ?", venue.Name, venue.LocationJSON).
		First(&stored)
	if result.Error != nil {
		return 0, fmt.Errorf("finding venue %q: %w", venue.Name, result.Error)
	}

	return stored.ID, nil
}
