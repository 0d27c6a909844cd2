package repository

import (
	"context"

	"droscher.com/BeerLedger/pkg/model"
)

// Migrate creates missing tables, columns and indexes. It never drops or
// rewrites existing ones.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(
		&model.Brewery{}, &model.Beer{}, &model.Venue{}, &model.Checkin{}, &model.Badge{})
}
