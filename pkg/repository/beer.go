package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"droscher.com/BeerLedger/pkg/model"
)

// insertOrIgnore inserts row unless its primary or unique key already exists.
// The first write of a row always wins.
func (r *Repository) insertOrIgnore(ctx context.Context, row any) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *Repository) UpsertBrewery(ctx context.Context, brewery model.Brewery) error {
	if err := r.insertOrIgnore(ctx, &brewery); err != nil {
		return fmt.Errorf("upserting brewery %d: %w", brewery.ID, err)
	}

	return nil
}

// UpsertBeer stores the beer and, when the payload carried one, its brewery,
// linking the two afterwards.
func (r *Repository) UpsertBeer(ctx context.Context, beer model.Beer) error {
	brewery := beer.Brewery

	beer.BreweryID = nil
	beer.Brewery = nil

	if err := r.insertOrIgnore(ctx, &beer); err != nil {
		return fmt.Errorf("upserting beer %d: %w", beer.ID, err)
	}

	if brewery == nil {
		return nil
	}

	if err := r.UpsertBrewery(ctx, *brewery); err != nil {
		return err
	}

	return r.BackfillBeerBrewery(ctx, beer.ID, brewery.ID)
}

func (r *Repository) BackfillBeerBrewery(ctx context.Context, beerID uint64, breweryID uint64) error {
	result := r.DB.WithContext(ctx).Model(&model.Beer{}).Where("id = ?", beerID).Update("brewery_id", breweryID)
	if result.Error != nil {
		return fmt.Errorf("linking beer %d to brewery %d: %w", beerID, breweryID, result.Error)
	}

	return nil
}
