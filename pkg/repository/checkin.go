package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"droscher.com/BeerLedger/pkg/model"
)

type Counts struct {
	Breweries int64
	Beers     int64
	Venues    int64
	Checkins  int64
	Badges    int64
}

// UpsertCheckin stores a check-in with its venue, beer, brewery and badges in
// one transaction. Rows that already exist are left as they are; only the
// check-in's foreign keys are filled in.
func (r *Repository) UpsertCheckin(ctx context.Context, checkin model.Checkin) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &Repository{DB: tx, Logger: r.Logger}

		row := checkin
		row.BeerID = nil
		row.VenueID = nil
		row.Beer = nil
		row.Venue = nil
		row.Badges = nil

		if err := txRepo.insertOrIgnore(ctx, &row); err != nil {
			return fmt.Errorf("upserting checkin %d: %w", checkin.ID, err)
		}

		if checkin.Venue != nil {
			venueID, err := txRepo.UpsertVenue(ctx, *checkin.Venue)
			if err != nil {
				return err
			}

			if err = txRepo.BackfillCheckinVenue(ctx, checkin.ID, venueID); err != nil {
				return err
			}
		}

		if checkin.Beer != nil {
			if err := txRepo.UpsertBeer(ctx, *checkin.Beer); err != nil {
				return err
			}

			if err := txRepo.BackfillCheckinBeer(ctx, checkin.ID, checkin.Beer.ID); err != nil {
				return err
			}
		}

		for _, badge := range checkin.Badges {
			badge.CheckinID = checkin.ID
			if err := txRepo.UpsertBadge(ctx, badge); err != nil {
				return err
			}
		}

		r.Logger.Debug("Stored checkin", zap.Uint64("checkin", checkin.ID), zap.Int("badges", len(checkin.Badges)))

		return nil
	})
}

func (r *Repository) UpsertBadge(ctx context.Context, badge model.Badge) error {
	if err := r.insertOrIgnore(ctx, &badge); err != nil {
		return fmt.Errorf("upserting badge %d: %w", badge.ID, err)
	}

	return nil
}

func (r *Repository) BackfillCheckinBeer(ctx context.Context, checkinID uint64, beerID uint64) error {
	return r.backfillCheckin(ctx, checkinID, "beer_id", beerID)
}

func (r *Repository) BackfillCheckinVenue(ctx context.Context, checkinID uint64, venueID uint64) error {
	return r.backfillCheckin(ctx, checkinID, "venue_id", venueID)
}

func (r *Repository) backfillCheckin(ctx context.Context, checkinID uint64, column string, value uint64) error {
	result := r.DB.WithContext(ctx).Model(&model.Checkin{}).Where("id = ?", checkinID).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("setting %s of checkin %d: %w", column, checkinID, result.Error)
	}

	return nil
}

// LatestCheckinTimestamp returns the newest stored check-in time, or nil for
// an empty store.
func (r *Repository) LatestCheckinTimestamp(ctx context.Context) (*time.Time, error) {
	var latest []model.Checkin

	result := r.DB.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&latest)
	if result.Error != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", result.Error)
	}

	if len(latest) == 0 {
		return nil, nil //nolint:nilnil // an empty store has no checkpoint
	}

	checkpoint := latest[0].CreatedAt.UTC()

	return &checkpoint, nil
}

func (r *Repository) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}
	db := r.DB.WithContext(ctx)

	tables := []struct {
		row    any
		target *int64
	}{
		{&model.Brewery{}, &counts.Breweries},
		{&model.Beer{}, &counts.Beers},
		{&model.Venue{}, &counts.Venues},
		{&model.Checkin{}, &counts.Checkins},
		{&model.Badge{}, &counts.Badges},
	}

	for _, table := range tables {
		if err := db.Model(table.row).Count(table.target).Error; err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	return counts, nil
}
