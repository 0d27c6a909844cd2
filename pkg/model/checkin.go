package model

import "time"

type Checkin struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false;index"`
	RatingScore *float64
	Comment     *string
	BeerID      *uint64
	UserID      uint64
	VenueID     *uint64

	Beer     *Beer   `gorm:"-"`
	Venue    *Venue  `gorm:"-"`
	Badges   []Badge `gorm:"-"`
	UserName string  `gorm:"-"`
}

func (Checkin) TableName() string {
	return "checkin"
}
