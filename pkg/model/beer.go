package model

type Beer struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	BreweryID   *uint64
	Name        string
	LabelURL    string  `gorm:"column:label_url"`
	ABV         float64 `gorm:"column:abv"`
	IBU         int64   `gorm:"column:ibu"`
	Style       string
	Description string
	RatingScore float64
	RatingCount int64
	Slug        string

	// Brewery is the embedded brewery from the payload, persisted by the
	// repository before the brewery_id backfill.
	Brewery *Brewery `gorm:"-"`
}

func (Beer) TableName() string {
	return "beer"
}
