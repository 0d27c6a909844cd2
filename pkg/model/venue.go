package model

import "gorm.io/datatypes"

// Venue ids are local surrogates. Two venues are the same row when their name
// and canonical location blob match.
type Venue struct {
	ID           uint64         `gorm:"primaryKey"`
	Name         string         `gorm:"uniqueIndex:idx_venue_identity"`
	LocationJSON datatypes.JSON `gorm:"column:location_json;uniqueIndex:idx_venue_identity"`
	ContactJSON  datatypes.JSON `gorm:"column:contact_json"`
	IconURL      string         `gorm:"column:icon_url"`
}

func (Venue) TableName() string {
	return "venue"
}
