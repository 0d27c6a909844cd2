package model

import (
	"gorm.io/datatypes"
)

type Brewery struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name         string
	PageURL      string `gorm:"column:page_url"`
	Type         string
	CountryName  string
	ContactJSON  datatypes.JSON `gorm:"column:contact_json"`
	LocationJSON datatypes.JSON `gorm:"column:location_json"`
	Slug         string
}

func (Brewery) TableName() string {
	return "brewery"
}
