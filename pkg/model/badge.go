package model

import "time"

type Badge struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name        string
	Description string
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	CheckinID   uint64
	ImageURL    string `gorm:"column:image_url"`
}

func (Badge) TableName() string {
	return "badge"
}
