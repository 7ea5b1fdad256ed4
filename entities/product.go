package entities

import (
	"github.com/google/uuid"
)

type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"external_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Brand        string    `gorm:"type:varchar(100);index" json:"brand"`
	Category     string    `gorm:"type:varchar(50);not null;index" json:"category"`
	Price        float64   `gorm:"not null" json:"price"`
	Currency     string    `gorm:"type:varchar(3);not null" json:"currency"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	ImageURL     string    `gorm:"type:text;not null" json:"image_url"`
	AffiliateURL string    `gorm:"type:text;not null" json:"affiliate_url"`
	RetailerURL  string    `gorm:"type:text;not null" json:"retailer_url"`
	RetailerName string    `gorm:"type:varchar(100);not null;index" json:"retailer_name"`
	Embedding    []float64 `gorm:"type:text;serializer:json" json:"-"`
	InStock      bool      `gorm:"not null;index" json:"in_stock"`

	Timestamp
}
