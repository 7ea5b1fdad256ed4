package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScanStatusProcessing = "processing"
	ScanStatusDone       = "done"
	ScanStatusFailed     = "failed"
)

type Scan struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Status           string     `gorm:"type:varchar(20);not null;index" json:"status"`
	ImageURL         string     `gorm:"type:text;not null" json:"image_url"`
	ThumbnailURL     string     `gorm:"type:text" json:"thumbnail_url,omitempty"`
	ShareToken       *string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	ProcessingTimeMs *int64     `json:"processing_time_ms,omitempty"`
	ErrorMessage     string     `gorm:"type:text" json:"error,omitempty"`
	ItemCount        int        `gorm:"not null" json:"item_count"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	User  *User           `gorm:"foreignKey:UserID" json:"-"`
	Items []*DetectedItem `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"items"`
	Timestamp
}

type DetectedItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ScanID     uuid.UUID `gorm:"type:uuid;not null;index" json:"scan_id"`
	Position   int       `gorm:"not null" json:"-"`
	Category   string    `gorm:"type:varchar(50);not null;index" json:"category"`
	BBoxX      float64   `gorm:"not null" json:"bbox_x"`
	BBoxY      float64   `gorm:"not null" json:"bbox_y"`
	BBoxWidth  float64   `gorm:"not null" json:"bbox_width"`
	BBoxHeight float64   `gorm:"not null" json:"bbox_height"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	CropURL    string    `gorm:"type:text" json:"crop_url,omitempty"`
	Embedding  []float64 `gorm:"type:text;serializer:json" json:"-"`
	CreatedAt  time.Time `json:"created_at"`

	Matches []*ItemMatch `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"matches"`
}

type ItemMatch struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ItemID              uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	ProductID           uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	SimilarityScore     float64   `gorm:"not null" json:"similarity_score"`
	IsBudgetAlternative bool      `gorm:"not null" json:"is_budget_alternative"`
	Rank                int       `gorm:"not null" json:"rank"`
	CreatedAt           time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
