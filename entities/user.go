package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"type:varchar(255);not null" json:"-"`
	Name             string     `gorm:"type:varchar(100);not null" json:"name"`
	SubscriptionTier string     `gorm:"type:varchar(20);not null;index" json:"subscription_tier"`
	ScansThisMonth   int        `gorm:"not null" json:"scans_this_month"`
	ScanPeriod       string     `gorm:"type:varchar(7)" json:"-"` // YYYY-MM the counter belongs to
	EmailVerified    bool       `json:"email_verified"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Scans        []*Scan       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Subscription *Subscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp
}

type Subscription struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Plan               string     `gorm:"type:varchar(20);not null" json:"plan"`
	Status             string     `gorm:"type:varchar(20);not null" json:"status"` // "active", "inactive"
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`

	Timestamp
}
