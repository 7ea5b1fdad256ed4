package entities

import (
	"github.com/google/uuid"
)

const (
	TransactionPending = "pending"
	TransactionPaid    = "paid"
	TransactionFailed  = "failed"
)

type Transaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	Plan        string    `gorm:"type:varchar(20);not null" json:"plan"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	PaymentType string    `gorm:"type:varchar(50)" json:"payment_type,omitempty"`
	SnapToken   string    `gorm:"type:varchar(255)" json:"snap_token,omitempty"`
	RedirectURL string    `gorm:"type:text" json:"redirect_url,omitempty"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp
}
