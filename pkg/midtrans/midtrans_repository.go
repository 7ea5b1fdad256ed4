package midtrans

import (
	"context"
	"time"

	"splay/domain"
	"splay/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	MidtransRepository interface {
		CreateTransaction(ctx context.Context, tx *entities.Transaction) error
		GetTransactionByOrderID(ctx context.Context, orderID string) (*entities.Transaction, error)
		UpdateTransactionStatus(ctx context.Context, orderID string, status string, paymentType string) error
		ActivatePremium(ctx context.Context, orderID string, paymentType string, start, end time.Time) error
		GetSubscriptionByUserID(ctx context.Context, userID string) (*entities.Subscription, error)
		ExpireSubscription(ctx context.Context, userID string) error
	}

	midtransRepository struct {
		db *gorm.DB
	}
)

func NewMidtransRepository(db *gorm.DB) MidtransRepository {
	return &midtransRepository{db: db}
}

func (r *midtransRepository) CreateTransaction(ctx context.Context, tx *entities.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *midtransRepository) GetTransactionByOrderID(ctx context.Context, orderID string) (*entities.Transaction, error) {
	var tx entities.Transaction
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *midtransRepository) UpdateTransactionStatus(ctx context.Context, orderID string, status string, paymentType string) error {
	res := r.db.WithContext(ctx).Model(&entities.Transaction{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":       status,
			"payment_type": paymentType,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActivatePremium marks the order paid, upserts the user's subscription for
// [start, end) and moves the user to the premium tier in one transaction.
func (r *midtransRepository) ActivatePremium(ctx context.Context, orderID string, paymentType string, start, end time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var tx entities.Transaction
		if err := db.Where("order_id = ?", orderID).First(&tx).Error; err != nil {
			return err
		}

		if err := db.Model(&tx).Updates(map[string]interface{}{
			"status":       entities.TransactionPaid,
			"payment_type": paymentType,
		}).Error; err != nil {
			return err
		}

		sub := entities.Subscription{
			ID:                 uuid.New(),
			UserID:             tx.UserID,
			Plan:               tx.Plan,
			Status:             domain.SubscriptionLive,
			CurrentPeriodStart: &start,
			CurrentPeriodEnd:   &end,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "current_period_start", "current_period_end", "updated_at"}),
		}).Create(&sub).Error; err != nil {
			return err
		}

		return db.Model(&entities.User{}).
			Where("id = ?", tx.UserID).
			Update("subscription_tier", entities.TierPremium).Error
	})
}

func (r *midtransRepository) GetSubscriptionByUserID(ctx context.Context, userID string) (*entities.Subscription, error) {
	var sub entities.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *midtransRepository) ExpireSubscription(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Model(&entities.Subscription{}).
			Where("user_id = ?", userID).
			Update("status", domain.SubscriptionOff).Error; err != nil {
			return err
		}
		return db.Model(&entities.User{}).
			Where("id = ?", userID).
			Update("subscription_tier", entities.TierFree).Error
	})
}
