package user

import (
	"context"
	"errors"
	"time"

	"splay/domain"
	"splay/entities"

	"gorm.io/gorm"
)

type (
	UserRepository interface {
		CreateUser(ctx context.Context, user *entities.User) error
		GetUserByID(ctx context.Context, id string) (*entities.User, error)
		GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
		UpdateUser(ctx context.Context, user *entities.User) error
		UpdateLastLogin(ctx context.Context, id string, at time.Time) error
		ConsumeScanQuota(ctx context.Context, id string, period string, limit int) (bool, error)
		ReleaseScanQuota(ctx context.Context, id string, period string) error
	}

	userRepository struct {
		db *gorm.DB
	}
)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// ConsumeScanQuota counts one scan against the user's monthly allowance in a
// single statement. The counter restarts when period changes. Users with a
// live premium subscription are counted but never refused. It reports false
// when the free allowance (limit) is used up.
func (r *userRepository) ConsumeScanQuota(ctx context.Context, id string, period string, limit int) (bool, error) {
	unlimited, err := r.hasLivePremium(ctx, id)
	if err != nil {
		return false, err
	}

	q := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id)
	if !unlimited {
		q = q.Where("scan_period IS NULL OR scan_period <> ? OR scans_this_month < ?", period, limit)
	}
	res := q.Updates(map[string]any{
		"scans_this_month": gorm.Expr("CASE WHEN scan_period = ? THEN scans_this_month + 1 ELSE 1 END", period),
		"scan_period":      period,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) hasLivePremium(ctx context.Context, id string) (bool, error) {
	var sub entities.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", id, domain.SubscriptionLive).
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(time.Now()), nil
}

// ReleaseScanQuota gives back a scan consumed for a request that then failed.
func (r *userRepository) ReleaseScanQuota(ctx context.Context, id string, period string) error {
	return r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ? AND scan_period = ? AND scans_this_month > 0", id, period).
		Update("scans_this_month", gorm.Expr("scans_this_month - 1")).Error
}
