package scan

import (
	"context"
	"time"

	"splay/entities"

	"gorm.io/gorm"
)

type (
	ScanRepository interface {
		CreateScan(ctx context.Context, scan *entities.Scan) error
		GetScanByID(ctx context.Context, id string) (*entities.Scan, error)
		GetScanByShareToken(ctx context.Context, token string) (*entities.Scan, error)
		GetScans(ctx context.Context, userID string, skip, limit int) ([]*entities.Scan, int64, error)
		CompleteScan(ctx context.Context, scan *entities.Scan, items []*entities.DetectedItem) error
		FailScan(ctx context.Context, id string, message string, processingTimeMs int64, at time.Time) error
		SetShareToken(ctx context.Context, id string, token string) error
		DeleteScan(ctx context.Context, id string) error
		FailProcessingScans(ctx context.Context, message string, at time.Time) (int64, error)
	}

	scanRepository struct {
		db *gorm.DB
	}
)

func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) CreateScan(ctx context.Context, scan *entities.Scan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *scanRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("Items.Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank asc")
		}).
		Preload("Items.Matches.Product")
}

func (r *scanRepository) GetScanByID(ctx context.Context, id string) (*entities.Scan, error) {
	var scan entities.Scan
	if err := r.preloaded(ctx).Where("id = ?", id).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *scanRepository) GetScanByShareToken(ctx context.Context, token string) (*entities.Scan, error) {
	var scan entities.Scan
	if err := r.preloaded(ctx).Where("share_token = ?", token).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *scanRepository) GetScans(ctx context.Context, userID string, skip, limit int) ([]*entities.Scan, int64, error) {
	var scans []*entities.Scan
	var count int64

	query := r.db.WithContext(ctx).Model(&entities.Scan{}).Where("user_id = ?", userID)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(skip).Limit(limit).Order("created_at desc").Find(&scans).Error; err != nil {
		return nil, 0, err
	}

	return scans, count, nil
}

// CompleteScan stores the detected items with their matches and marks the
// scan done in one transaction. Only a scan still processing is completed.
func (r *scanRepository) CompleteScan(ctx context.Context, scan *entities.Scan, items []*entities.DetectedItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Scan{}).
			Where("id = ? AND status = ?", scan.ID, entities.ScanStatusProcessing).
			Updates(map[string]any{
				"status":             entities.ScanStatusDone,
				"item_count":         scan.ItemCount,
				"processing_time_ms": scan.ProcessingTimeMs,
				"completed_at":       scan.CompletedAt,
				"error_message":      "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if len(items) == 0 {
			return nil
		}
		// matches are created through the Matches association
		return tx.Create(items).Error
	})
}

func (r *scanRepository) FailScan(ctx context.Context, id string, message string, processingTimeMs int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ? AND status = ?", id, entities.ScanStatusProcessing).
		Updates(map[string]any{
			"status":             entities.ScanStatusFailed,
			"error_message":      message,
			"processing_time_ms": processingTimeMs,
			"completed_at":       at,
		}).Error
}

func (r *scanRepository) SetShareToken(ctx context.Context, id string, token string) error {
	return r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("id = ?", id).
		Update("share_token", token).Error
}

// DeleteScan removes the scan with its items and their matches.
func (r *scanRepository) DeleteScan(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := tx.Model(&entities.DetectedItem{}).Select("id").Where("scan_id = ?", id)
		if err := tx.Where("item_id IN (?)", items).Delete(&entities.ItemMatch{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_id = ?", id).Delete(&entities.DetectedItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entities.Scan{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FailProcessingScans marks every scan still processing as failed. Run at
// startup, before workers start, to settle jobs lost with the last process.
func (r *scanRepository) FailProcessingScans(ctx context.Context, message string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entities.Scan{}).
		Where("status = ?", entities.ScanStatusProcessing).
		Updates(map[string]any{
			"status":        entities.ScanStatusFailed,
			"error_message": message,
			"completed_at":  at,
		})
	return res.RowsAffected, res.Error
}
