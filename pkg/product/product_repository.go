package product

import (
	"context"

	"splay/entities"

	"gorm.io/gorm"
)

type (
	ProductRepository interface {
		GetInStockByCategory(ctx context.Context, category string) ([]*entities.Product, error)
		GetProducts(ctx context.Context, category string, page, limit int) ([]*entities.Product, int64, error)
		GetProductByID(ctx context.Context, id string) (*entities.Product, error)
		CountProducts(ctx context.Context) (int64, error)
		CreateProducts(ctx context.Context, products []*entities.Product) error
		DeleteAllProducts(ctx context.Context) error
	}

	productRepository struct {
		db *gorm.DB
	}
)

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetInStockByCategory(ctx context.Context, category string) ([]*entities.Product, error) {
	var products []*entities.Product
	err := r.db.WithContext(ctx).
		Where("category = ? AND in_stock = ?", category, true).
		Order("external_id asc").
		Find(&products).Error
	return products, err
}

func (r *productRepository) GetProducts(ctx context.Context, category string, page, limit int) ([]*entities.Product, int64, error) {
	var products []*entities.Product
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Product{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("external_id asc").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, count, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Product{}).Count(&count).Error
	return count, err
}

func (r *productRepository) CreateProducts(ctx context.Context, products []*entities.Product) error {
	return r.db.WithContext(ctx).CreateInBatches(products, 20).Error
}

// DeleteAllProducts also removes the matches pointing at the products.
func (r *productRepository) DeleteAllProducts(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.ItemMatch{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Product{}).Error
	})
}
