package product

import (
	"context"
	"errors"
	"fmt"

	"splay/domain"
	"splay/entities"
	"splay/pkg/vision"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type (
	ProductService interface {
		GetProducts(ctx context.Context, category string, page, limit int) ([]domain.ProductResponse, domain.Pagination, error)
		GetProduct(ctx context.Context, id string) (domain.ProductResponse, error)
		Seed(ctx context.Context, force bool) (int, error)
	}

	productService struct {
		productRepository ProductRepository
		logger            *zap.Logger
	}
)

func NewProductService(productRepository ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		productRepository: productRepository,
		logger:            logger,
	}
}

func ToProductResponse(p *entities.Product) domain.ProductResponse {
	return domain.ProductResponse{
		ID:           p.ID.String(),
		ExternalID:   p.ExternalID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		Price:        p.Price,
		Currency:     p.Currency,
		ImageURL:     p.ImageURL,
		AffiliateURL: p.AffiliateURL,
		RetailerURL:  p.RetailerURL,
		RetailerName: p.RetailerName,
		InStock:      p.InStock,
	}
}

func (s *productService) GetProducts(ctx context.Context, category string, page, limit int) ([]domain.ProductResponse, domain.Pagination, error) {
	if category != "" && !vision.IsCategory(category) {
		return nil, domain.Pagination{}, domain.ErrInvalidCategory
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	products, total, err := s.productRepository.GetProducts(ctx, category, page, limit)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	res := make([]domain.ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, ToProductResponse(p))
	}
	return res, domain.NewPagination(page, limit, total), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (domain.ProductResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ProductResponse{}, domain.ErrProductNotFound
	}

	p, err := s.productRepository.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ProductResponse{}, domain.ErrProductNotFound
		}
		return domain.ProductResponse{}, err
	}
	return ToProductResponse(p), nil
}

// Seed loads SampleCatalog. A non-empty catalog is left alone unless force
// is set, in which case it is replaced.
func (s *productService) Seed(ctx context.Context, force bool) (int, error) {
	existing, err := s.productRepository.CountProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	if existing > 0 {
		if !force {
			s.logger.Info("catalog already seeded", zap.Int64("products", existing))
			return 0, nil
		}
		if err := s.productRepository.DeleteAllProducts(ctx); err != nil {
			return 0, fmt.Errorf("deleting products: %w", err)
		}
		s.logger.Info("deleted existing products", zap.Int64("products", existing))
	}

	products := make([]*entities.Product, 0, len(SampleCatalog))
	for i, item := range SampleCatalog {
		products = append(products, item.ToProduct(i+1))
	}
	if err := s.productRepository.CreateProducts(ctx, products); err != nil {
		return 0, fmt.Errorf("creating products: %w", err)
	}

	s.logger.Info("seeded catalog", zap.Int("products", len(products)))
	return len(products), nil
}
