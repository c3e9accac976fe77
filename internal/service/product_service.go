package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/cache"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// ProductInput carries product fields. On create Name, Price, Stock and
// CategoryID are required; on update only non-nil fields are applied.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uint
}

// ProductService manages the product catalog.
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id uint) (*model.Product, error)
	Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uint) error
}

type productService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cache        *cache.Client
}

// NewProductService builds a ProductService. cache may be nil.
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository, cache *cache.Client) ProductService {
	return &productService{repo: repo, categoryRepo: categoryRepo, cache: cache}
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*model.Product, error) {
	var missing []string
	if trimmed(input.Name) == "" {
		missing = append(missing, "name")
	}
	if input.Price == nil {
		missing = append(missing, "price")
	}
	if input.Stock == nil {
		missing = append(missing, "stock")
	}
	if input.CategoryID == nil || *input.CategoryID == 0 {
		missing = append(missing, "categoryId")
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	if err := validateAmounts(input); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:       trimmed(input.Name),
		Price:      *input.Price,
		Stock:      *input.Stock,
		CategoryID: *input.CategoryID,
	}
	if input.Description != nil {
		product.Description = *input.Description
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, unknownCategory(*input.CategoryID)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id uint) (*model.Product, error) {
	var cached model.Product
	if s.cache.GetJSON(ctx, productCacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	s.cache.SetJSON(ctx, productCacheKey(id), product, catalogCacheTTL)
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	if input.Name != nil && trimmed(input.Name) == "" {
		return nil, apperrors.Validation("name must not be blank")
	}
	if err := validateAmounts(input); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		fields["name"] = trimmed(input.Name)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		fields["price"] = *input.Price
	}
	if input.Stock != nil {
		fields["stock"] = *input.Stock
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}

	if err := s.repo.Updates(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.ErrProductNotFound
		case errors.Is(err, gorm.ErrForeignKeyViolated) && input.CategoryID != nil:
			return nil, unknownCategory(*input.CategoryID)
		default:
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	_ = s.cache.Delete(ctx, productCacheKey(id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("reload product: %w", err)
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	_ = s.cache.Delete(ctx, productCacheKey(id))
	return nil
}

func (s *productService) ensureCategory(ctx context.Context, categoryID uint) error {
	if categoryID == 0 {
		return unknownCategory(categoryID)
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unknownCategory(categoryID)
		}
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

func validateAmounts(input ProductInput) error {
	if input.Price != nil && input.Price.IsNegative() {
		return apperrors.Validation("price must not be negative")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return apperrors.Validation("stock must not be negative")
	}
	return nil
}

func unknownCategory(id uint) error {
	return apperrors.Validation(fmt.Sprintf("category %d does not exist", id))
}
