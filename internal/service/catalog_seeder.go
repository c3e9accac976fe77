package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/cache"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// SeedProduct is one product entry of a seed catalog.
type SeedProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// SeedCategory is one category entry of a seed catalog together with its products.
type SeedCategory struct {
	Name     string        `json:"name"`
	Products []SeedProduct `json:"products"`
}

// SeedResult summarizes a seeding run.
type SeedResult struct {
	CategoriesCreated int
	ProductsCreated   int
	ProductsUpdated   int
	Skipped           int
}

// CatalogSeeder upserts a catalog: categories are matched by name, products
// by name within their category, so reruns update rather than duplicate.
type CatalogSeeder struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        *cache.Client
}

// NewCatalogSeeder creates a new catalog seeder. cache may be nil.
func NewCatalogSeeder(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository, cache *cache.Client) *CatalogSeeder {
	return &CatalogSeeder{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
	}
}

// Seed applies the catalog. Entries with a blank name, a negative price or a
// negative stock are skipped and counted.
func (s *CatalogSeeder) Seed(ctx context.Context, catalog []SeedCategory) (SeedResult, error) {
	var result SeedResult
	var touched []string

	for _, entry := range catalog {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			result.Skipped += 1 + len(entry.Products)
			continue
		}

		category, err := s.categoryRepo.FindByName(ctx, name)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, fmt.Errorf("error checking category %q: %w", name, err)
		}
		if category == nil {
			category = &model.Category{Name: name}
			if err := s.categoryRepo.Create(ctx, category); err != nil {
				return result, fmt.Errorf("error creating category %q: %w", name, err)
			}
			result.CategoriesCreated++
		}

		for _, item := range entry.Products {
			productName := strings.TrimSpace(item.Name)
			if productName == "" || item.Price.IsNegative() || item.Stock < 0 {
				result.Skipped++
				continue
			}

			existing, err := s.productRepo.FindByName(ctx, category.ID, productName)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return result, fmt.Errorf("error checking product %q: %w", productName, err)
			}

			if existing != nil {
				fields := map[string]interface{}{
					"description": item.Description,
					"price":       item.Price,
					"stock":       item.Stock,
				}
				if err := s.productRepo.Updates(ctx, existing.ID, fields); err != nil {
					return result, fmt.Errorf("error updating product %q: %w", productName, err)
				}
				touched = append(touched, productCacheKey(existing.ID))
				result.ProductsUpdated++
				continue
			}

			product := &model.Product{
				Name:        productName,
				Description: item.Description,
				Price:       item.Price,
				Stock:       item.Stock,
				CategoryID:  category.ID,
			}
			if err := s.productRepo.Create(ctx, product); err != nil {
				return result, fmt.Errorf("error creating product %q: %w", productName, err)
			}
			result.ProductsCreated++
		}
	}

	touched = append(touched, categoriesCacheKey)
	_ = s.cache.Delete(ctx, touched...)
	return result, nil
}
