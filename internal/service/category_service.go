package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"storefront/internal/cache"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const (
	categoriesCacheKey = "categories:all"
	catalogCacheTTL    = 5 * time.Minute
)

// CategoryService manages product categories.
type CategoryService interface {
	Create(ctx context.Context, name string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, id uint, name string) (*model.Category, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	repo  repository.CategoryRepository
	cache *cache.Client
}

// NewCategoryService builds a CategoryService. cache may be nil.
func NewCategoryService(repo repository.CategoryRepository, cache *cache.Client) CategoryService {
	return &categoryService{repo: repo, cache: cache}
}

func (s *categoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name is required")
	}

	category := &model.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	var cached []model.Category
	if s.cache.GetJSON(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []model.Category{}
	}
	s.cache.SetJSON(ctx, categoriesCacheKey, categories, catalogCacheTTL)
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name is required")
	}

	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}

	category.Name = name
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category that no product references. The count and the
// delete share a transaction; the RESTRICT foreign key covers inserts that
// race past the count.
func (s *categoryService) Delete(ctx context.Context, id uint) error {
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.CategoryRepository) error {
		count, err := repo.CountProducts(ctx, id)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if count > 0 {
			return apperrors.ErrCategoryInUse
		}
		return repo.Delete(ctx, id)
	})
	switch {
	case err == nil:
		s.invalidate(ctx)
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrCategoryNotFound
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.ErrCategoryInUse
	case errors.Is(err, apperrors.ErrConflict):
		return err
	default:
		return fmt.Errorf("delete category: %w", err)
	}
}

func (s *categoryService) invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, categoriesCacheKey)
}
