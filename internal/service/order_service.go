package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// OrderService manages orders. Every lookup is scoped to the owning user, so
// another user's order reads as not found.
type OrderService interface {
	Create(ctx context.Context, userID uint, productIDs []uint) (*model.Order, error)
	List(ctx context.Context, userID uint) ([]model.Order, error)
	Get(ctx context.Context, userID, orderID uint) (*model.Order, error)
	Cancel(ctx context.Context, userID, orderID uint) error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

// NewOrderService builds an OrderService.
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, userRepo repository.UserRepository) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
	}
}

// Create places an order linking the given products. Duplicate ids collapse
// into one link; ids that match no product are rejected.
func (s *orderService) Create(ctx context.Context, userID uint, productIDs []uint) (*model.Order, error) {
	ids, err := normalizeProductIDs(productIDs)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	if missing := missingIDs(ids, products); len(missing) > 0 {
		return nil, apperrors.Validation("unknown product ids: " + joinIDs(missing))
	}

	order := &model.Order{UserID: userID}
	if err := s.orderRepo.Create(ctx, order, ids); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperrors.Validation("order references a product that no longer exists")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.Products = products
	metrics.RecordOrderCreated(len(products))
	return order, nil
}

func (s *orderService) List(ctx context.Context, userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, userID, orderID uint) error {
	if err := s.orderRepo.DeleteForUser(ctx, orderID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	metrics.RecordOrderCancelled()
	return nil
}

func normalizeProductIDs(productIDs []uint) ([]uint, error) {
	if len(productIDs) == 0 {
		return nil, apperrors.Validation("productIds must be a non-empty list of product ids")
	}
	seen := make(map[uint]struct{}, len(productIDs))
	ids := make([]uint, 0, len(productIDs))
	for _, id := range productIDs {
		if id == 0 {
			return nil, apperrors.Validation("productIds must contain positive ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func missingIDs(want []uint, found []model.Product) []uint {
	have := make(map[uint]struct{}, len(found))
	for _, p := range found {
		have[p.ID] = struct{}{}
	}
	var missing []uint
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
