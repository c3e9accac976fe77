package repository

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/model"
)

// OrderRepository defines order persistence operations. Every read and
// delete is scoped by owner: an order that belongs to someone else is
// reported as gorm.ErrRecordNotFound, exactly like a missing one.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order, productIDs []uint) error
	ListByUser(ctx context.Context, userID uint) ([]model.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uint) (*model.Order, error)
	DeleteForUser(ctx context.Context, id, userID uint) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order row and one link row per product in a single
// transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order, productIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		links := make([]model.OrderProduct, 0, len(productIDs))
		for _, productID := range productIDs {
			links = append(links, model.OrderProduct{OrderID: order.ID, ProductID: productID})
		}
		if len(links) == 0 {
			return nil
		}
		return tx.CreateInBatches(links, 100).Error
	})
}

// ListByUser lists the user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByIDForUser loads an owned order with its linked products.
func (r *orderRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		return nil, err
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).
		Joins("JOIN order_products ON order_products.product_id = products.id").
		Where("order_products.order_id = ?", order.ID).
		Order("products.id").
		Find(&products).Error; err != nil {
		return nil, err
	}
	order.Products = products
	return &order, nil
}

// DeleteForUser deletes an owned order and its links.
func (r *orderRepository) DeleteForUser(ctx context.Context, id, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&model.Order{}).Select("id").Where("id = ? AND user_id = ?", id, userID)
		if err := tx.Where("order_id IN (?)", owned).Delete(&model.OrderProduct{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
