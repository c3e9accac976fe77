package model

import "time"

// Order is owned by a single user and links to products through OrderProduct.
// It has no status lifecycle: it exists from creation until it is cancelled.
type Order struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Products is filled by the repository on create and single-order reads.
	Products []Product `json:"products,omitempty" gorm:"-"`
}

// OrderProduct is the association row between an order and a product. No
// quantity or price snapshot is kept.
type OrderProduct struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	OrderID   uint `json:"orderId" gorm:"not null;uniqueIndex:idx_order_product"`
	ProductID uint `json:"productId" gorm:"not null;uniqueIndex:idx_order_product;index"`

	// Relations
	Order   *Order   `json:"-" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Product *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// All lists every persisted model in dependency order, for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderProduct{},
	}
}
