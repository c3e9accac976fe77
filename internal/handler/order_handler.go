package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/service"
)

// OrderHandler handles order endpoints. All routes act on the caller's orders.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest lists the products to order. "products" is accepted as
// an alias of "productIds".
type CreateOrderRequest struct {
	ProductIDs []uint `json:"productIds"`
	Products   []uint `json:"products" swaggerignore:"true"`
}

func (r CreateOrderRequest) ids() []uint {
	if len(r.ProductIDs) > 0 {
		return r.ProductIDs
	}
	return r.Products
}

// OrderDetail is an order with its products. The products key is always
// present, even once every linked product has been deleted.
type OrderDetail struct {
	*model.Order
	Products []model.Product `json:"products"`
}

func newOrderDetail(order *model.Order) OrderDetail {
	products := order.Products
	if products == nil {
		products = []model.Product{}
	}
	return OrderDetail{Order: order, Products: products}
}

// OrderResponse wraps an order with a confirmation message.
type OrderResponse struct {
	Message string      `json:"message"`
	Order   OrderDetail `json:"order"`
}

// CreateOrder godoc
// @Summary Place an order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOrderRequest true "Products to order"
// @Success 201 {object} OrderResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(errors.Validation("productIds must be a list of product ids"))
	}

	order, err := h.orderService.Create(c.Request().Context(), userID, req.ids())
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusCreated, OrderResponse{
		Message: "order created successfully",
		Order:   newOrderDetail(order),
	})
}

// ListOrders godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Order
// @Failure 401 {object} errors.ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	orders, err := h.orderService.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder godoc
// @Summary Get one of the caller's orders with its products
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} OrderDetail
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, errors.ErrOrderNotFound)
	if err != nil {
		return err
	}

	order, err := h.orderService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newOrderDetail(order))
}

// CancelOrder godoc
// @Summary Cancel one of the caller's orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /order/{id} [delete]
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, errors.ErrOrderNotFound)
	if err != nil {
		return err
	}

	if err := h.orderService.Cancel(c.Request().Context(), userID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "order cancelled"})
}
