package services

import (
	"context"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/validation"
)

type OrderService struct {
	orders    core.OrderStorage
	users     core.UserStorage
	products  core.ProductStorage
	validator *validation.Validator
}

// Ensure OrderService implements OrderProvider
var _ core.OrderProvider = (*OrderService)(nil)

func NewOrderService(db core.StorageAdapter, v *validation.Validator) *OrderService {
	return &OrderService{orders: db, users: db, products: db, validator: v}
}

// CreateOrder places an order on behalf of the caller.
func (s *OrderService) CreateOrder(ctx context.Context, buyer *core.Claims, input core.OrderInput) (*core.Order, error) {
	if buyer == nil {
		return nil, core.ErrForbidden
	}
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	o := &core.Order{
		UserID:          buyer.UserID,
		OrderItems:      input.OrderItems,
		ShippingAddress: input.ShippingAddress,
		ItemsPrice:      input.ItemsPrice,
		ShippingPrice:   input.ShippingPrice,
		TaxPrice:        input.TaxPrice,
		TotalPrice:      input.TotalPrice,
		Parent:          input.Parent,
		Category:        input.Category,
	}
	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return nil, storeErr("create order", err)
	}
	return o, nil
}

// ListOrders returns the orders of userID. An empty userID means the caller.
// Only admins may read someone else's orders.
func (s *OrderService) ListOrders(ctx context.Context, caller *core.Claims, userID string) ([]*core.Order, error) {
	if caller == nil {
		return nil, core.ErrForbidden
	}
	if userID == "" {
		userID = caller.UserID
	}
	if userID != caller.UserID && !caller.IsAdmin {
		return nil, core.ErrForbidden
	}

	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

func (s *OrderService) Summary(ctx context.Context) (*core.SalesSummary, error) {
	totals, err := s.orders.OrderTotals(ctx)
	if err != nil {
		return nil, storeErr("order totals", err)
	}
	numUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, storeErr("count users", err)
	}
	categories, err := s.products.CountByCategory(ctx)
	if err != nil {
		return nil, storeErr("count categories", err)
	}
	if categories == nil {
		categories = []core.CategoryCount{}
	}

	return &core.SalesSummary{
		Orders:            totals,
		NumUsers:          numUsers,
		ProductCategories: categories,
	}, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		return storeErr("delete order", err)
	}
	return nil
}
