package pgx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/storefront/core"
)

func (a *Adapter) CreateOrder(ctx context.Context, order *core.Order) error {
	userID, err := parseID(order.UserID)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	q := `INSERT INTO orders (id, user_id, order_items, shipping_address, items_price, shipping_price, tax_price,
		total_price, parent, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	_, err = a.pool.Exec(ctx, q, id, userID, order.OrderItems, order.ShippingAddress, order.ItemsPrice,
		order.ShippingPrice, order.TaxPrice, order.TotalPrice, order.Parent, order.Category, now)
	if err != nil {
		return err
	}

	order.ID = id
	order.CreatedAt, order.UpdatedAt = now, now
	return nil
}

func (a *Adapter) ListOrdersByUser(ctx context.Context, userID string) ([]*core.Order, error) {
	userID, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	q := `SELECT id::text, user_id::text, order_items, shipping_address, items_price, shipping_price, tax_price,
		total_price, parent, category, created_at, updated_at FROM orders WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := a.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.Order, error) {
		o := &core.Order{}
		err := row.Scan(&o.ID, &o.UserID, &o.OrderItems, &o.ShippingAddress, &o.ItemsPrice, &o.ShippingPrice,
			&o.TaxPrice, &o.TotalPrice, &o.Parent, &o.Category, &o.CreatedAt, &o.UpdatedAt)
		return o, err
	})
}

func (a *Adapter) OrderTotals(ctx context.Context) (core.OrderTotals, error) {
	var totals core.OrderTotals
	err := a.pool.QueryRow(ctx, `SELECT count(*), coalesce(sum(total_price), 0) FROM orders`).
		Scan(&totals.NumOrders, &totals.TotalSales)
	return totals, err
}

func (a *Adapter) DeleteOrder(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := a.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrOrderNotFound
	}
	return nil
}
