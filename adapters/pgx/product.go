package pgx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/storefront/core"
)

const productColumns = `id::text, coalesce(seller_id::text, ''), seller_name, name, description, category, price,
	count_in_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*core.Product, error) {
	p := &core.Product{Reviews: []core.Review{}}
	err := row.Scan(&p.ID, &p.SellerID, &p.SellerName, &p.Name, &p.Description, &p.Category, &p.Price,
		&p.CountInStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// queryProducts runs q and attaches each product's reviews.
func (a *Adapter) queryProducts(ctx context.Context, q string, args ...interface{}) ([]*core.Product, error) {
	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*core.Product{}
	byID := make(map[string]*core.Product)
	ids := []string{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return products, nil
	}

	if err := a.loadReviews(ctx, ids, byID); err != nil {
		return nil, err
	}
	return products, nil
}

func (a *Adapter) loadReviews(ctx context.Context, ids []string, byID map[string]*core.Product) error {
	q := `SELECT product_id::text, name, rating, comment, created_at FROM reviews
		WHERE product_id = ANY($1::uuid[]) ORDER BY created_at`
	rows, err := a.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var r core.Review
		if err := rows.Scan(&productID, &r.Name, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return err
		}
		if p, ok := byID[productID]; ok {
			p.Reviews = append(p.Reviews, r)
		}
	}
	return rows.Err()
}

func (a *Adapter) CreateProduct(ctx context.Context, product *core.Product) error {
	var seller *string
	if product.SellerID != "" {
		id, err := parseID(product.SellerID)
		if err != nil {
			return err
		}
		seller = &id
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	q := `INSERT INTO products (id, seller_id, seller_name, name, description, category, price, count_in_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := a.pool.Exec(ctx, q, id, seller, product.SellerName, product.Name, product.Description,
		product.Category, product.Price, product.CountInStock, now)
	if err != nil {
		return err
	}

	product.ID = id
	product.CreatedAt, product.UpdatedAt = now, now
	if product.Reviews == nil {
		product.Reviews = []core.Review{}
	}
	return nil
}

func (a *Adapter) GetProductByID(ctx context.Context, id string) (*core.Product, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	products, err := a.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, core.ErrProductNotFound
	}
	return products[0], nil
}

func (a *Adapter) ListProducts(ctx context.Context) ([]*core.Product, error) {
	return a.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
}

func (a *Adapter) ListProductsBySeller(ctx context.Context, sellerID string) ([]*core.Product, error) {
	sellerID, err := parseID(sellerID)
	if err != nil {
		return nil, err
	}
	return a.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`, sellerID)
}

// productWhere renders the listing filter as a WHERE clause and its arguments.
func productWhere(f core.ProductFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Category != "" {
		args = append(args, containsPattern(f.Category))
		conds = append(conds, fmt.Sprintf("category ILIKE $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (a *Adapter) FindProducts(ctx context.Context, f core.ProductFilter, skip, limit int) ([]*core.Product, int, error) {
	where, args := productWhere(f)

	var count int
	if err := a.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, skip)
	q := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	products, err := a.queryProducts(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (a *Adapter) Categories(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (a *Adapter) CountByCategory(ctx context.Context) ([]core.CategoryCount, error) {
	rows, err := a.pool.Query(ctx, `SELECT category, count(*) FROM products GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryCount, error) {
		var c core.CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
}

func (a *Adapter) UpdateProduct(ctx context.Context, product *core.Product) error {
	id, err := parseID(product.ID)
	if err != nil {
		return err
	}

	q := `UPDATE products SET seller_name = $1, name = $2, description = $3, category = $4, price = $5,
		count_in_stock = $6, updated_at = now() WHERE id = $7 RETURNING updated_at`
	var updatedAt time.Time
	err = a.pool.QueryRow(ctx, q, product.SellerName, product.Name, product.Description, product.Category,
		product.Price, product.CountInStock, id).Scan(&updatedAt)
	if err != nil {
		return notFound(err, core.ErrProductNotFound)
	}
	product.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) DeleteProduct(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := a.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

// AddReview relies on the (product_id, name) key for one review per name.
func (a *Adapter) AddReview(ctx context.Context, productID string, r core.Review) error {
	productID, err := parseID(productID)
	if err != nil {
		return err
	}

	q := `INSERT INTO reviews (product_id, name, rating, comment, created_at)
		SELECT id, $2, $3, $4, $5 FROM products WHERE id = $1`
	tag, err := a.pool.Exec(ctx, q, productID, r.Name, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrReviewExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

func (a *Adapter) ClearReviews(ctx context.Context, productID string) error {
	productID, err := parseID(productID)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE products SET updated_at = now() WHERE id = $1`, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return core.ErrProductNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM reviews WHERE product_id = $1`, productID)
		return err
	})
}
