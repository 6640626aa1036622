package services

import (
	"context"
	"math"
	"time"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/validation"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type CatalogService struct {
	db        core.ProductStorage
	validator *validation.Validator
	now       func() time.Time
}

// Ensure CatalogService implements CatalogProvider
var _ core.CatalogProvider = (*CatalogService)(nil)

func NewCatalogService(db core.ProductStorage, v *validation.Validator) *CatalogService {
	return &CatalogService{db: db, validator: v, now: time.Now}
}

// CreateProduct lists a product under the calling seller.
func (s *CatalogService) CreateProduct(ctx context.Context, seller *core.Claims, input core.ProductInput) (*core.Product, error) {
	if seller == nil {
		return nil, core.ErrForbidden
	}
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	sellerName := input.SellerName
	if sellerName == "" {
		sellerName = seller.Name
	}

	p := &core.Product{
		SellerID:     seller.UserID,
		SellerName:   sellerName,
		Name:         input.Name,
		Description:  input.Description,
		Category:     input.Category,
		Price:        input.Price,
		CountInStock: input.CountInStock,
		Reviews:      []core.Review{},
	}
	if err := s.db.CreateProduct(ctx, p); err != nil {
		return nil, storeErr("create product", err)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	p, err := s.db.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeErr("find product", err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*core.Product, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

// Page returns one page of the filtered listing with links to its
// neighbours. Page and limit are clamped to sane values.
func (s *CatalogService) Page(ctx context.Context, q core.PageQuery) (*core.ProductPage, error) {
	if q.Filter.MinPrice != nil && q.Filter.MaxPrice != nil && *q.Filter.MinPrice > *q.Filter.MaxPrice {
		return nil, &core.ValidationError{Violations: []core.FieldViolation{{
			Field:   "min",
			Rule:    "ltefield",
			Message: "min must not exceed max",
		}}}
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page > math.MaxInt/limit {
		return nil, &core.ValidationError{Violations: []core.FieldViolation{{
			Field:   "page",
			Rule:    "max",
			Message: "page is out of range",
		}}}
	}

	startIndex := (page - 1) * limit
	endIndex := page * limit

	products, count, err := s.db.FindProducts(ctx, q.Filter, startIndex, limit)
	if err != nil {
		return nil, storeErr("find products", err)
	}
	if products == nil {
		products = []*core.Product{}
	}

	result := &core.ProductPage{
		ProductCount: count,
		TotalPages:   (count + limit - 1) / limit,
		Data:         products,
	}
	if endIndex < count {
		result.Pagination.Next = &core.PageLink{Page: page + 1, Limit: limit, Data: count - endIndex}
	}
	if startIndex > 0 {
		result.Pagination.Prev = &core.PageLink{Page: page - 1, Limit: limit, Data: limit * (page - 1)}
	}
	return result, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.db.Categories(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

// SellerProducts lists a seller's products, newest first.
func (s *CatalogService) SellerProducts(ctx context.Context, sellerID string) ([]*core.Product, error) {
	if sellerID == "" {
		return nil, core.ErrInvalidID
	}
	products, err := s.db.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, storeErr("list seller products", err)
	}
	return products, nil
}

// UpdateProduct applies a partial update. Only the owning seller or an admin
// may change a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller *core.Claims, id string, input core.ProductUpdateInput) (*core.Product, error) {
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	p, err := s.ownedProduct(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.CountInStock != nil {
		p.CountInStock = *input.CountInStock
	}

	if err := s.db.UpdateProduct(ctx, p); err != nil {
		return nil, storeErr("update product", err)
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, caller *core.Claims, id string) error {
	if _, err := s.ownedProduct(ctx, caller, id); err != nil {
		return err
	}
	if err := s.db.DeleteProduct(ctx, id); err != nil {
		return storeErr("delete product", err)
	}
	return nil
}

func (s *CatalogService) ownedProduct(ctx context.Context, caller *core.Claims, id string) (*core.Product, error) {
	if caller == nil {
		return nil, core.ErrForbidden
	}
	p, err := s.db.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeErr("find product", err)
	}
	if p.SellerID != caller.UserID && !caller.IsAdmin {
		return nil, core.ErrForbidden
	}
	return p, nil
}

// AddReview records one review per reviewer name.
func (s *CatalogService) AddReview(ctx context.Context, reviewer *core.Claims, productID string, input core.ReviewInput) (*core.Product, error) {
	if reviewer == nil {
		return nil, core.ErrForbidden
	}
	if err := s.validator.Struct(&input); err != nil {
		return nil, err
	}

	p, err := s.db.GetProductByID(ctx, productID)
	if err != nil {
		return nil, storeErr("find product", err)
	}
	for _, r := range p.Reviews {
		if r.Name == reviewer.Name {
			return nil, core.ErrReviewExists
		}
	}

	review := core.Review{
		Name:      reviewer.Name,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.AddReview(ctx, productID, review); err != nil {
		return nil, storeErr("add review", err)
	}

	p.Reviews = append(p.Reviews, review)
	return p, nil
}

func (s *CatalogService) ClearReviews(ctx context.Context, productID string) error {
	if err := s.db.ClearReviews(ctx, productID); err != nil {
		return storeErr("clear reviews", err)
	}
	return nil
}
