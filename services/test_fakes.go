package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lborres/storefront/core"
)

// FakeStorage is a test-only in-memory core.StorageAdapter.
// Errors can be injected per method name with Fail.
type FakeStorage struct {
	mu       sync.RWMutex
	users    map[string]*core.User
	products map[string]*core.Product
	orders   map[string]*core.Order
	seq      int
	failures map[string]error
	calls    map[string]int
}

// Ensure FakeStorage implements StorageAdapter
var _ core.StorageAdapter = (*FakeStorage)(nil)

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		users:    make(map[string]*core.User),
		products: make(map[string]*core.Product),
		orders:   make(map[string]*core.Order),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Fail makes every later call to method return err.
func (f *FakeStorage) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Calls reports how often method has been invoked.
func (f *FakeStorage) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// enter records the call and returns the injected error, if any. Callers hold f.mu.
func (f *FakeStorage) enter(method string) error {
	f.calls[method]++
	return f.failures[method]
}

func (f *FakeStorage) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%04d", prefix, f.seq)
}

func copyUser(u *core.User) *core.User {
	c := *u
	return &c
}

func copyProduct(p *core.Product) *core.Product {
	c := *p
	c.Reviews = append([]core.Review(nil), p.Reviews...)
	return &c
}

func copyOrder(o *core.Order) *core.Order {
	c := *o
	c.OrderItems = append([]core.OrderItem(nil), o.OrderItems...)
	return &c
}

// ============================================
// Users
// ============================================

func (f *FakeStorage) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateUser"); err != nil {
		return err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.ErrUserExists
		}
	}
	now := time.Now().UTC()
	u.ID = f.nextID("u")
	u.CreatedAt, u.UpdatedAt = now, now
	f.users[u.ID] = copyUser(u)
	return nil
}

// SeedUser stores u as-is, bypassing duplicate checks.
func (f *FakeStorage) SeedUser(u *core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = f.nextID("u")
	}
	f.users[u.ID] = copyUser(u)
}

func (f *FakeStorage) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (f *FakeStorage) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) ListUsers(_ context.Context) ([]*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListUsers"); err != nil {
		return nil, err
	}
	out := make([]*core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStorage) UpdateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateUser"); err != nil {
		return err
	}
	if _, ok := f.users[u.ID]; !ok {
		return core.ErrUserNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	f.users[u.ID] = copyUser(u)
	return nil
}

func (f *FakeStorage) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteUser"); err != nil {
		return err
	}
	if _, ok := f.users[id]; !ok {
		return core.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *FakeStorage) CountUsers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CountUsers"); err != nil {
		return 0, err
	}
	return len(f.users), nil
}

// ============================================
// Products
// ============================================

func (f *FakeStorage) CreateProduct(_ context.Context, p *core.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateProduct"); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.ID = f.nextID("p")
	p.CreatedAt, p.UpdatedAt = now, now
	f.products[p.ID] = copyProduct(p)
	return nil
}

func (f *FakeStorage) GetProductByID(_ context.Context, id string) (*core.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetProductByID"); err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (f *FakeStorage) sortedProducts(keep func(*core.Product) bool) []*core.Product {
	out := make([]*core.Product, 0, len(f.products))
	for _, p := range f.products {
		if keep(p) {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeStorage) ListProducts(_ context.Context) ([]*core.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListProducts"); err != nil {
		return nil, err
	}
	return f.sortedProducts(func(*core.Product) bool { return true }), nil
}

func (f *FakeStorage) ListProductsBySeller(_ context.Context, sellerID string) ([]*core.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListProductsBySeller"); err != nil {
		return nil, err
	}
	out := f.sortedProducts(func(p *core.Product) bool { return p.SellerID == sellerID })
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (f *FakeStorage) FindProducts(_ context.Context, filter core.ProductFilter, skip, limit int) ([]*core.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindProducts"); err != nil {
		return nil, 0, err
	}
	matched := f.sortedProducts(func(p *core.Product) bool {
		if filter.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(filter.Category)) {
			return false
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			return false
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			return false
		}
		return true
	})
	count := len(matched)
	if skip >= count {
		return []*core.Product{}, count, nil
	}
	end := skip + limit
	if end > count {
		end = count
	}
	return matched[skip:end], count, nil
}

func (f *FakeStorage) Categories(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Categories"); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range f.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeStorage) CountByCategory(_ context.Context) ([]core.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CountByCategory"); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range f.products {
		counts[p.Category]++
	}
	out := make([]core.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, core.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (f *FakeStorage) UpdateProduct(_ context.Context, p *core.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateProduct"); err != nil {
		return err
	}
	if _, ok := f.products[p.ID]; !ok {
		return core.ErrProductNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	f.products[p.ID] = copyProduct(p)
	return nil
}

func (f *FakeStorage) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := f.products[id]; !ok {
		return core.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *FakeStorage) AddReview(_ context.Context, productID string, r core.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AddReview"); err != nil {
		return err
	}
	p, ok := f.products[productID]
	if !ok {
		return core.ErrProductNotFound
	}
	for _, existing := range p.Reviews {
		if existing.Name == r.Name {
			return core.ErrReviewExists
		}
	}
	p.Reviews = append(p.Reviews, r)
	return nil
}

func (f *FakeStorage) ClearReviews(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ClearReviews"); err != nil {
		return err
	}
	p, ok := f.products[productID]
	if !ok {
		return core.ErrProductNotFound
	}
	p.Reviews = []core.Review{}
	return nil
}

// ============================================
// Orders
// ============================================

func (f *FakeStorage) CreateOrder(_ context.Context, o *core.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateOrder"); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.ID = f.nextID("o")
	o.CreatedAt, o.UpdatedAt = now, now
	f.orders[o.ID] = copyOrder(o)
	return nil
}

func (f *FakeStorage) ListOrdersByUser(_ context.Context, userID string) ([]*core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOrdersByUser"); err != nil {
		return nil, err
	}
	out := []*core.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeStorage) OrderTotals(_ context.Context) (core.OrderTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("OrderTotals"); err != nil {
		return core.OrderTotals{}, err
	}
	var totals core.OrderTotals
	for _, o := range f.orders {
		totals.NumOrders++
		totals.TotalSales += o.TotalPrice
	}
	return totals, nil
}

func (f *FakeStorage) DeleteOrder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteOrder"); err != nil {
		return err
	}
	if _, ok := f.orders[id]; !ok {
		return core.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

// FakeAllowList is a RefreshTokenStore whose calls can be made to fail.
type FakeAllowList struct {
	mu        sync.Mutex
	tokens    map[string]time.Time
	AddErr    error
	CheckErr  error
	RemoveErr error
}

func NewFakeAllowList() *FakeAllowList {
	return &FakeAllowList{tokens: make(map[string]time.Time)}
}

func (f *FakeAllowList) Add(_ context.Context, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddErr != nil {
		return f.AddErr
	}
	f.tokens[token] = expiresAt
	return nil
}

func (f *FakeAllowList) Contains(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckErr != nil {
		return false, f.CheckErr
	}
	_, ok := f.tokens[token]
	return ok, nil
}

func (f *FakeAllowList) Remove(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.tokens, token)
	return nil
}

func (f *FakeAllowList) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}
