package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations.
// Lookups of a missing record return ErrUserNotFound; inserting a duplicate
// email returns ErrUserExists.
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// ProductStorage defines catalog database operations.
type ProductStorage interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	ListProductsBySeller(ctx context.Context, sellerID string) ([]*Product, error)
	FindProducts(ctx context.Context, f ProductFilter, skip, limit int) ([]*Product, int, error)
	Categories(ctx context.Context) ([]string, error)
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
	AddReview(ctx context.Context, productID string, r Review) error
	ClearReviews(ctx context.Context, productID string) error
}

// OrderStorage defines order database operations.
type OrderStorage interface {
	CreateOrder(ctx context.Context, o *Order) error
	ListOrdersByUser(ctx context.Context, userID string) ([]*Order, error)
	OrderTotals(ctx context.Context) (OrderTotals, error)
	DeleteOrder(ctx context.Context, id string) error
}

type StorageAdapter interface {
	UserStorage
	ProductStorage
	OrderStorage
}

// ============================================
// REFRESH TOKEN ALLOW-LIST PORT
// ============================================

// RefreshTokenStore remembers which refresh tokens may still be redeemed.
// Implementations must be safe for concurrent use.
type RefreshTokenStore interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Remove(ctx context.Context, token string) error
}

// AllowListStats tracks allow-list activity.
type AllowListStats struct {
	Adds      int64 `json:"adds"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Removes   int64 `json:"removes"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// ============================================
// CRYPTO PORTS
// ============================================

// PasswordHandler hashes and verifies passwords.
// Verify returns (false, nil) on mismatch and an error on a malformed hash.
type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// ============================================
// SERVICE PORTS (for HTTP adapters)
// ============================================

// AuthProvider provides authentication operations for HTTP adapters
type AuthProvider interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(token string) (*Claims, error)
}

// UserProvider provides account management operations
type UserProvider interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, caller *Claims, id string, input ProfileUpdateInput) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// CatalogProvider provides product operations
type CatalogProvider interface {
	CreateProduct(ctx context.Context, seller *Claims, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	Page(ctx context.Context, q PageQuery) (*ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
	SellerProducts(ctx context.Context, sellerID string) ([]*Product, error)
	UpdateProduct(ctx context.Context, caller *Claims, id string, input ProductUpdateInput) (*Product, error)
	DeleteProduct(ctx context.Context, caller *Claims, id string) error
	AddReview(ctx context.Context, reviewer *Claims, productID string, input ReviewInput) (*Product, error)
	ClearReviews(ctx context.Context, productID string) error
}

// OrderProvider provides order operations
type OrderProvider interface {
	CreateOrder(ctx context.Context, buyer *Claims, input OrderInput) (*Order, error)
	ListOrders(ctx context.Context, caller *Claims, userID string) ([]*Order, error)
	Summary(ctx context.Context) (*SalesSummary, error)
	DeleteOrder(ctx context.Context, id string) error
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(sf *Storefront) error
}
