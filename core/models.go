package core

import "time"

// Role names a boolean claim carried by an access token.
type Role string

const (
	RoleAdmin  Role = "isAdmin"
	RoleSeller Role = "isSeller"
)

// User is the identity and credential record of a customer, seller or admin.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	IsAdmin      bool      `json:"isAdmin"`
	IsSeller     bool      `json:"isSeller"`
	Country      string    `json:"country,omitempty"`
	Age          int       `json:"age,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Claims is the identity snapshot embedded in a signed token.
//
// Claims are frozen at issuance: a role change in the store only shows up
// in tokens minted afterwards.
type Claims struct {
	UserID    string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	IsSeller  bool      `json:"isSeller"`
	TokenID   string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// ClaimsFor copies the claim-bearing fields of u.
func ClaimsFor(u *User) Claims {
	return Claims{
		UserID:   u.ID,
		Name:     u.Name,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
		IsSeller: u.IsSeller,
	}
}

// HasRole reports whether the role flag r is set. Unknown roles are never held.
func (c *Claims) HasRole(r Role) bool {
	if c == nil {
		return false
	}
	switch r {
	case RoleAdmin:
		return c.IsAdmin
	case RoleSeller:
		return c.IsSeller
	default:
		return false
	}
}

type Review struct {
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID           string    `json:"_id"`
	SellerID     string    `json:"sellerId"`
	SellerName   string    `json:"sellerName,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	CountInStock int       `json:"countInStock"`
	Reviews      []Review  `json:"reviews"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type OrderItem struct {
	Name      string  `json:"name" validate:"required,max=100"`
	Qty       int     `json:"qty" validate:"required,min=1"`
	Price     float64 `json:"price" validate:"gte=0"`
	ProductID string  `json:"product,omitempty"`
}

type ShippingAddress struct {
	Address    string `json:"address" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

type Order struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"userId"`
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	Parent          string          `json:"parent,omitempty"`
	Category        string          `json:"category,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ProductFilter narrows a product listing. Zero values mean "no bound".
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// PageLink points at a neighbouring page.
type PageLink struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Data  int `json:"data"`
}

type Pagination struct {
	Next *PageLink `json:"next,omitempty"`
	Prev *PageLink `json:"prev,omitempty"`
}

// ProductPage is one page of a filtered product listing.
type ProductPage struct {
	ProductCount int        `json:"productCount"`
	TotalPages   int        `json:"totalPages"`
	Pagination   Pagination `json:"pagination"`
	Data         []*Product `json:"data"`
}

type CategoryCount struct {
	Category string `json:"_id"`
	Count    int    `json:"count"`
}

type OrderTotals struct {
	NumOrders  int     `json:"numOrders"`
	TotalSales float64 `json:"totalSales"`
}

// SalesSummary is the admin dashboard rollup.
type SalesSummary struct {
	Orders            OrderTotals     `json:"orders"`
	NumUsers          int             `json:"numUsers"`
	ProductCategories []CategoryCount `json:"productCategories"`
}

// TokenPair is returned to clients on login.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult combines the authenticated user and its tokens.
type LoginResult struct {
	User *User `json:"user"`
	TokenPair
}
