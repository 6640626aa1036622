package core

// Request payloads. Struct tags carry the validation rules applied before
// any store access; strings are trimmed first.

type RegisterInput struct {
	Name     string `json:"name" validate:"required,alphanum,min=3,max=25"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Country  string `json:"country" validate:"omitempty,alphanum,min=3,max=25"`
	Age      int    `json:"age" validate:"omitempty,min=1,max=150"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ProfileUpdateInput is a partial update; nil fields are left untouched.
type ProfileUpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,alphanum,min=3,max=25"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Country  *string `json:"country" validate:"omitempty,alphanum,min=3,max=25"`
	Age      *int    `json:"age" validate:"omitempty,min=1,max=150"`
}

type ProductInput struct {
	Name         string  `json:"name" validate:"required,min=2,max=100"`
	Description  string  `json:"description" validate:"max=2000"`
	Category     string  `json:"category" validate:"required,max=50"`
	Price        float64 `json:"price" validate:"gte=0"`
	CountInStock int     `json:"countInStock" validate:"gte=0"`
	SellerName   string  `json:"sellerName" validate:"max=100"`
}

type ProductUpdateInput struct {
	Name         *string  `json:"name" validate:"omitempty,min=2,max=100"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	Category     *string  `json:"category" validate:"omitempty,max=50"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	CountInStock *int     `json:"countInStock" validate:"omitempty,gte=0"`
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

type OrderInput struct {
	OrderItems      []OrderItem     `json:"orderItems" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	ItemsPrice      float64         `json:"itemsPrice" validate:"gte=0"`
	ShippingPrice   float64         `json:"shippingPrice" validate:"gte=0"`
	TaxPrice        float64         `json:"taxPrice" validate:"gte=0"`
	TotalPrice      float64         `json:"totalPrice" validate:"gte=0"`
	Parent          string          `json:"parent" validate:"max=100"`
	Category        string          `json:"category" validate:"max=50"`
}

// PageQuery selects one page of the product listing.
type PageQuery struct {
	Page   int
	Limit  int
	Filter ProductFilter
}
