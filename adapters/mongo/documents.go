package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lborres/storefront/core"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	IsAdmin   bool               `bson:"isAdmin"`
	IsSeller  bool               `bson:"isSeller"`
	Country   string             `bson:"country,omitempty"`
	Age       int                `bson:"age,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toCore() *core.User {
	return &core.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsAdmin:      d.IsAdmin,
		IsSeller:     d.IsSeller,
		Country:      d.Country,
		Age:          d.Age,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func userFromCore(u *core.User) userDoc {
	return userDoc{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		IsAdmin:   u.IsAdmin,
		IsSeller:  u.IsSeller,
		Country:   u.Country,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type reviewDoc struct {
	Name      string    `bson:"name"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"createdAt"`
}

type productDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Seller       primitive.ObjectID `bson:"seller"`
	SellerName   string             `bson:"sellerName,omitempty"`
	Name         string             `bson:"name"`
	Description  string             `bson:"description"`
	Category     string             `bson:"category"`
	Price        float64            `bson:"price"`
	CountInStock int                `bson:"countInStock"`
	Reviews      []reviewDoc        `bson:"reviews"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *productDoc) toCore() *core.Product {
	p := &core.Product{
		ID:           d.ID.Hex(),
		SellerName:   d.SellerName,
		Name:         d.Name,
		Description:  d.Description,
		Category:     d.Category,
		Price:        d.Price,
		CountInStock: d.CountInStock,
		Reviews:      make([]core.Review, 0, len(d.Reviews)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if !d.Seller.IsZero() {
		p.SellerID = d.Seller.Hex()
	}
	for _, r := range d.Reviews {
		p.Reviews = append(p.Reviews, core.Review(r))
	}
	return p
}

func productFromCore(p *core.Product) (productDoc, error) {
	d := productDoc{
		SellerName:   p.SellerName,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.Price,
		CountInStock: p.CountInStock,
		Reviews:      make([]reviewDoc, 0, len(p.Reviews)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.SellerID != "" {
		seller, err := objectID(p.SellerID)
		if err != nil {
			return d, err
		}
		d.Seller = seller
	}
	for _, r := range p.Reviews {
		d.Reviews = append(d.Reviews, reviewDoc(r))
	}
	return d, nil
}

type orderItemDoc struct {
	Name    string  `bson:"name"`
	Qty     int     `bson:"qty"`
	Price   float64 `bson:"price"`
	Product string  `bson:"product,omitempty"`
}

type addressDoc struct {
	Address    string `bson:"address"`
	City       string `bson:"city"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
}

type orderDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	User            primitive.ObjectID `bson:"user"`
	OrderItems      []orderItemDoc     `bson:"orderItems"`
	ShippingAddress addressDoc         `bson:"shippingAddress"`
	ItemsPrice      float64            `bson:"itemsPrice"`
	ShippingPrice   float64            `bson:"shippingPrice"`
	TaxPrice        float64            `bson:"taxPrice"`
	TotalPrice      float64            `bson:"totalPrice"`
	Parent          string             `bson:"parent,omitempty"`
	Category        string             `bson:"category,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

func (d *orderDoc) toCore() *core.Order {
	o := &core.Order{
		ID:              d.ID.Hex(),
		UserID:          d.User.Hex(),
		OrderItems:      make([]core.OrderItem, 0, len(d.OrderItems)),
		ShippingAddress: core.ShippingAddress(d.ShippingAddress),
		ItemsPrice:      d.ItemsPrice,
		ShippingPrice:   d.ShippingPrice,
		TaxPrice:        d.TaxPrice,
		TotalPrice:      d.TotalPrice,
		Parent:          d.Parent,
		Category:        d.Category,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for _, it := range d.OrderItems {
		o.OrderItems = append(o.OrderItems, core.OrderItem{Name: it.Name, Qty: it.Qty, Price: it.Price, ProductID: it.Product})
	}
	return o
}

func orderFromCore(o *core.Order) (orderDoc, error) {
	user, err := objectID(o.UserID)
	if err != nil {
		return orderDoc{}, err
	}
	d := orderDoc{
		User:            user,
		OrderItems:      make([]orderItemDoc, 0, len(o.OrderItems)),
		ShippingAddress: addressDoc(o.ShippingAddress),
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TaxPrice:        o.TaxPrice,
		TotalPrice:      o.TotalPrice,
		Parent:          o.Parent,
		Category:        o.Category,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.OrderItems {
		d.OrderItems = append(d.OrderItems, orderItemDoc{Name: it.Name, Qty: it.Qty, Price: it.Price, Product: it.ProductID})
	}
	return d, nil
}
