package domain

import "time"

// Product is a catalog item as seen by the sale engine. Catalog CRUD lives elsewhere;
// the engine only reads it.
type Product struct {
	ProductID string    `bson:"productId" json:"productId"`
	TenantID  string    `bson:"tenantId" json:"tenantId"`
	Name      string    `bson:"name" json:"name"`
	Price     Money     `bson:"price" json:"price"`
	Category  string    `bson:"category,omitempty" json:"category,omitempty"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Subtotal prices a quantity of this product at its current price
func (p *Product) Subtotal(quantity int) Money {
	return p.Price.Mul(quantity)
}

// Stock is the on-hand quantity of one product at one studio
type Stock struct {
	TenantID  string    `bson:"tenantId" json:"tenantId"`
	ProductID string    `bson:"productId" json:"productId"`
	StudioID  string    `bson:"studioId" json:"studioId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CanFulfil reports whether the row holds at least quantity units
func (s *Stock) CanFulfil(quantity int) bool {
	return s != nil && s.Quantity >= quantity
}

// ClientAccount holds a client's running balance. Negative means the client owes money.
type ClientAccount struct {
	ClientID  string    `bson:"clientId" json:"clientId"`
	TenantID  string    `bson:"tenantId" json:"tenantId"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	Balance   Money     `bson:"balance" json:"balance"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
