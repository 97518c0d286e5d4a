package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when a product does not exist in the tenant's catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrClientNotFound is returned when a client account does not exist in the tenant
	ErrClientNotFound = errors.New("client not found")

	// ErrSaleNotFound is returned when a sale does not exist in the tenant
	ErrSaleNotFound = errors.New("sale not found")

	// ErrInsufficientStock is returned when a studio cannot fulfil a requested quantity
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyBasket is returned when a sale has no line items
	ErrEmptyBasket = errors.New("basket must contain at least one item")

	// ErrInvalidQuantity is returned when a line quantity is not a positive integer
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidPaymentMethod is returned for an unknown payment method
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrClientRequired is returned when an on-account sale has no client
	ErrClientRequired = errors.New("on-account sales require a client")

	// ErrMissingStudio is returned when a basket does not name a studio
	ErrMissingStudio = errors.New("studioId is required")

	// ErrMissingProduct is returned when a line does not name a product
	ErrMissingProduct = errors.New("productId is required")

	// ErrZeroAdjustment is returned when a manual adjustment has no effect
	ErrZeroAdjustment = errors.New("adjustment amount must not be zero")

	// ErrConflict is returned when the store aborts a transaction because of a concurrent write
	ErrConflict = errors.New("concurrent modification conflict")
)

// InsufficientStockError names the line that could not be fulfilled
type InsufficientStockError struct {
	ProductID string
	StudioID  string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at studio %s: requested %d", e.ProductID, e.StudioID, e.Requested)
}

// Unwrap lets errors.Is match ErrInsufficientStock
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// NotFoundError carries the identifier of a missing entity
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewProductNotFound builds a NotFoundError for a product
func NewProductNotFound(productID string) error {
	return &NotFoundError{Resource: "product", ID: productID, Err: ErrProductNotFound}
}

// NewClientNotFound builds a NotFoundError for a client
func NewClientNotFound(clientID string) error {
	return &NotFoundError{Resource: "client", ID: clientID, Err: ErrClientNotFound}
}

// NewSaleNotFound builds a NotFoundError for a sale
func NewSaleNotFound(saleID string) error {
	return &NotFoundError{Resource: "sale", ID: saleID, Err: ErrSaleNotFound}
}
