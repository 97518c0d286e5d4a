package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
)

// CreateSaleCommand represents a basket checked out at a studio
type CreateSaleCommand struct {
	TenantID      string
	ActorID       string
	StudioID      string
	ClientID      string
	PaymentMethod string
	Items         []SaleLineInput
}

// SaleLineInput represents one basket line in a command
type SaleLineInput struct {
	ProductID string
	Quantity  int
}

// validate checks the basket shape without touching any store and returns the
// normalized payment method
func (c CreateSaleCommand) validate() (domain.PaymentMethod, error) {
	if strings.TrimSpace(c.TenantID) == "" {
		return "", errMissingTenant
	}
	if len(c.Items) == 0 {
		return "", domain.ErrEmptyBasket
	}
	if strings.TrimSpace(c.StudioID) == "" {
		return "", domain.ErrMissingStudio
	}
	for i, line := range c.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			return "", fmt.Errorf("items[%d]: %w", i, domain.ErrMissingProduct)
		}
		if line.Quantity < 1 {
			return "", fmt.Errorf("items[%d]: %w", i, domain.ErrInvalidQuantity)
		}
	}

	method, err := domain.ParsePaymentMethod(c.PaymentMethod)
	if err != nil {
		return "", err
	}
	if method.ChargesAccount() && strings.TrimSpace(c.ClientID) == "" {
		return "", domain.ErrClientRequired
	}
	return method, nil
}

// RecordAdjustmentCommand represents a manual ledger correction
type RecordAdjustmentCommand struct {
	TenantID    string
	ActorID     string
	ClientID    string
	StudioID    string
	Amount      string
	Description string
}

func (c RecordAdjustmentCommand) validate() (domain.Money, error) {
	if strings.TrimSpace(c.TenantID) == "" {
		return domain.Money{}, errMissingTenant
	}
	if strings.TrimSpace(c.Description) == "" {
		return domain.Money{}, errMissingDescription
	}
	amount, err := domain.NewMoney(strings.TrimSpace(c.Amount))
	if err != nil {
		return domain.Money{}, err
	}
	if amount.IsZero() {
		return domain.Money{}, domain.ErrZeroAdjustment
	}
	return amount, nil
}

// GetSaleHistoryQuery lists sales newest first
type GetSaleHistoryQuery struct {
	TenantID string
	StudioID string
	Limit    int
}

// GetTransactionHistoryQuery lists retail ledger entries newest first. From is
// inclusive and To exclusive; either may be nil.
type GetTransactionHistoryQuery struct {
	TenantID string
	StudioID string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// GetSaleQuery loads one sale
type GetSaleQuery struct {
	TenantID string
	SaleID   string
}
