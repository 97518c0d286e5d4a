package application

import "github.com/MOhammedRiaad/EMS-sub006/internal/domain"

// ToSaleDTO converts a domain Sale to SaleDTO
func ToSaleDTO(sale *domain.Sale) *SaleDTO {
	if sale == nil {
		return nil
	}

	items := make([]SaleItemDTO, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			Subtotal:    item.Subtotal.String(),
		})
	}

	return &SaleDTO{
		SaleID:        sale.SaleID,
		TenantID:      sale.TenantID,
		StudioID:      sale.StudioID,
		ClientID:      sale.ClientID,
		SellerID:      sale.SellerID,
		PaymentMethod: string(sale.PaymentMethod),
		Status:        string(sale.Status),
		TotalAmount:   sale.TotalAmount.String(),
		Items:         items,
		LedgerEntryID: sale.LedgerEntryID,
		LedgerEntry:   ToLedgerEntryDTO(sale.LedgerEntry),
		CreatedAt:     sale.CreatedAt,
	}
}

// ToSaleDTOs converts a slice of sales, never returning nil
func ToSaleDTOs(sales []*domain.Sale) []SaleDTO {
	dtos := make([]SaleDTO, 0, len(sales))
	for _, sale := range sales {
		dtos = append(dtos, *ToSaleDTO(sale))
	}
	return dtos
}

// ToLedgerEntryDTO converts a domain LedgerEntry to LedgerEntryDTO
func ToLedgerEntryDTO(entry *domain.LedgerEntry) *LedgerEntryDTO {
	if entry == nil {
		return nil
	}

	var running *string
	if entry.RunningBalance != nil {
		s := entry.RunningBalance.String()
		running = &s
	}

	return &LedgerEntryDTO{
		EntryID:        entry.EntryID,
		TenantID:       entry.TenantID,
		StudioID:       entry.StudioID,
		ClientID:       entry.ClientID,
		Type:           string(entry.Type),
		Category:       entry.Category,
		Amount:         entry.Amount.String(),
		RunningBalance: running,
		ReferenceType:  entry.ReferenceType,
		ReferenceID:    entry.ReferenceID,
		Description:    entry.Description,
		CreatedBy:      entry.CreatedBy,
		CreatedAt:      entry.CreatedAt,
	}
}

// ToLedgerEntryDTOs converts a slice of entries, never returning nil
func ToLedgerEntryDTOs(entries []*domain.LedgerEntry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, *ToLedgerEntryDTO(entry))
	}
	return dtos
}
