package services

import (
	"context"

	"agrimarket/internal/domain"
)

type InventoryService struct {
	Inv Ledger
}

func NewInventoryService(inv Ledger) *InventoryService {
	return &InventoryService{Inv: inv}
}

// CheckAvailability converts qty into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	qty, err := s.Inv.Available(ctx, productID)
	if err != nil {
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}
