package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// GetSaleQuery represents the query to get a sale
type GetSaleQuery struct {
	SaleID string `json:"sale_id"`
}

// GetSale use case
type GetSale struct {
	saleRepository domain.SaleRepository
}

// NewGetSale creates a new GetSale use case
func NewGetSale(saleRepository domain.SaleRepository) *GetSale {
	return &GetSale{
		saleRepository: saleRepository,
	}
}

// Execute executes the get sale use case
func (uc *GetSale) Execute(ctx context.Context, query *GetSaleQuery) (*domain.Sale, error) {
	saleID, err := models.NewID(query.SaleID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sale ID")
	}

	sale, err := uc.saleRepository.FindByID(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find sale")
	}

	if sale == nil {
		return nil, domain.ErrSaleNotFound
	}

	return sale, nil
}
