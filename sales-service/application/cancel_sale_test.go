package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/models"
)

func TestCancelSale_Execute(t *testing.T) {
	tests := []struct {
		name          string
		saleID        func(f *saleFixture, sale *domain.Sale) string
		setupMocks    func(f *saleFixture)
		expectedError error
		errorContains string
	}{
		{
			name:          "invalid sale ID",
			saleID:        func(*saleFixture, *domain.Sale) string { return "abc" },
			setupMocks:    func(*saleFixture) {},
			errorContains: "invalid sale ID",
		},
		{
			name:          "unknown sale",
			saleID:        func(*saleFixture, *domain.Sale) string { return models.GenerateUUID().String() },
			setupMocks:    func(*saleFixture) {},
			expectedError: domain.ErrSaleNotFound,
		},
		{
			name:   "gateway refuses the cancellation",
			saleID: func(_ *saleFixture, sale *domain.Sale) string { return sale.ID.String() },
			setupMocks: func(f *saleFixture) {
				f.gateway.EXPECT().CancelPayment(mock.Anything, "mp-8001").Return(nil, errors.New("503 service unavailable")).Once()
			},
			expectedError: domain.ErrGatewayFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSaleFixture(t, domain.VehicleStatusAvailable)
			sale := f.startPendingSale(t, "mp-8001")
			tt.setupMocks(f)

			_, err := NewCancelSale(f.orchestrator).Execute(context.Background(), &CancelSaleCommand{SaleID: tt.saleID(f, sale)})

			require.Error(t, err)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			}
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}

			// nothing changed
			stored, findErr := f.sales.FindByID(context.Background(), sale.ID)
			require.NoError(t, findErr)
			assert.Equal(t, domain.SaleStatusPendingPayment, stored.Status)
			assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))
		})
	}
}
