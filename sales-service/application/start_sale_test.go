package application

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/sales-service/infrastructure"
	"github.com/vehiclemarket/sales-system/sales-service/mocks"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

func TestStartSale_Execute(t *testing.T) {
	buyer := newTestBuyer()
	vehicle := newTestVehicle(domain.VehicleStatusAvailable)

	validCommand := func() *StartSaleCommand {
		return &StartSaleCommand{
			VehicleID:     vehicle.ID.String(),
			BuyerID:       buyer.ID.String(),
			Amount:        5000000,
			Currency:      "BRL",
			PaymentMethod: "pix",
		}
	}

	tests := []struct {
		name           string
		command        func() *StartSaleCommand
		setupMocks     func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway)
		expectedError  string
		expectedStatus domain.SaleStatus
	}{
		{
			name: "invalid vehicle ID",
			command: func() *StartSaleCommand {
				cmd := validCommand()
				cmd.VehicleID = "invalid-uuid"
				return cmd
			},
			setupMocks:    func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway) {},
			expectedError: "invalid vehicle ID",
		},
		{
			name: "invalid buyer ID",
			command: func() *StartSaleCommand {
				cmd := validCommand()
				cmd.BuyerID = ""
				return cmd
			},
			setupMocks:    func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway) {},
			expectedError: "invalid buyer ID",
		},
		{
			name: "zero amount",
			command: func() *StartSaleCommand {
				cmd := validCommand()
				cmd.Amount = 0
				return cmd
			},
			setupMocks:    func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway) {},
			expectedError: "amount must be positive",
		},
		{
			name: "foreign currency",
			command: func() *StartSaleCommand {
				cmd := validCommand()
				cmd.Currency = "USD"
				return cmd
			},
			setupMocks:    func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway) {},
			expectedError: "unsupported currency USD",
		},
		{
			name: "unknown payment method",
			command: func() *StartSaleCommand {
				cmd := validCommand()
				cmd.PaymentMethod = "bitcoin"
				return cmd
			},
			setupMocks:    func(*mocks.MockSaleRepository, *mocks.MockSagaRepository, *mocks.MockPaymentGateway) {},
			expectedError: "invalid payment method",
		},
		{
			name:    "saga cannot be stored",
			command: validCommand,
			setupMocks: func(sales *mocks.MockSaleRepository, sagas *mocks.MockSagaRepository, gateway *mocks.MockPaymentGateway) {
				sagas.EXPECT().Save(mock.Anything, mock.Anything).Return(errors.New("database error"))
				sagas.EXPECT().AddEvent(mock.Anything, mock.Anything).Return(nil).Maybe()
			},
			expectedError:  "failed to save saga",
			expectedStatus: domain.SaleStatusCancelled,
		},
		{
			name:    "sale cannot be stored after the payment was created",
			command: validCommand,
			setupMocks: func(sales *mocks.MockSaleRepository, sagas *mocks.MockSagaRepository, gateway *mocks.MockPaymentGateway) {
				sagas.EXPECT().Save(mock.Anything, mock.Anything).Return(nil)
				sagas.EXPECT().AddEvent(mock.Anything, mock.Anything).Return(nil)
				gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(pendingGatewayPayment("mp-9"), nil).Once()
				sales.EXPECT().Save(mock.Anything, mock.AnythingOfType("*domain.Sale")).Return(errors.New("database error")).Once()
				gateway.EXPECT().CancelPayment(mock.Anything, "mp-9").Return(&domain.GatewayPayment{ID: "mp-9", Status: "cancelled"}, nil).Once()
			},
			expectedError:  "failed to save sale",
			expectedStatus: domain.SaleStatusCancelled,
		},
		{
			name:    "successful sale",
			command: validCommand,
			setupMocks: func(sales *mocks.MockSaleRepository, sagas *mocks.MockSagaRepository, gateway *mocks.MockPaymentGateway) {
				sagas.EXPECT().Save(mock.Anything, mock.MatchedBy(func(s *domain.SagaInstance) bool {
					return s.Status != saga.StatusFailed
				})).Return(nil)
				sagas.EXPECT().AddEvent(mock.Anything, mock.Anything).Return(nil)
				gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(pendingGatewayPayment("mp-10"), nil).Once()
				sales.EXPECT().Save(mock.Anything, mock.MatchedBy(func(sale *domain.Sale) bool {
					return sale.Status == domain.SaleStatusPendingPayment && sale.Payment.TransactionID == "mp-10"
				})).Return(nil).Once()
			},
			expectedStatus: domain.SaleStatusPendingPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales := mocks.NewMockSaleRepository(t)
			sagas := mocks.NewMockSagaRepository(t)
			gateway := mocks.NewMockPaymentGateway(t)
			tt.setupMocks(sales, sagas, gateway)

			orchestrator := NewSagaOrchestrator(
				infrastructure.NewMemoryBuyerRepository(buyer),
				infrastructure.NewMemoryVehicleRepository(vehicle),
				sales, sagas, gateway, nil,
				WithClock(func() time.Time { return testNow }),
			)

			sale, err := NewStartSale(orchestrator).Execute(context.Background(), tt.command())

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
			}

			if tt.expectedStatus == "" {
				assert.Nil(t, sale)
				return
			}
			require.NotNil(t, sale)
			assert.Equal(t, tt.expectedStatus, sale.Status)
			if tt.expectedError != "" {
				assert.ErrorIs(t, err, domain.ErrSagaExecutionFailed)
			}
		})
	}
}
