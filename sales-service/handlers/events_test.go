package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/application"
	"github.com/vehiclemarket/sales-system/sales-service/mocks"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
)

func TestSaleEventHandlers_Handle(t *testing.T) {
	tests := []struct {
		name          string
		event         *events.Event
		setupMocks    func(*mocks.MockSaleRepository)
		expectedError string
	}{
		{
			name:       "unrelated event",
			event:      events.NewEvent(models.GenerateUUID(), events.SaleCreatedEvent, nil),
			setupMocks: func(*mocks.MockSaleRepository) {},
		},
		{
			name: "notification from the queue",
			event: events.NewEvent(models.GenerateUUID(), events.PaymentGatewayNotificationEvent,
				json.RawMessage(`{"transaction_id":"mp-1","status":"approved"}`)),
			setupMocks: func(sales *mocks.MockSaleRepository) {
				sales.EXPECT().FindByTransactionID(mock.Anything, "mp-1").Return(nil, nil).Once()
			},
		},
		{
			name: "typed payload",
			event: events.NewEvent(models.GenerateUUID(), events.PaymentGatewayNotificationEvent,
				PaymentNotificationData{TransactionID: "mp-2", Status: "rejected"}),
			setupMocks: func(sales *mocks.MockSaleRepository) {
				sales.EXPECT().FindByTransactionID(mock.Anything, "mp-2").Return(nil, nil).Once()
			},
		},
		{
			name: "incomplete notification is dropped",
			event: events.NewEvent(models.GenerateUUID(), events.PaymentGatewayNotificationEvent,
				json.RawMessage(`{"transaction_id":"mp-3"}`)),
			setupMocks: func(*mocks.MockSaleRepository) {},
		},
		{
			name: "malformed notification is dropped",
			event: events.NewEvent(models.GenerateUUID(), events.PaymentGatewayNotificationEvent,
				json.RawMessage(`["not","an","object"]`)),
			setupMocks: func(*mocks.MockSaleRepository) {},
		},
		{
			name: "repository failure is retried",
			event: events.NewEvent(models.GenerateUUID(), events.PaymentGatewayNotificationEvent,
				json.RawMessage(`{"transaction_id":"mp-4","status":"approved"}`)),
			setupMocks: func(sales *mocks.MockSaleRepository) {
				sales.EXPECT().FindByTransactionID(mock.Anything, "mp-4").Return(nil, errors.New("database error")).Once()
			},
			expectedError: "failed to process payment notification mp-4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales := mocks.NewMockSaleRepository(t)
			vehicles := mocks.NewMockVehicleRepository(t)
			tt.setupMocks(sales)

			h := NewSaleEventHandlers(application.NewProcessPaymentConfirmation(sales, vehicles, nil, nil, nil), nil)

			err := h.Handle(context.Background(), tt.event)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSaleEventHandlers_HandlerID(t *testing.T) {
	h := NewSaleEventHandlers(nil, nil)
	assert.Equal(t, "sales-service-event-handler", h.HandlerID())

	var _ events.EventHandler = h
}
