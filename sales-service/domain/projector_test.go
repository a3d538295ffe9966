package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectSaleEvents(t *testing.T) {
	pending := Payment{Status: PaymentStatusPending, TransactionID: "tx-1"}
	approved := Payment{Status: PaymentStatusApproved, TransactionID: "tx-1"}
	expired := Payment{Status: PaymentStatusExpired}

	tests := []struct {
		name      string
		build     func() SagaInstance
		want      []SaleEventType
		lastEvent string
	}{
		{
			name:  "just started",
			build: newTestSaga,
			want:  []SaleEventType{SaleEventCreated},
		},
		{
			name: "payment created",
			build: func() SagaInstance {
				return advance(newTestSaga(), PaymentStepsCount).WithPayment(pending, testNow)
			},
			want: []SaleEventType{SaleEventCreated, SaleEventVehicleReserved, SaleEventPaymentInitiated, SaleEventPaymentPending},
		},
		{
			name: "payment approved",
			build: func() SagaInstance {
				return advance(newTestSaga(), PaymentStepsCount).WithPayment(approved, testNow)
			},
			want:      []SaleEventType{SaleEventCreated, SaleEventVehicleReserved, SaleEventPaymentInitiated, SaleEventPaymentProcessed},
			lastEvent: "Payment processed successfully with ID: tx-1",
		},
		{
			name: "payment expired",
			build: func() SagaInstance {
				return advance(newTestSaga(), PaymentStepsCount).WithPayment(expired, testNow)
			},
			want:      []SaleEventType{SaleEventCreated, SaleEventVehicleReserved, SaleEventPaymentInitiated, SaleEventPaymentFailed},
			lastEvent: "Payment expired - time limit exceeded",
		},
		{
			name: "compensating keeps forward order",
			build: func() SagaInstance {
				return advance(newTestSaga(), 3).MarkFailed("gateway down", testNow).BeginCompensation(testNow)
			},
			want: []SaleEventType{SaleEventCreated, SaleEventVehicleReserved},
		},
		{
			name: "failed",
			build: func() SagaInstance {
				return advance(newTestSaga(), 1).MarkFailed("vehicle v-1 is not available", testNow)
			},
			want:      []SaleEventType{SaleEventCreated, SaleEventCancelled},
			lastEvent: "Sale cancelled: vehicle v-1 is not available",
		},
		{
			name: "completed",
			build: func() SagaInstance {
				return advance(newTestSaga(), len(SaleSagaSteps)).WithPayment(approved, testNow)
			},
			want:      []SaleEventType{SaleEventCreated, SaleEventVehicleReserved, SaleEventPaymentInitiated, SaleEventPaymentProcessed, SaleEventCompleted},
			lastEvent: "Sale process completed successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			projected := ProjectSaleEvents(s)

			require.Equal(t, tt.want, eventTypes(projected))
			assert.Equal(t, "Sale created for vehicle "+s.VehicleID.String()+" by buyer "+s.BuyerID.String(), projected[0].Payload)
			if tt.lastEvent != "" {
				assert.Equal(t, tt.lastEvent, projected[len(projected)-1].Payload)
			}
			for _, e := range projected {
				assert.Equal(t, s.SaleID, e.SaleID)
			}
		})
	}
}

func TestProjectSaleEvents_Deterministic(t *testing.T) {
	s := advance(newTestSaga(), PaymentStepsCount).WithPayment(Payment{Status: PaymentStatusPending}, testNow)

	assert.Equal(t, ProjectSaleEvents(s), ProjectSaleEvents(s))
}
