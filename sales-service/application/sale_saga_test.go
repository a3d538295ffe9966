package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/sales-service/infrastructure"
	"github.com/vehiclemarket/sales-system/sales-service/mocks"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func newTestBuyer() domain.Buyer {
	return domain.Buyer{
		ID:         models.GenerateUUID(),
		Name:       "Maria Clara Souza",
		Email:      "maria@example.com",
		Phone:      "+55 11 99999-0000",
		Documents:  []domain.Document{{Type: domain.DocumentTypeCPF, Number: "123.456.789-09"}},
		Timestamps: models.NewTimestamps(testNow),
	}
}

func newTestVehicle(status domain.VehicleStatus) domain.Vehicle {
	return domain.Vehicle{
		ID:         models.GenerateUUID(),
		Brand:      "Honda",
		Model:      "Civic",
		Year:       2023,
		Color:      "black",
		Price:      models.NewMoney(5000000, "BRL"),
		Status:     status,
		Timestamps: models.NewTimestamps(testNow.Add(-24 * time.Hour)),
	}
}

func pendingGatewayPayment(id string) *domain.GatewayPayment {
	return &domain.GatewayPayment{
		ID:      id,
		Status:  "pending",
		Method:  "pix",
		Details: domain.PaymentDetails{QRCode: "00020126580014br.gov.bcb.pix", QRCodeBase64: "iVBORw0KGgo"},
	}
}

// saleFixture wires the orchestrator to the in-memory stores
type saleFixture struct {
	buyer        domain.Buyer
	vehicle      domain.Vehicle
	buyers       *infrastructure.MemoryBuyerRepository
	vehicles     *infrastructure.MemoryVehicleRepository
	sales        *infrastructure.MemorySaleRepository
	sagas        *infrastructure.MemorySagaRepository
	gateway      *mocks.MockPaymentGateway
	publisher    *infrastructure.LogEventPublisher
	orchestrator *SagaOrchestrator
}

func newSaleFixture(t *testing.T, vehicleStatus domain.VehicleStatus) *saleFixture {
	t.Helper()

	f := &saleFixture{
		buyer:   newTestBuyer(),
		vehicle: newTestVehicle(vehicleStatus),
	}
	f.buyers = infrastructure.NewMemoryBuyerRepository(f.buyer)
	f.vehicles = infrastructure.NewMemoryVehicleRepository(f.vehicle)
	f.sales = infrastructure.NewMemorySaleRepository()
	f.sagas = infrastructure.NewMemorySagaRepository()
	f.gateway = mocks.NewMockPaymentGateway(t)
	f.publisher = infrastructure.NewLogEventPublisher(nil)
	f.orchestrator = NewSagaOrchestrator(f.buyers, f.vehicles, f.sales, f.sagas, f.gateway, f.publisher,
		WithClock(func() time.Time { return testNow }))
	return f
}

func (f *saleFixture) command(method string) *StartSaleCommand {
	return &StartSaleCommand{
		VehicleID:     f.vehicle.ID.String(),
		BuyerID:       f.buyer.ID.String(),
		Amount:        5000000,
		Currency:      "BRL",
		PaymentMethod: method,
	}
}

func (f *saleFixture) vehicleStatus(t *testing.T) domain.VehicleStatus {
	t.Helper()
	vehicle, err := f.vehicles.FindByID(context.Background(), f.vehicle.ID)
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	return vehicle.Status
}

func (f *saleFixture) saga(t *testing.T, saleID models.ID) *domain.SagaInstance {
	t.Helper()
	s, err := f.sagas.FindBySaleID(context.Background(), saleID)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

// startPendingSale runs a successful StartSale whose gateway transaction is transactionID
func (f *saleFixture) startPendingSale(t *testing.T, transactionID string) *domain.Sale {
	t.Helper()
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(pendingGatewayPayment(transactionID), nil).Once()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("pix"))
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusPendingPayment, sale.Status)
	return sale
}

func (f *saleFixture) confirm(t *testing.T, transactionID, status string) *ConfirmationResult {
	t.Helper()
	uc := NewProcessPaymentConfirmation(f.sales, f.vehicles, infrastructure.NewMemoryConfirmationLock(), f.publisher, nil)
	uc.now = func() time.Time { return testNow }

	result, err := uc.Execute(context.Background(), &ProcessPaymentConfirmationCommand{
		TransactionID: transactionID,
		Status:        status,
	})
	require.NoError(t, err)
	return result
}

func sagaEventSteps(events []domain.SagaEvent, eventType saga.EventType) []domain.SagaStep {
	var steps []domain.SagaStep
	for _, e := range events {
		if e.Type == eventType {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

func saleEventTypes(sale *domain.Sale) []domain.SaleEventType {
	types := make([]domain.SaleEventType, len(sale.Events))
	for i, e := range sale.Events {
		types[i] = e.EventType
	}
	return types
}

func TestStartSale_AvailableVehicle(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.MatchedBy(func(req domain.PaymentGatewayRequest) bool {
		return req.Method == domain.PaymentMethodPix &&
			req.Amount.Equals(models.NewMoney(5000000, "BRL")) &&
			req.Buyer.ID == f.buyer.ID &&
			req.ExternalReference != ""
	})).Return(pendingGatewayPayment("mp-1001"), nil).Once()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("PIX"))

	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusPendingPayment, sale.Status)
	assert.Equal(t, domain.PaymentStatusPending, sale.Payment.Status)
	assert.Equal(t, domain.PaymentMethodPix, sale.Payment.Method)
	assert.Equal(t, "mp-1001", sale.Payment.TransactionID)
	assert.Equal(t, "00020126580014br.gov.bcb.pix", sale.Payment.Details.QRCode)
	assert.Equal(t, []domain.SaleEventType{
		domain.SaleEventCreated,
		domain.SaleEventVehicleReserved,
		domain.SaleEventPaymentInitiated,
		domain.SaleEventPaymentPending,
	}, saleEventTypes(sale))

	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))

	stored, err := f.sales.FindByTransactionID(context.Background(), "mp-1001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, sale.ID, stored.ID)

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusInProgress, s.Status)
	assert.Equal(t, domain.PaymentStepsCount, s.CurrentStep)
	assert.Equal(t, []int{0, 1, 2, 3}, s.CompletedSteps)
	require.NotNil(t, s.Compensation.Sale)
	assert.Equal(t, sale.ID, s.Compensation.Sale.ID)

	audit := f.sagas.Events(s.ID)
	expectedSteps := []domain.SagaStep{
		domain.StepValidateBuyer, domain.StepValidateVehicle, domain.StepReserveVehicle, domain.StepCreatePayment,
	}
	assert.Equal(t, expectedSteps, sagaEventSteps(audit, saga.EventStepStarted))
	assert.Equal(t, expectedSteps, sagaEventSteps(audit, saga.EventStepCompleted))

	assert.Len(t, f.publisher.Published(events.SagaStartedEvent), 1)
	assert.Len(t, f.publisher.Published(events.SaleCreatedEvent), 1)
	assert.Empty(t, f.publisher.Published(events.SagaFailedEvent))
}

func TestStartSale_ReservedVehicle(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusReserved)

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("pix"))

	require.NoError(t, err, "an unavailable vehicle is a business outcome")
	assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
	assert.Equal(t, domain.PaymentStatusCancelled, sale.Payment.Status)
	assert.Contains(t, sale.Notes, "is not available")
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))

	stored, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "no sale is stored before the payment step")

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusFailed, s.Status)
	assert.Empty(t, s.CompletedSteps)
	assert.Contains(t, s.FailedSteps[1], "is not available")
	assert.Len(t, f.publisher.Published(events.SagaFailedEvent), 1)
}

func TestStartSale_UnknownBuyer(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	cmd := f.command("boleto")
	cmd.BuyerID = models.GenerateUUID().String()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), cmd)

	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
	assert.Contains(t, sale.Notes, "not found")
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))
	assert.Equal(t, saga.StatusFailed, f.saga(t, sale.ID).Status)
}

func TestStartSale_GatewayFailureCompensatesInReverse(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(nil, errors.New("gateway down")).Once()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("credit_card"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSagaExecutionFailed)
	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
	require.NotNil(t, sale)
	assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t), "reservation is released")

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusFailed, s.Status)
	assert.Empty(t, s.CompletedSteps)
	assert.Contains(t, s.FailedSteps[3], "gateway down")

	audit := f.sagas.Events(s.ID)
	assert.Equal(t, []domain.SagaStep{domain.StepCreatePayment}, sagaEventSteps(audit, saga.EventStepFailed))
	assert.Equal(t, []domain.SagaStep{
		domain.StepReserveVehicle, domain.StepValidateVehicle, domain.StepValidateBuyer,
	}, sagaEventSteps(audit, saga.EventCompensationCompleted))
	assert.Len(t, sagaEventSteps(audit, saga.EventSagaFailed), 1)
}

// unsavableSales refuses to store new sales
type unsavableSales struct {
	*infrastructure.MemorySaleRepository
}

func (unsavableSales) Save(context.Context, *domain.Sale) error {
	return errors.New("connection refused")
}

func (f *saleFixture) withUnsavableSales() {
	f.orchestrator = NewSagaOrchestrator(f.buyers, f.vehicles, unsavableSales{f.sales}, f.sagas, f.gateway, f.publisher,
		WithClock(func() time.Time { return testNow }))
}

func TestStartSale_SaleNotStoredFailsPaymentStep(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	f.withUnsavableSales()
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(pendingGatewayPayment("mp-6001"), nil).Once()
	f.gateway.EXPECT().CancelPayment(mock.Anything, "mp-6001").Return(&domain.GatewayPayment{ID: "mp-6001", Status: "cancelled"}, nil).Once()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("pix"))

	assert.ErrorIs(t, err, domain.ErrSagaExecutionFailed)
	require.NotNil(t, sale)
	assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusFailed, s.Status)
	assert.Equal(t, map[int]string{3: "failed to save sale: connection refused"}, s.FailedSteps)
	assert.NotContains(t, s.FailedSteps, 4)

	audit := f.sagas.Events(s.ID)
	assert.Equal(t, []domain.SagaStep{domain.StepCreatePayment}, sagaEventSteps(audit, saga.EventStepFailed))
	assert.Equal(t, []domain.SagaStep{
		domain.StepCreatePayment, domain.StepReserveVehicle, domain.StepValidateVehicle, domain.StepValidateBuyer,
	}, sagaEventSteps(audit, saga.EventCompensationCompleted))
}

func TestStartSale_CompensationFailureStopsSaga(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	f.withUnsavableSales()
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).Return(pendingGatewayPayment("mp-6002"), nil).Once()
	f.gateway.EXPECT().CancelPayment(mock.Anything, "mp-6002").Return(nil, errors.New("gateway down")).Once()

	sale, err := NewStartSale(f.orchestrator).Execute(context.Background(), f.command("pix"))

	assert.ErrorIs(t, err, domain.ErrSagaExecutionFailed)
	require.NotNil(t, sale)
	assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t), "later compensations do not run")

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusFailed, s.Status)
	assert.Contains(t, s.LastError, "compensation of create_payment failed")
	assert.Contains(t, s.LastError, "gateway down")
	assert.Equal(t, []int{3, 2, 1, 0}, s.CompletedSteps, "nothing was undone")

	audit := f.sagas.Events(s.ID)
	assert.Equal(t, []domain.SagaStep{domain.StepCreatePayment}, sagaEventSteps(audit, saga.EventCompensationStarted))
	assert.Equal(t, []domain.SagaStep{domain.StepCreatePayment}, sagaEventSteps(audit, saga.EventCompensationFailed))
	assert.Empty(t, sagaEventSteps(audit, saga.EventCompensationCompleted))

	failed := f.publisher.Published(events.SagaFailedEvent)
	require.Len(t, failed, 1)
	var data SagaFailedData
	require.NoError(t, failed[0].UnmarshalPayload(&data))
	assert.Equal(t, s.LastError, data.Error)
}

func TestStartSale_ConcurrentBuyersReserveOnce(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	f.gateway.EXPECT().CreatePayment(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req domain.PaymentGatewayRequest) (*domain.GatewayPayment, error) {
			return pendingGatewayPayment("mp-" + req.ExternalReference), nil
		}).Once()

	uc := NewStartSale(f.orchestrator)
	const attempts = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*domain.Sale
		start   = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sale, err := uc.Execute(context.Background(), f.command("pix"))
			assert.NoError(t, err)

			mu.Lock()
			results = append(results, sale)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	pending := 0
	for _, sale := range results {
		require.NotNil(t, sale)
		switch sale.Status {
		case domain.SaleStatusPendingPayment:
			pending++
		default:
			assert.Equal(t, domain.SaleStatusCancelled, sale.Status)
		}
	}
	assert.Equal(t, 1, pending)
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))
}

func TestProcessPaymentConfirmation_Approved(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-2001")

	result := f.confirm(t, "mp-2001", "APPROVED")

	assert.Equal(t, ConfirmationProcessed, result.Status)
	assert.Equal(t, sale.ID.String(), result.SaleID)
	assert.Equal(t, domain.SaleStatusPaymentApproved.String(), result.SaleStatus)

	stored, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusPaymentApproved, stored.Status)
	assert.Equal(t, domain.PaymentStatusApproved, stored.Payment.Status)
	require.NotNil(t, stored.Payment.PaymentDate)
	assert.Equal(t, testNow, *stored.Payment.PaymentDate)
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))

	// a repeated notification changes nothing
	again := f.confirm(t, "mp-2001", "approved")
	assert.Equal(t, ConfirmationProcessed, again.Status)

	reloaded, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Events, reloaded.Events)
	assert.Len(t, f.publisher.Published(events.SalePaymentApprovedEvent), 1)
}

func TestProcessPaymentConfirmation_ReplayAfterDelivery(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-9001")
	f.confirm(t, "mp-9001", "APPROVED")

	stored, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	stored.MarkDelivered(testNow)
	require.NoError(t, f.sales.Update(context.Background(), stored))

	delivered, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)

	for _, status := range []string{"APPROVED", "rejected"} {
		uc := NewProcessPaymentConfirmation(f.sales, f.vehicles, infrastructure.NewMemoryConfirmationLock(), f.publisher, nil)
		uc.now = func() time.Time { return testNow.Add(time.Hour) }

		result, err := uc.Execute(context.Background(), &ProcessPaymentConfirmationCommand{TransactionID: "mp-9001", Status: status})
		require.NoError(t, err)
		assert.Equal(t, ConfirmationProcessed, result.Status)
		assert.Equal(t, domain.SaleStatusVehicleDelivered.String(), result.SaleStatus)
	}

	reloaded, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusVehicleDelivered, reloaded.Status)
	assert.Equal(t, domain.PaymentStatusApproved, reloaded.Payment.Status)
	assert.Equal(t, delivered.Events, reloaded.Events)
	require.NotNil(t, reloaded.Payment.PaymentDate)
	assert.Equal(t, testNow, *reloaded.Payment.PaymentDate)
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))
	assert.Len(t, f.publisher.Published(events.SalePaymentApprovedEvent), 1)
	assert.Empty(t, f.publisher.Published(events.SalePaymentDeclinedEvent))
}

func TestProcessPaymentConfirmation_Rejected(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-3001")

	result := f.confirm(t, "mp-3001", "REJECTED")

	assert.Equal(t, domain.SaleStatusPaymentDeclined.String(), result.SaleStatus)
	assert.Equal(t, domain.PaymentStatusDeclined.String(), result.PaymentStatus)

	stored, err := f.sales.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusPaymentDeclined, stored.Status)
	assert.Equal(t, "Payment declined", stored.Payment.FailureReason)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t), "vehicle goes back on sale")
	assert.Len(t, f.publisher.Published(events.SalePaymentDeclinedEvent), 1)
}

func TestProcessPaymentConfirmation_UnknownTransaction(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)

	result := f.confirm(t, "mp-unknown", "APPROVED")

	assert.Equal(t, ConfirmationNoSaleFound, result.Status)
	assert.Empty(t, f.publisher.Published(""))
}

func TestConfirmDelivery_CompletesSale(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-4001")
	f.confirm(t, "mp-4001", "APPROVED")

	completed, err := NewConfirmDelivery(f.orchestrator).Execute(context.Background(), &ConfirmDeliveryCommand{SaleID: sale.ID.String()})

	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCompleted, completed.Status)
	assert.True(t, completed.HasNote("transfer documents generated: DOC-"+sale.ID.String()))
	assert.Contains(t, saleEventTypes(completed), domain.SaleEventVehicleDelivered)
	assert.Equal(t, domain.SaleEventCompleted, completed.Events[len(completed.Events)-1].EventType)
	assert.Equal(t, domain.VehicleStatusSold, f.vehicleStatus(t))

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusCompleted, s.Status)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, s.CompletedSteps)

	notified := f.publisher.Published(events.SalePartiesNotifiedEvent)
	require.Len(t, notified, 1)
	var data PartiesNotifiedData
	require.NoError(t, notified[0].UnmarshalPayload(&data))
	assert.Equal(t, "maria@example.com", data.BuyerEmail)
	assert.Len(t, f.publisher.Published(events.SaleCompletedEvent), 1)
	assert.Len(t, f.publisher.Published(events.SagaCompletedEvent), 1)

	// confirming again returns the completed sale untouched
	again, err := NewConfirmDelivery(f.orchestrator).Execute(context.Background(), &ConfirmDeliveryCommand{SaleID: sale.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCompleted, again.Status)
	assert.Len(t, f.publisher.Published(events.SaleCompletedEvent), 1)
}

func TestConfirmDelivery_RequiresApprovedPayment(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-5001")

	_, err := NewConfirmDelivery(f.orchestrator).Execute(context.Background(), &ConfirmDeliveryCommand{SaleID: sale.ID.String()})

	assert.ErrorIs(t, err, domain.ErrInvalidSaleState)
	assert.Equal(t, domain.VehicleStatusReserved, f.vehicleStatus(t))
}

func TestCancelSale_ReleasesReservation(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-6001")
	f.gateway.EXPECT().CancelPayment(mock.Anything, "mp-6001").
		Return(&domain.GatewayPayment{ID: "mp-6001", Status: "cancelled"}, nil).Once()

	cancelled, err := NewCancelSale(f.orchestrator).Execute(context.Background(), &CancelSaleCommand{
		SaleID: sale.ID.String(),
		Reason: "buyer gave up",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.PaymentStatusCancelled, cancelled.Payment.Status)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))

	s := f.saga(t, sale.ID)
	assert.Equal(t, saga.StatusFailed, s.Status)
	assert.Equal(t, "sale cancelled: buyer gave up", s.LastError)
	assert.Len(t, f.publisher.Published(events.SaleCancelledEvent), 1)

	// notifications for a cancelled sale are ignored
	result := f.confirm(t, "mp-6001", "APPROVED")
	assert.Equal(t, domain.SaleStatusCancelled.String(), result.SaleStatus)

	_, err = NewCancelSale(f.orchestrator).Execute(context.Background(), &CancelSaleCommand{SaleID: sale.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidSaleState)
}

func TestRecoverSagas(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	ctx := context.Background()
	stale := testNow.Add(-time.Hour)

	// reserved the vehicle, then the process died
	abandoned := domain.NewSagaInstance(f.vehicle.ID, f.buyer.ID, f.vehicle.Price, domain.PaymentMethodPix, stale)
	abandoned = abandoned.WithBuyer(f.buyer, stale).Advance(stale)
	abandoned = abandoned.WithVehicle(f.vehicle, stale).Advance(stale)
	reserved := f.vehicle.WithStatus(domain.VehicleStatusReserved, stale)
	require.NoError(t, f.vehicles.Update(ctx, &reserved, domain.VehicleStatusAvailable))
	abandoned = abandoned.WithVehicle(reserved, stale).Advance(stale)
	require.NoError(t, f.sagas.Save(ctx, &abandoned))

	// crashed half way through its compensation
	second := newTestVehicle(domain.VehicleStatusReserved)
	require.NoError(t, f.vehicles.Save(ctx, &second))
	interrupted := domain.NewSagaInstance(second.ID, f.buyer.ID, second.Price, domain.PaymentMethodBoleto, stale)
	interrupted = interrupted.WithBuyer(f.buyer, stale).Advance(stale)
	interrupted = interrupted.WithVehicle(second, stale).Advance(stale).Advance(stale)
	interrupted = interrupted.MarkFailed("gateway down", stale).BeginCompensation(stale)
	require.NoError(t, f.sagas.Save(ctx, &interrupted))

	// out of attempts
	exhausted := domain.NewSagaInstance(models.GenerateUUID(), f.buyer.ID, second.Price, domain.PaymentMethodPix, stale)
	exhausted = exhausted.Advance(stale).MarkFailed("boom", stale).BeginCompensation(stale)
	exhausted.RetryCount = exhausted.MaxRetries
	require.NoError(t, f.sagas.Save(ctx, &exhausted))

	// updated recently, left alone
	fresh := domain.NewSagaInstance(models.GenerateUUID(), f.buyer.ID, second.Price, domain.PaymentMethodPix, testNow)
	require.NoError(t, f.sagas.Save(ctx, &fresh))

	report, err := NewRecoverSagas(f.orchestrator, 15*time.Minute).Execute(ctx)

	require.NoError(t, err)
	assert.Equal(t, &RecoveryReport{Scanned: 4, Compensated: 1, TimedOut: 1, Exhausted: 1, Skipped: 1}, report)

	recovered, err := f.sagas.FindByID(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusFailed, recovered.Status)
	assert.Equal(t, sagaTimedOut, recovered.LastError)
	assert.Equal(t, 1, recovered.RetryCount)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t))

	resumed, err := f.sagas.FindByID(ctx, interrupted.ID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusFailed, resumed.Status)
	assert.Empty(t, resumed.CompletedSteps)
	releasedSecond, err := f.vehicles.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusAvailable, releasedSecond.Status)

	gaveUp, err := f.sagas.FindByID(ctx, exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusFailed, gaveUp.Status)
	assert.Equal(t, recoveryAttemptsExhausted, gaveUp.LastError)

	untouched, err := f.sagas.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusStarted, untouched.Status)
	assert.Zero(t, untouched.RetryCount)

	active, err := f.sagas.FindActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGetSale(t *testing.T) {
	f := newSaleFixture(t, domain.VehicleStatusAvailable)
	sale := f.startPendingSale(t, "mp-7001")
	uc := NewGetSale(f.sales)

	found, err := uc.Execute(context.Background(), &GetSaleQuery{SaleID: sale.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, sale.ID, found.ID)

	_, err = uc.Execute(context.Background(), &GetSaleQuery{SaleID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)

	_, err = uc.Execute(context.Background(), &GetSaleQuery{SaleID: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid sale ID")
}
