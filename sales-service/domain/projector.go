package domain

import (
	"fmt"
	"sort"

	"github.com/vehiclemarket/sales-system/shared/saga"
)

// ProjectSaleEvents derives the sale history from a saga snapshot. It has no
// side effects and returns the same events for the same snapshot.
func ProjectSaleEvents(s SagaInstance) []SaleEvent {
	at := s.Timestamps.UpdatedAt
	projected := make([]SaleEvent, 0, 6)

	emit := func(eventType SaleEventType, payload string) {
		projected = append(projected, newProjectedSaleEvent(s.SaleID, len(projected), eventType, payload, at))
	}

	emit(SaleEventCreated, fmt.Sprintf("Sale created for vehicle %s by buyer %s", s.VehicleID, s.BuyerID))

	// compensation reverses the list, indexes ascend in execution order
	completed := append([]int(nil), s.CompletedSteps...)
	sort.Ints(completed)

	for _, index := range completed {
		step, ok := s.Step(index)
		if !ok {
			continue
		}

		switch step {
		case StepReserveVehicle:
			emit(SaleEventVehicleReserved, fmt.Sprintf("Vehicle %s reserved for sale", s.VehicleID))
		case StepCreatePayment:
			emit(SaleEventPaymentInitiated, fmt.Sprintf("Payment initiated with method %s", s.PaymentMethod))
			emitPaymentOutcome(s.Compensation.Payment, emit)
		}
	}

	switch s.Status {
	case saga.StatusCompleted:
		emit(SaleEventCompleted, "Sale process completed successfully")
	case saga.StatusFailed:
		emit(SaleEventCancelled, "Sale cancelled: "+s.LastError)
	}

	return projected
}

func emitPaymentOutcome(payment *Payment, emit func(SaleEventType, string)) {
	switch {
	case payment == nil:
		emit(SaleEventPaymentPending, PaymentFailureDescription(PaymentStatusPending))
	case payment.Status == PaymentStatusApproved:
		emit(SaleEventPaymentProcessed, "Payment processed successfully with ID: "+payment.TransactionID)
	case payment.Status.IsFailure():
		emit(SaleEventPaymentFailed, PaymentFailureDescription(payment.Status))
	default:
		emit(SaleEventPaymentPending, PaymentFailureDescription(PaymentStatusPending))
	}
}
