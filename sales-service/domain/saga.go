package domain

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

// SagaStep is one step of the sale saga
type SagaStep string

const (
	StepValidateBuyer     SagaStep = "validate_buyer"
	StepValidateVehicle   SagaStep = "validate_vehicle"
	StepReserveVehicle    SagaStep = "reserve_vehicle"
	StepCreatePayment     SagaStep = "create_payment"
	StepUpdateInventory   SagaStep = "update_inventory"
	StepGenerateDocuments SagaStep = "generate_documents"
	StepNotifyParties     SagaStep = "notify_parties"
)

func (s SagaStep) String() string {
	return string(s)
}

// SaleSagaSteps is the fixed order in which a sale runs
var SaleSagaSteps = []SagaStep{
	StepValidateBuyer,
	StepValidateVehicle,
	StepReserveVehicle,
	StepCreatePayment,
	StepUpdateInventory,
	StepGenerateDocuments,
	StepNotifyParties,
}

// PaymentStepsCount is the number of steps run before the sale is stored
const PaymentStepsCount = 4

const DefaultMaxRetries = 3

// CompensationData holds what each completed step produced and its compensation needs
type CompensationData struct {
	Buyer   *Buyer   `json:"buyer,omitempty"`
	Vehicle *Vehicle `json:"vehicle,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
	Sale    *Sale    `json:"sale,omitempty"`
}

func (c CompensationData) clone() CompensationData {
	out := CompensationData{}
	if c.Buyer != nil {
		buyer := *c.Buyer
		buyer.Documents = append([]Document(nil), c.Buyer.Documents...)
		out.Buyer = &buyer
	}
	if c.Vehicle != nil {
		vehicle := *c.Vehicle
		out.Vehicle = &vehicle
	}
	if c.Payment != nil {
		payment := *c.Payment
		out.Payment = &payment
	}
	out.Sale = c.Sale.Clone()
	return out
}

// SagaInstance is a snapshot of a sale saga. Transitions never modify the
// receiver; they return the next snapshot.
type SagaInstance struct {
	ID             models.ID
	SaleID         models.ID
	VehicleID      models.ID
	BuyerID        models.ID
	Price          models.Money
	PaymentMethod  PaymentMethod
	PaymentDetails *PaymentDetails
	Timestamps     models.Timestamps
	Status         saga.Status
	CurrentStep    int
	NextStep       int
	Steps          []SagaStep
	CompletedSteps []int
	FailedSteps    map[int]string
	LastError      string
	Compensation   CompensationData
	RetryCount     int
	MaxRetries     int
}

// NewSagaInstance starts a saga for one sale
func NewSagaInstance(vehicleID, buyerID models.ID, price models.Money, method PaymentMethod, now time.Time) SagaInstance {
	return SagaInstance{
		ID:             models.GenerateUUID(),
		SaleID:         models.GenerateUUID(),
		VehicleID:      vehicleID,
		BuyerID:        buyerID,
		Price:          price,
		PaymentMethod:  method,
		Timestamps:     models.NewTimestamps(now),
		Status:         saga.StatusStarted,
		CurrentStep:    0,
		NextStep:       1,
		Steps:          append([]SagaStep(nil), SaleSagaSteps...),
		CompletedSteps: []int{},
		FailedSteps:    map[int]string{},
		MaxRetries:     DefaultMaxRetries,
	}
}

// Clone returns a deep copy of the snapshot
func (s SagaInstance) Clone() SagaInstance {
	out := s
	out.Steps = append([]SagaStep(nil), s.Steps...)
	out.CompletedSteps = append([]int{}, s.CompletedSteps...)
	out.FailedSteps = make(map[int]string, len(s.FailedSteps))
	for k, v := range s.FailedSteps {
		out.FailedSteps[k] = v
	}
	if s.PaymentDetails != nil {
		details := *s.PaymentDetails
		out.PaymentDetails = &details
	}
	out.Compensation = s.Compensation.clone()
	return out
}

func (s SagaInstance) touched(now time.Time) SagaInstance {
	out := s.Clone()
	out.Timestamps = out.Timestamps.Touch(now)
	return out
}

// Step returns the step at index, false when it is out of range
func (s SagaInstance) Step(index int) (SagaStep, bool) {
	if index < 0 || index >= len(s.Steps) {
		return "", false
	}
	return s.Steps[index], true
}

// CurrentStepName returns the step the saga is about to run
func (s SagaInstance) CurrentStepName() (SagaStep, bool) {
	return s.Step(s.CurrentStep)
}

// Advance records the current step as completed and moves to the next one
func (s SagaInstance) Advance(now time.Time) SagaInstance {
	out := s.touched(now)
	out.CompletedSteps = append(out.CompletedSteps, s.CurrentStep)
	out.CurrentStep = s.NextStep
	out.NextStep = s.NextStep + 1

	switch {
	case out.CurrentStep >= len(out.Steps):
		out.CurrentStep = len(out.Steps)
		out.Status = saga.StatusCompleted
	case out.Status == saga.StatusStarted:
		out.Status = saga.StatusInProgress
	}
	return out
}

// MarkFailed records err against the current step
func (s SagaInstance) MarkFailed(err string, now time.Time) SagaInstance {
	return s.MarkFailedAt(s.CurrentStep, err, now)
}

// MarkFailedAt records err against step, which may be behind CurrentStep when
// the result of a completed step could not be stored
func (s SagaInstance) MarkFailedAt(step int, err string, now time.Time) SagaInstance {
	out := s.touched(now)
	out.FailedSteps[step] = err
	out.LastError = err
	out.Status = saga.StatusFailed
	return out
}

// BeginCompensation reverses the completed steps so they are undone newest first
func (s SagaInstance) BeginCompensation(now time.Time) SagaInstance {
	out := s.touched(now)
	out.Status = saga.StatusCompensating
	for i, j := 0, len(out.CompletedSteps)-1; i < j; i, j = i+1, j-1 {
		out.CompletedSteps[i], out.CompletedSteps[j] = out.CompletedSteps[j], out.CompletedSteps[i]
	}
	return out
}

// NextCompensationStep returns the next completed step to undo
func (s SagaInstance) NextCompensationStep() (int, bool) {
	if len(s.CompletedSteps) == 0 {
		return 0, false
	}
	return s.CompletedSteps[0], true
}

// CompleteCompensationStep drops step from the completed list. The saga is
// FAILED once nothing is left to undo.
func (s SagaInstance) CompleteCompensationStep(step int, now time.Time) SagaInstance {
	out := s.touched(now)
	remaining := out.CompletedSteps[:0]
	for _, completed := range out.CompletedSteps {
		if completed != step {
			remaining = append(remaining, completed)
		}
	}
	out.CompletedSteps = remaining

	if len(out.CompletedSteps) == 0 {
		out.Status = saga.StatusFailed
	}
	return out
}

// EndCompensation closes a compensation that has nothing left to undo
func (s SagaInstance) EndCompensation(now time.Time) SagaInstance {
	if s.Status != saga.StatusCompensating || len(s.CompletedSteps) > 0 {
		return s
	}
	out := s.touched(now)
	out.Status = saga.StatusFailed
	return out
}

// FailCompensation stops the compensation for good
func (s SagaInstance) FailCompensation(err string, now time.Time) SagaInstance {
	out := s.touched(now)
	out.Status = saga.StatusFailed
	out.LastError = err
	return out
}

// IncrementRetry counts one recovery attempt
func (s SagaInstance) IncrementRetry(now time.Time) SagaInstance {
	out := s.touched(now)
	out.RetryCount++
	return out
}

// RetriesExhausted reports whether recovery should give up on the saga
func (s SagaInstance) RetriesExhausted() bool {
	return s.RetryCount >= s.MaxRetries
}

func (s SagaInstance) WithBuyer(buyer Buyer, now time.Time) SagaInstance {
	out := s.touched(now)
	buyer.Documents = append([]Document(nil), buyer.Documents...)
	out.Compensation.Buyer = &buyer
	return out
}

func (s SagaInstance) WithVehicle(vehicle Vehicle, now time.Time) SagaInstance {
	out := s.touched(now)
	out.Compensation.Vehicle = &vehicle
	return out
}

func (s SagaInstance) WithPayment(payment Payment, now time.Time) SagaInstance {
	out := s.touched(now)
	out.Compensation.Payment = &payment
	details := payment.Details
	out.PaymentDetails = &details
	return out
}

func (s SagaInstance) WithSale(sale *Sale, now time.Time) SagaInstance {
	out := s.touched(now)
	out.Compensation.Sale = sale.Clone()
	return out
}

// Validate checks the structural invariants of a snapshot
func (s SagaInstance) Validate() error {
	if s.ID.IsZero() {
		return errors.New("saga id is required")
	}
	if _, ok := saga.ParseStatus(s.Status.String()); !ok {
		return errors.Errorf("unknown saga status %q", s.Status)
	}
	if s.CurrentStep < 0 || s.CurrentStep > len(s.Steps) {
		return errors.Errorf("current step %d out of range [0, %d]", s.CurrentStep, len(s.Steps))
	}
	for _, step := range s.CompletedSteps {
		if step < 0 || step >= len(s.Steps) {
			return errors.Errorf("completed step %d out of range [0, %d)", step, len(s.Steps))
		}
	}
	if s.Status == saga.StatusCompleted && s.CurrentStep != len(s.Steps) {
		return errors.Errorf("completed saga stopped at step %d of %d", s.CurrentStep, len(s.Steps))
	}
	return nil
}

// SagaRepository interface
type SagaRepository interface {
	FindByID(ctx context.Context, id models.ID) (*SagaInstance, error)
	FindBySaleID(ctx context.Context, saleID models.ID) (*SagaInstance, error)
	// Save inserts or replaces the snapshot
	Save(ctx context.Context, s *SagaInstance) error
	AddEvent(ctx context.Context, event SagaEvent) error
	// FindActive returns sagas in STARTED, IN_PROGRESS or COMPENSATING
	FindActive(ctx context.Context) ([]*SagaInstance, error)
}

// ConfirmationLock guards a payment notification against concurrent duplicates
type ConfirmationLock interface {
	Acquire(ctx context.Context, key string) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}
