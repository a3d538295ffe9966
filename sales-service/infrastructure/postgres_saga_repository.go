package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

var _ domain.SagaRepository = (*PostgresSagaRepository)(nil)

// PostgresSagaRepository stores saga snapshots in sale_sagas and writes the
// audit log to the event stream
type PostgresSagaRepository struct {
	db       *sqlx.DB
	eventLog events.EventLog
}

// NewPostgresSagaRepository creates a new PostgresSagaRepository
func NewPostgresSagaRepository(db *sqlx.DB, eventLog events.EventLog) *PostgresSagaRepository {
	return &PostgresSagaRepository{db: db, eventLog: eventLog}
}

type postgresSaga struct {
	ID               string    `db:"id"`
	SaleID           string    `db:"sale_id"`
	VehicleID        string    `db:"vehicle_id"`
	BuyerID          string    `db:"buyer_id"`
	PriceAmount      int64     `db:"price_amount"`
	PriceCurrency    string    `db:"price_currency"`
	PaymentMethod    string    `db:"payment_method"`
	PaymentDetails   []byte    `db:"payment_details"`
	Status           string    `db:"status"`
	CurrentStep      int       `db:"current_step"`
	NextStep         int       `db:"next_step"`
	Steps            []byte    `db:"steps"`
	CompletedSteps   []byte    `db:"completed_steps"`
	FailedSteps      []byte    `db:"failed_steps"`
	LastError        string    `db:"last_error"`
	CompensationData []byte    `db:"compensation_data"`
	RetryCount       int       `db:"retry_count"`
	MaxRetries       int       `db:"max_retries"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

const sagaColumns = `
	id, sale_id, vehicle_id, buyer_id, price_amount, price_currency,
	payment_method, payment_details, status, current_step, next_step,
	steps, completed_steps, failed_steps, last_error, compensation_data,
	retry_count, max_retries, created_at, updated_at`

// Save inserts the snapshot or replaces the stored one
func (r *PostgresSagaRepository) Save(ctx context.Context, s *domain.SagaInstance) error {
	if err := s.Validate(); err != nil {
		return errors.Wrap(err, "invalid saga")
	}

	query := `
		INSERT INTO sale_sagas (` + sagaColumns + `
		) VALUES (
			:id, :sale_id, :vehicle_id, :buyer_id, :price_amount, :price_currency,
			:payment_method, :payment_details, :status, :current_step, :next_step,
			:steps, :completed_steps, :failed_steps, :last_error, :compensation_data,
			:retry_count, :max_retries, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			payment_details = EXCLUDED.payment_details,
			status = EXCLUDED.status,
			current_step = EXCLUDED.current_step,
			next_step = EXCLUDED.next_step,
			completed_steps = EXCLUDED.completed_steps,
			failed_steps = EXCLUDED.failed_steps,
			last_error = EXCLUDED.last_error,
			compensation_data = EXCLUDED.compensation_data,
			retry_count = EXCLUDED.retry_count,
			updated_at = EXCLUDED.updated_at`

	pgSaga, err := r.toPostgres(s)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, query, pgSaga); err != nil {
		return errors.Wrap(err, "failed to save saga")
	}
	return nil
}

// FindByID finds a saga by ID
func (r *PostgresSagaRepository) FindByID(ctx context.Context, id models.ID) (*domain.SagaInstance, error) {
	return r.findOne(ctx, `SELECT `+sagaColumns+` FROM sale_sagas WHERE id = $1`, id)
}

// FindBySaleID finds the saga that created a sale
func (r *PostgresSagaRepository) FindBySaleID(ctx context.Context, saleID models.ID) (*domain.SagaInstance, error) {
	return r.findOne(ctx, `SELECT `+sagaColumns+` FROM sale_sagas WHERE sale_id = $1`, saleID)
}

func (r *PostgresSagaRepository) findOne(ctx context.Context, query string, id models.ID) (*domain.SagaInstance, error) {
	var pgSaga postgresSaga
	if err := r.db.GetContext(ctx, &pgSaga, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find saga")
	}
	return r.toDomain(&pgSaga)
}

// FindActive returns the sagas recovery may still have to move, oldest first
func (r *PostgresSagaRepository) FindActive(ctx context.Context) ([]*domain.SagaInstance, error) {
	statuses := make([]string, 0, len(saga.ActiveStatuses()))
	for _, status := range saga.ActiveStatuses() {
		statuses = append(statuses, status.String())
	}

	query := `SELECT ` + sagaColumns + ` FROM sale_sagas WHERE status = ANY($1) ORDER BY created_at ASC`

	var pgSagas []postgresSaga
	if err := r.db.SelectContext(ctx, &pgSagas, query, pq.Array(statuses)); err != nil {
		return nil, errors.Wrap(err, "failed to find active sagas")
	}

	sagas := make([]*domain.SagaInstance, len(pgSagas))
	for i := range pgSagas {
		s, err := r.toDomain(&pgSagas[i])
		if err != nil {
			return nil, err
		}
		sagas[i] = s
	}
	return sagas, nil
}

// AddEvent appends an audit entry to the saga's stream
func (r *PostgresSagaRepository) AddEvent(ctx context.Context, event domain.SagaEvent) error {
	if err := r.eventLog.Append(ctx, event.ToEvent()); err != nil {
		return errors.Wrapf(err, "failed to add %s event to saga %s", event.Type, event.SagaID)
	}
	return nil
}

func (r *PostgresSagaRepository) toPostgres(s *domain.SagaInstance) (*postgresSaga, error) {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal saga steps")
	}
	completed, err := json.Marshal(s.CompletedSteps)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal completed steps")
	}
	failed, err := json.Marshal(s.FailedSteps)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal failed steps")
	}
	compensation, err := json.Marshal(s.Compensation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal compensation data")
	}

	var details []byte
	if s.PaymentDetails != nil {
		if details, err = json.Marshal(s.PaymentDetails); err != nil {
			return nil, errors.Wrap(err, "failed to marshal payment details")
		}
	}

	return &postgresSaga{
		ID:               s.ID.String(),
		SaleID:           s.SaleID.String(),
		VehicleID:        s.VehicleID.String(),
		BuyerID:          s.BuyerID.String(),
		PriceAmount:      s.Price.Amount,
		PriceCurrency:    s.Price.Currency,
		PaymentMethod:    s.PaymentMethod.String(),
		PaymentDetails:   details,
		Status:           s.Status.String(),
		CurrentStep:      s.CurrentStep,
		NextStep:         s.NextStep,
		Steps:            steps,
		CompletedSteps:   completed,
		FailedSteps:      failed,
		LastError:        s.LastError,
		CompensationData: compensation,
		RetryCount:       s.RetryCount,
		MaxRetries:       s.MaxRetries,
		CreatedAt:        s.Timestamps.CreatedAt,
		UpdatedAt:        s.Timestamps.UpdatedAt,
	}, nil
}

func (r *PostgresSagaRepository) toDomain(pgSaga *postgresSaga) (*domain.SagaInstance, error) {
	status, ok := saga.ParseStatus(pgSaga.Status)
	if !ok {
		return nil, errors.Errorf("unknown saga status %q", pgSaga.Status)
	}
	method, err := domain.NewPaymentMethod(pgSaga.PaymentMethod)
	if err != nil {
		return nil, errors.Wrap(err, "invalid stored payment method")
	}

	s := &domain.SagaInstance{
		ID:             models.ID(pgSaga.ID),
		SaleID:         models.ID(pgSaga.SaleID),
		VehicleID:      models.ID(pgSaga.VehicleID),
		BuyerID:        models.ID(pgSaga.BuyerID),
		Price:          models.NewMoney(pgSaga.PriceAmount, pgSaga.PriceCurrency),
		PaymentMethod:  *method,
		Status:         status,
		CurrentStep:    pgSaga.CurrentStep,
		NextStep:       pgSaga.NextStep,
		CompletedSteps: []int{},
		FailedSteps:    map[int]string{},
		LastError:      pgSaga.LastError,
		RetryCount:     pgSaga.RetryCount,
		MaxRetries:     pgSaga.MaxRetries,
		Timestamps: models.Timestamps{
			CreatedAt: pgSaga.CreatedAt,
			UpdatedAt: pgSaga.UpdatedAt,
		},
	}

	if err := json.Unmarshal(pgSaga.Steps, &s.Steps); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal saga steps")
	}
	if err := json.Unmarshal(pgSaga.CompletedSteps, &s.CompletedSteps); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal completed steps")
	}
	if err := json.Unmarshal(pgSaga.FailedSteps, &s.FailedSteps); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal failed steps")
	}
	if err := json.Unmarshal(pgSaga.CompensationData, &s.Compensation); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal compensation data")
	}
	if len(pgSaga.PaymentDetails) > 0 {
		s.PaymentDetails = &domain.PaymentDetails{}
		if err := json.Unmarshal(pgSaga.PaymentDetails, s.PaymentDetails); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal payment details")
		}
	}

	return s, nil
}
