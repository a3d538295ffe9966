package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/models"
)

var _ domain.SaleRepository = (*PostgresSaleRepository)(nil)

// PostgresSaleRepository implements SaleRepository using PostgreSQL. The sale
// history lives in sale_events, one row per entry.
type PostgresSaleRepository struct {
	db *sqlx.DB
}

// NewPostgresSaleRepository creates a new PostgresSaleRepository
func NewPostgresSaleRepository(db *sqlx.DB) *PostgresSaleRepository {
	return &PostgresSaleRepository{db: db}
}

type postgresSale struct {
	ID              string         `db:"id"`
	VehicleID       string         `db:"vehicle_id"`
	BuyerID         string         `db:"buyer_id"`
	Status          string         `db:"status"`
	PaymentID       string         `db:"payment_id"`
	PaymentAmount   int64          `db:"payment_amount"`
	PaymentCurrency string         `db:"payment_currency"`
	PaymentMethod   string         `db:"payment_method"`
	PaymentStatus   string         `db:"payment_status"`
	TransactionID   sql.NullString `db:"transaction_id"`
	PaymentDetails  []byte         `db:"payment_details"`
	PaymentDate     *time.Time     `db:"payment_date"`
	FailureReason   string         `db:"failure_reason"`
	Notes           string         `db:"notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type postgresSaleEvent struct {
	ID        string    `db:"id"`
	SaleID    string    `db:"sale_id"`
	Position  int       `db:"position"`
	EventType string    `db:"event_type"`
	Payload   string    `db:"payload"`
	Timestamp time.Time `db:"timestamp"`
}

const saleColumns = `
	id, vehicle_id, buyer_id, status, payment_id, payment_amount,
	payment_currency, payment_method, payment_status, transaction_id,
	payment_details, payment_date, failure_reason, notes, created_at, updated_at`

// Save inserts a new sale with its history
func (r *PostgresSaleRepository) Save(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `
		) VALUES (
			:id, :vehicle_id, :buyer_id, :status, :payment_id, :payment_amount,
			:payment_currency, :payment_method, :payment_status, :transaction_id,
			:payment_details, :payment_date, :failure_reason, :notes, :created_at, :updated_at
		)`

	return r.write(ctx, sale, func(tx *sqlx.Tx, pgSale *postgresSale) error {
		if _, err := tx.NamedExecContext(ctx, query, pgSale); err != nil {
			return errors.Wrap(err, "failed to insert sale")
		}
		return nil
	})
}

// Update replaces the stored sale and appends the history entries it does not have yet
func (r *PostgresSaleRepository) Update(ctx context.Context, sale *domain.Sale) error {
	query := `
		UPDATE sales SET
			status = :status,
			payment_status = :payment_status,
			transaction_id = :transaction_id,
			payment_details = :payment_details,
			payment_date = :payment_date,
			failure_reason = :failure_reason,
			notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`

	return r.write(ctx, sale, func(tx *sqlx.Tx, pgSale *postgresSale) error {
		result, err := tx.NamedExecContext(ctx, query, pgSale)
		if err != nil {
			return errors.Wrap(err, "failed to update sale")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if rows == 0 {
			return domain.ErrSaleNotFound
		}
		return nil
	})
}

func (r *PostgresSaleRepository) write(ctx context.Context, sale *domain.Sale, writeSale func(*sqlx.Tx, *postgresSale) error) error {
	pgSale, err := r.toPostgres(sale)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := writeSale(tx, pgSale); err != nil {
		return err
	}

	eventQuery := `
		INSERT INTO sale_events (id, sale_id, position, event_type, payload, timestamp)
		VALUES (:id, :sale_id, :position, :event_type, :payload, :timestamp)
		ON CONFLICT (id) DO NOTHING`

	for i, event := range sale.Events {
		pgEvent := postgresSaleEvent{
			ID:        event.ID.String(),
			SaleID:    sale.ID.String(),
			Position:  i,
			EventType: event.EventType.String(),
			Payload:   event.Payload,
			Timestamp: event.Timestamp,
		}
		if _, err := tx.NamedExecContext(ctx, eventQuery, pgEvent); err != nil {
			return errors.Wrap(err, "failed to insert sale event")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit sale")
}

// FindByID finds a sale by ID
func (r *PostgresSaleRepository) FindByID(ctx context.Context, id models.ID) (*domain.Sale, error) {
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id.String())
}

// FindByTransactionID finds the sale paid by a gateway transaction
func (r *PostgresSaleRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Sale, error) {
	return r.findOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE transaction_id = $1`, transactionID)
}

func (r *PostgresSaleRepository) findOne(ctx context.Context, query string, arg string) (*domain.Sale, error) {
	var pgSale postgresSale
	if err := r.db.GetContext(ctx, &pgSale, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find sale")
	}

	var pgEvents []postgresSaleEvent
	err := r.db.SelectContext(ctx, &pgEvents, `
		SELECT id, sale_id, position, event_type, payload, timestamp
		FROM sale_events
		WHERE sale_id = $1
		ORDER BY position ASC`, pgSale.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find sale events")
	}

	return r.toDomain(&pgSale, pgEvents)
}

func (r *PostgresSaleRepository) toPostgres(sale *domain.Sale) (*postgresSale, error) {
	details, err := json.Marshal(sale.Payment.Details)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payment details")
	}

	return &postgresSale{
		ID:              sale.ID.String(),
		VehicleID:       sale.VehicleID.String(),
		BuyerID:         sale.BuyerID.String(),
		Status:          sale.Status.String(),
		PaymentID:       sale.Payment.ID.String(),
		PaymentAmount:   sale.Payment.Amount.Amount,
		PaymentCurrency: sale.Payment.Amount.Currency,
		PaymentMethod:   sale.Payment.Method.String(),
		PaymentStatus:   sale.Payment.Status.String(),
		TransactionID: sql.NullString{
			String: sale.Payment.TransactionID,
			Valid:  sale.Payment.TransactionID != "",
		},
		PaymentDetails: details,
		PaymentDate:    sale.Payment.PaymentDate,
		FailureReason:  sale.Payment.FailureReason,
		Notes:          sale.Notes,
		CreatedAt:      sale.Timestamps.CreatedAt,
		UpdatedAt:      sale.Timestamps.UpdatedAt,
	}, nil
}

func (r *PostgresSaleRepository) toDomain(pgSale *postgresSale, pgEvents []postgresSaleEvent) (*domain.Sale, error) {
	var details domain.PaymentDetails
	if len(pgSale.PaymentDetails) > 0 {
		if err := json.Unmarshal(pgSale.PaymentDetails, &details); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal payment details")
		}
	}

	saleEvents := make([]domain.SaleEvent, len(pgEvents))
	for i, pgEvent := range pgEvents {
		saleEvents[i] = domain.SaleEvent{
			ID:        models.ID(pgEvent.ID),
			SaleID:    models.ID(pgEvent.SaleID),
			EventType: domain.SaleEventType(pgEvent.EventType),
			Payload:   pgEvent.Payload,
			Timestamp: pgEvent.Timestamp,
		}
	}

	return &domain.Sale{
		ID:        models.ID(pgSale.ID),
		VehicleID: models.ID(pgSale.VehicleID),
		BuyerID:   models.ID(pgSale.BuyerID),
		Status:    domain.SaleStatus(pgSale.Status),
		Payment: domain.Payment{
			ID:            models.ID(pgSale.PaymentID),
			Amount:        models.NewMoney(pgSale.PaymentAmount, pgSale.PaymentCurrency),
			Method:        domain.PaymentMethod(pgSale.PaymentMethod),
			Status:        domain.PaymentStatus(pgSale.PaymentStatus),
			TransactionID: pgSale.TransactionID.String,
			Details:       details,
			PaymentDate:   pgSale.PaymentDate,
			FailureReason: pgSale.FailureReason,
			Timestamps: models.Timestamps{
				CreatedAt: pgSale.CreatedAt,
				UpdatedAt: pgSale.UpdatedAt,
			},
		},
		Notes:  pgSale.Notes,
		Events: saleEvents,
		Timestamps: models.Timestamps{
			CreatedAt: pgSale.CreatedAt,
			UpdatedAt: pgSale.UpdatedAt,
		},
	}, nil
}
