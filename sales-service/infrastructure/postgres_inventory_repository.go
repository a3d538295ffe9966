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

var (
	_ domain.VehicleRepository = (*PostgresVehicleRepository)(nil)
	_ domain.BuyerRepository   = (*PostgresBuyerRepository)(nil)
)

// PostgresVehicleRepository implements VehicleRepository using PostgreSQL
type PostgresVehicleRepository struct {
	db *sqlx.DB
}

// NewPostgresVehicleRepository creates a new PostgresVehicleRepository
func NewPostgresVehicleRepository(db *sqlx.DB) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{db: db}
}

type postgresVehicle struct {
	ID            string    `db:"id"`
	Brand         string    `db:"brand"`
	Model         string    `db:"model"`
	Year          int       `db:"year"`
	Color         string    `db:"color"`
	PriceAmount   int64     `db:"price_amount"`
	PriceCurrency string    `db:"price_currency"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// FindByID finds a vehicle by ID
func (r *PostgresVehicleRepository) FindByID(ctx context.Context, id models.ID) (*domain.Vehicle, error) {
	query := `
		SELECT id, brand, model, year, color, price_amount, price_currency,
			   status, created_at, updated_at
		FROM vehicles
		WHERE id = $1`

	var pgVehicle postgresVehicle
	if err := r.db.GetContext(ctx, &pgVehicle, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find vehicle")
	}

	status, err := domain.NewVehicleStatus(pgVehicle.Status)
	if err != nil {
		return nil, err
	}

	return &domain.Vehicle{
		ID:     models.ID(pgVehicle.ID),
		Brand:  pgVehicle.Brand,
		Model:  pgVehicle.Model,
		Year:   pgVehicle.Year,
		Color:  pgVehicle.Color,
		Price:  models.NewMoney(pgVehicle.PriceAmount, pgVehicle.PriceCurrency),
		Status: status,
		Timestamps: models.Timestamps{
			CreatedAt: pgVehicle.CreatedAt,
			UpdatedAt: pgVehicle.UpdatedAt,
		},
	}, nil
}

// Update moves the vehicle to its new status only while the row still holds
// expected. Two reservations of the same vehicle cannot both match.
func (r *PostgresVehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle, expected domain.VehicleStatus) error {
	query := `
		UPDATE vehicles
		SET status = :status, updated_at = :updated_at
		WHERE id = :id AND status = :expected_status`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              vehicle.ID.String(),
		"status":          vehicle.Status.String(),
		"updated_at":      vehicle.Timestamps.UpdatedAt,
		"expected_status": expected.String(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to update vehicle")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if rows == 0 {
		return errors.Wrapf(domain.ErrReservationConflict, "vehicle %s is no longer %s", vehicle.ID, expected)
	}
	return nil
}

// PostgresBuyerRepository implements BuyerRepository using PostgreSQL
type PostgresBuyerRepository struct {
	db *sqlx.DB
}

// NewPostgresBuyerRepository creates a new PostgresBuyerRepository
func NewPostgresBuyerRepository(db *sqlx.DB) *PostgresBuyerRepository {
	return &PostgresBuyerRepository{db: db}
}

type postgresBuyer struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Documents []byte    `db:"documents"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FindByID finds a buyer by ID
func (r *PostgresBuyerRepository) FindByID(ctx context.Context, id models.ID) (*domain.Buyer, error) {
	query := `
		SELECT id, name, email, phone, documents, created_at, updated_at
		FROM buyers
		WHERE id = $1`

	var pgBuyer postgresBuyer
	if err := r.db.GetContext(ctx, &pgBuyer, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find buyer")
	}

	documents := []domain.Document{}
	if len(pgBuyer.Documents) > 0 {
		if err := json.Unmarshal(pgBuyer.Documents, &documents); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal buyer documents")
		}
	}

	return &domain.Buyer{
		ID:        models.ID(pgBuyer.ID),
		Name:      pgBuyer.Name,
		Email:     pgBuyer.Email,
		Phone:     pgBuyer.Phone,
		Documents: documents,
		Timestamps: models.Timestamps{
			CreatedAt: pgBuyer.CreatedAt,
			UpdatedAt: pgBuyer.UpdatedAt,
		},
	}, nil
}
