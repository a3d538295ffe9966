package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

var repoNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return sqlx.NewDb(db, "postgres"), mock
}

type recordingEventLog struct {
	appended []*events.Event
	err      error
}

func (l *recordingEventLog) Append(_ context.Context, event *events.Event) error {
	if l.err != nil {
		return l.err
	}
	l.appended = append(l.appended, event)
	return nil
}

func (l *recordingEventLog) GetEvents(context.Context, models.ID) ([]*events.Event, error) {
	return l.appended, nil
}

func testBuyer() domain.Buyer {
	return domain.Buyer{
		ID:         models.GenerateUUID(),
		Name:       "Maria Souza",
		Email:      "maria@example.com",
		Phone:      "+55 11 99999-0000",
		Documents:  []domain.Document{{Type: domain.DocumentTypeCPF, Number: "123.456.789-09"}},
		Timestamps: models.NewTimestamps(repoNow),
	}
}

func testVehicle(status domain.VehicleStatus) domain.Vehicle {
	return domain.Vehicle{
		ID:         models.GenerateUUID(),
		Brand:      "Toyota",
		Model:      "Corolla",
		Year:       2022,
		Color:      "silver",
		Price:      models.NewMoney(9500000, "BRL"),
		Status:     status,
		Timestamps: models.NewTimestamps(repoNow),
	}
}

func testSaga() domain.SagaInstance {
	vehicle := testVehicle(domain.VehicleStatusReserved)
	buyer := testBuyer()
	s := domain.NewSagaInstance(vehicle.ID, buyer.ID, vehicle.Price, domain.PaymentMethodPix, repoNow)
	s = s.WithBuyer(buyer, repoNow).Advance(repoNow)
	s = s.WithVehicle(vehicle, repoNow).Advance(repoNow)
	return s
}

var sagaRowColumns = []string{
	"id", "sale_id", "vehicle_id", "buyer_id", "price_amount", "price_currency",
	"payment_method", "payment_details", "status", "current_step", "next_step",
	"steps", "completed_steps", "failed_steps", "last_error", "compensation_data",
	"retry_count", "max_retries", "created_at", "updated_at",
}

func sagaRows(t *testing.T, sagas ...domain.SagaInstance) *sqlmock.Rows {
	t.Helper()

	repo := &PostgresSagaRepository{}
	rows := sqlmock.NewRows(sagaRowColumns)
	for i := range sagas {
		pg, err := repo.toPostgres(&sagas[i])
		require.NoError(t, err)
		rows.AddRow(pg.ID, pg.SaleID, pg.VehicleID, pg.BuyerID, pg.PriceAmount, pg.PriceCurrency,
			pg.PaymentMethod, pg.PaymentDetails, pg.Status, pg.CurrentStep, pg.NextStep,
			pg.Steps, pg.CompletedSteps, pg.FailedSteps, pg.LastError, pg.CompensationData,
			pg.RetryCount, pg.MaxRetries, pg.CreatedAt, pg.UpdatedAt)
	}
	return rows
}

func TestPostgresSagaRepository_Save(t *testing.T) {
	tests := []struct {
		name          string
		saga          func() domain.SagaInstance
		setupMock     func(sqlmock.Sqlmock)
		expectedError string
	}{
		{
			name: "upserts snapshot",
			saga: testSaga,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO sale_sagas .* ON CONFLICT \(id\) DO UPDATE SET`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "rejects snapshot without id",
			saga: func() domain.SagaInstance {
				s := testSaga()
				s.ID = ""
				return s
			},
			setupMock:     func(sqlmock.Sqlmock) {},
			expectedError: "invalid saga",
		},
		{
			name: "database error",
			saga: testSaga,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO sale_sagas").
					WillReturnError(errors.New("connection reset"))
			},
			expectedError: "failed to save saga",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			repo := NewPostgresSagaRepository(db, &recordingEventLog{})
			s := tt.saga()
			err := repo.Save(context.Background(), &s)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPostgresSagaRepository_FindByID(t *testing.T) {
	stored := testSaga()

	t.Run("maps stored row back to the snapshot", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM sale_sagas WHERE id = \$1`).
			WithArgs(stored.ID.String()).
			WillReturnRows(sagaRows(t, stored))

		found, err := NewPostgresSagaRepository(db, &recordingEventLog{}).FindByID(context.Background(), stored.ID)

		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, stored, *found)
	})

	t.Run("missing saga", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM sale_sagas WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(sagaRowColumns))

		found, err := NewPostgresSagaRepository(db, &recordingEventLog{}).FindByID(context.Background(), stored.ID)

		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPostgresSagaRepository_FindBySaleID(t *testing.T) {
	stored := testSaga()
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM sale_sagas WHERE sale_id = \$1`).
		WithArgs(stored.SaleID.String()).
		WillReturnRows(sagaRows(t, stored))

	found, err := NewPostgresSagaRepository(db, &recordingEventLog{}).FindBySaleID(context.Background(), stored.SaleID)

	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, stored.ID, found.ID)
}

func TestPostgresSagaRepository_FindActive(t *testing.T) {
	first := testSaga()
	compensating := testSaga().BeginCompensation(repoNow)

	db, mock := newMockDB(t)
	mock.ExpectQuery(`WHERE status = ANY\(\$1\) ORDER BY created_at ASC`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sagaRows(t, first, compensating))

	active, err := NewPostgresSagaRepository(db, &recordingEventLog{}).FindActive(context.Background())

	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, saga.StatusInProgress, active[0].Status)
	assert.Equal(t, saga.StatusCompensating, active[1].Status)
	assert.Equal(t, []int{1, 0}, active[1].CompletedSteps)
}

func TestPostgresSagaRepository_AddEvent(t *testing.T) {
	s := testSaga()
	event := domain.NewSagaEvent(s, saga.EventStepFailed, domain.StepReserveVehicle, repoNow).WithError("boom")

	t.Run("appends to saga stream", func(t *testing.T) {
		log := &recordingEventLog{}
		repo := NewPostgresSagaRepository(nil, log)

		require.NoError(t, repo.AddEvent(context.Background(), event))
		require.Len(t, log.appended, 1)
		assert.Equal(t, s.ID, log.appended[0].AggregateID)
		assert.Equal(t, s.SaleID, log.appended[0].CorrelationID)
		assert.Equal(t, "saga.step.failed", log.appended[0].EventType)
	})

	t.Run("append failure", func(t *testing.T) {
		repo := NewPostgresSagaRepository(nil, &recordingEventLog{err: errors.New("disk full")})

		err := repo.AddEvent(context.Background(), event)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to add saga.step.failed event")
	})
}

func testSale() *domain.Sale {
	saleID := models.GenerateUUID()
	return &domain.Sale{
		ID:        saleID,
		VehicleID: models.GenerateUUID(),
		BuyerID:   models.GenerateUUID(),
		Status:    domain.SaleStatusPendingPayment,
		Payment: domain.Payment{
			ID:            models.GenerateUUID(),
			Amount:        models.NewMoney(9500000, "BRL"),
			Method:        domain.PaymentMethodPix,
			Status:        domain.PaymentStatusPending,
			TransactionID: "mp-123",
			Details:       domain.PaymentDetails{QRCode: "000201"},
			Timestamps:    models.NewTimestamps(repoNow),
		},
		Events: []domain.SaleEvent{
			domain.NewSaleEvent(saleID, domain.SaleEventCreated, "", repoNow),
			domain.NewSaleEvent(saleID, domain.SaleEventPaymentPending, "", repoNow),
		},
		Timestamps: models.NewTimestamps(repoNow),
	}
}

var saleRowColumns = []string{
	"id", "vehicle_id", "buyer_id", "status", "payment_id", "payment_amount",
	"payment_currency", "payment_method", "payment_status", "transaction_id",
	"payment_details", "payment_date", "failure_reason", "notes", "created_at", "updated_at",
}

func TestPostgresSaleRepository_Save(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError string
	}{
		{
			name: "inserts sale and history",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO sales").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO sale_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO sale_events").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "event insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO sales").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO sale_events").WillReturnError(errors.New("constraint violation"))
				mock.ExpectRollback()
			},
			expectedError: "failed to insert sale event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			err := NewPostgresSaleRepository(db).Save(context.Background(), testSale())

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPostgresSaleRepository_Update(t *testing.T) {
	t.Run("missing sale", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE sales SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewPostgresSaleRepository(db).Update(context.Background(), testSale())

		assert.ErrorIs(t, err, domain.ErrSaleNotFound)
	})

	t.Run("skips stored history entries", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE sales SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO sale_events .* ON CONFLICT \(id\) DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO sale_events .* ON CONFLICT \(id\) DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresSaleRepository(db).Update(context.Background(), testSale()))
	})
}

func TestPostgresSaleRepository_FindByTransactionID(t *testing.T) {
	sale := testSale()

	t.Run("loads sale with ordered history", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM sales WHERE transaction_id = \$1`).
			WithArgs("mp-123").
			WillReturnRows(sqlmock.NewRows(saleRowColumns).AddRow(
				sale.ID.String(), sale.VehicleID.String(), sale.BuyerID.String(), "pending_payment",
				sale.Payment.ID.String(), int64(9500000), "BRL", "pix", "pending", "mp-123",
				[]byte(`{"qr_code":"000201"}`), nil, "", "", repoNow, repoNow,
			))
		mock.ExpectQuery(`FROM sale_events WHERE sale_id = \$1 ORDER BY position ASC`).
			WithArgs(sale.ID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "position", "event_type", "payload", "timestamp"}).
				AddRow(sale.Events[0].ID.String(), sale.ID.String(), 0, "sale_created", "", repoNow).
				AddRow(sale.Events[1].ID.String(), sale.ID.String(), 1, "payment_pending", "", repoNow))

		found, err := NewPostgresSaleRepository(db).FindByTransactionID(context.Background(), "mp-123")

		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, sale.ID, found.ID)
		assert.Equal(t, domain.SaleStatusPendingPayment, found.Status)
		assert.Equal(t, domain.PaymentStatusPending, found.Payment.Status)
		assert.Equal(t, "000201", found.Payment.Details.QRCode)
		assert.Equal(t, models.NewMoney(9500000, "BRL"), found.Payment.Amount)
		require.Len(t, found.Events, 2)
		assert.Equal(t, domain.SaleEventPaymentPending, found.Events[1].EventType)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM sales WHERE transaction_id = \$1`).
			WillReturnRows(sqlmock.NewRows(saleRowColumns))

		found, err := NewPostgresSaleRepository(db).FindByTransactionID(context.Background(), "mp-404")

		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPostgresVehicleRepository_Update(t *testing.T) {
	vehicle := testVehicle(domain.VehicleStatusReserved)

	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectedErr error
		errContains string
	}{
		{
			name: "status still expected",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE vehicles SET status = \$1, updated_at = \$2 WHERE id = \$3 AND status = \$4`).
					WithArgs("reserved", repoNow, vehicle.ID.String(), "available").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "lost the race",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE vehicles").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedErr: domain.ErrReservationConflict,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE vehicles").WillReturnError(errors.New("timeout"))
			},
			errContains: "failed to update vehicle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			err := NewPostgresVehicleRepository(db).Update(context.Background(), &vehicle, domain.VehicleStatusAvailable)

			switch {
			case tt.expectedErr != nil:
				assert.ErrorIs(t, err, tt.expectedErr)
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestPostgresVehicleRepository_FindByID(t *testing.T) {
	vehicle := testVehicle(domain.VehicleStatusAvailable)
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM vehicles WHERE id = \$1`).
		WithArgs(vehicle.ID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "brand", "model", "year", "color", "price_amount", "price_currency", "status", "created_at", "updated_at",
		}).AddRow(vehicle.ID.String(), "Toyota", "Corolla", 2022, "silver", int64(9500000), "BRL", "available", repoNow, repoNow))

	found, err := NewPostgresVehicleRepository(db).FindByID(context.Background(), vehicle.ID)

	require.NoError(t, err)
	assert.Equal(t, &vehicle, found)
}

func TestPostgresBuyerRepository_FindByID(t *testing.T) {
	buyer := testBuyer()
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM buyers WHERE id = \$1`).
		WithArgs(buyer.ID.String()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "phone", "documents", "created_at", "updated_at",
		}).AddRow(buyer.ID.String(), buyer.Name, buyer.Email, buyer.Phone,
			[]byte(`[{"type":"CPF","number":"123.456.789-09"}]`), repoNow, repoNow))

	found, err := NewPostgresBuyerRepository(db).FindByID(context.Background(), buyer.ID)

	require.NoError(t, err)
	assert.Equal(t, &buyer, found)
	assert.Equal(t, "12345678909", found.CPF())
}

func TestInitSchema(t *testing.T) {
	db, mock := newMockDB(t)
	for range salesSchema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, InitSchema(context.Background(), db))
}
