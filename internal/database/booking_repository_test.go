package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotuzatours/booking-backend/internal/models"
)

var bookingColumns = []string{
	"id", "transaction_id", "tour_id", "date", "people", "name", "phone", "email",
	"pickup", "pickup_location", "amount", "created_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		TransactionID: "tx-1",
		TourID:        3,
		Date:          "2026-03-14",
		People:        2,
		Name:          "Ana",
		Phone:         "70001234",
		Email:         "ana@example.com",
		Amount:        decimal.NewFromInt(200),
	}
}

func TestBookingRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates booking", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs("tx-1", 3, "2026-03-14", 2, "Ana", "70001234", "ana@example.com", false, "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

		booking, created, err := repo.Insert(ctx, sampleBooking())

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(7), booking.ID)
		assert.Equal(t, now, booking.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Existing transaction returns stored booking", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_transaction_id_key"})
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE transaction_id = \$1`).
			WithArgs("tx-1").
			WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(
				int64(7), "tx-1", 3, "2026-03-14", 2, "Ana", "70001234", "ana@example.com",
				false, "", "200.00", now,
			))

		booking, created, err := repo.Insert(ctx, sampleBooking())

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(7), booking.ID)
		assert.True(t, booking.Amount.Equal(decimal.NewFromInt(200)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("connection reset"))

		booking, created, err := repo.Insert(ctx, sampleBooking())

		assert.Error(t, err)
		assert.Nil(t, booking)
		assert.False(t, created)
		assert.Contains(t, err.Error(), "failed to insert booking")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing transaction id", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		b := sampleBooking()
		b.TransactionID = ""
		_, _, err := repo.Insert(ctx, b)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByTransactionID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE transaction_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookingColumns))

	booking, err := repo.GetByTransactionID(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, booking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListDatesByTour(t *testing.T) {
	t.Run("Insertion order", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectQuery(`SELECT date FROM bookings WHERE tour_id = \$1 ORDER BY id ASC`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"date"}).
				AddRow("2026-03-14").
				AddRow("2026-02-01").
				AddRow("2026-03-14"))

		dates, err := repo.ListDatesByTour(context.Background(), 3)

		require.NoError(t, err)
		assert.Equal(t, []string{"2026-03-14", "2026-02-01", "2026-03-14"}, dates)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No bookings is an empty list", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectQuery(`SELECT date FROM bookings`).
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows([]string{"date"}))

		dates, err := repo.ListDatesByTour(context.Background(), 99)

		require.NoError(t, err)
		assert.NotNil(t, dates)
		assert.Empty(t, dates)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLegacyBookingRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLegacyBookingRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO legacy_bookings`).
		WithArgs(1, "2026-04-01", "Luis", "luis@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	booking := &models.LegacyBooking{TourID: 1, Date: "2026-04-01", Name: "Luis", Email: "luis@example.com"}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.Equal(t, int64(1), booking.ID)

	mock.ExpectQuery(`SELECT (.+) FROM legacy_bookings`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tour_id", "date", "name", "email", "created_at"}).
			AddRow(int64(1), 1, "2026-04-01", "Luis", "luis@example.com", now))

	list, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)

	for range schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
