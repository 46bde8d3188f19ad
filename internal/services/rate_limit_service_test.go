package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/database"
)

func setupRateLimitTest(t *testing.T, cfg config.RateLimitConfig) (*RateLimitService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}
	service := NewRateLimitService(postgresDB, cfg)

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

func defaultRateLimits() config.RateLimitConfig {
	return config.RateLimitConfig{
		MaxPerEmail: 3,
		EmailWindow: 10 * time.Minute,
		MaxPerIP:    10,
		IPWindow:    time.Hour,
	}
}

func windowRows(count int, first time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count", "first_request"}).AddRow(count, first)
}

func TestCheckCheckout_NoRequests(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("ana@example.com", RateLimitByEmail, sqlmock.AnyArg()).
		WillReturnRows(windowRows(0, time.Now()))
	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("192.168.1.1", RateLimitByIP, sqlmock.AnyArg()).
		WillReturnRows(windowRows(0, time.Now()))

	err := service.CheckCheckout(context.Background(), " Ana@Example.com ", "192.168.1.1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckout_EmailExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("ana@example.com", RateLimitByEmail, sqlmock.AnyArg()).
		WillReturnRows(windowRows(3, time.Now().Add(-5*time.Minute)))

	err := service.CheckCheckout(context.Background(), "ana@example.com", "192.168.1.1")
	require.Error(t, err)

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr), "Error should be RateLimitError")
	assert.Equal(t, RateLimitByEmail, rateLimitErr.Type)
	assert.Contains(t, rateLimitErr.Message, "Too many checkout attempts for this email")
	assert.True(t, rateLimitErr.RetryAfter.After(time.Now()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckout_IPExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("ana@example.com", RateLimitByEmail, sqlmock.AnyArg()).
		WillReturnRows(windowRows(1, time.Now()))
	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("192.168.1.1", RateLimitByIP, sqlmock.AnyArg()).
		WillReturnRows(windowRows(10, time.Now().Add(-30*time.Minute)))

	err := service.CheckCheckout(context.Background(), "ana@example.com", "192.168.1.1")

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, RateLimitByIP, rateLimitErr.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckout_RetryAfterOldestRequest(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }
	oldest := now.Add(-9 * time.Minute)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS count, COALESCE\(MIN\(created_at\), NOW\(\)\) AS first_request`).
		WithArgs("ana@example.com", RateLimitByEmail, now.Add(-10*time.Minute)).
		WillReturnRows(windowRows(3, oldest))

	err := service.CheckCheckout(context.Background(), "ana@example.com", "192.168.1.1")

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, now.Add(time.Minute), rateLimitErr.RetryAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckout_Disabled(t *testing.T) {
	cfg := defaultRateLimits()
	cfg.MaxPerEmail = 0
	cfg.MaxPerIP = 0
	service, mock, cleanup := setupRateLimitTest(t, cfg)
	defer cleanup()

	assert.NoError(t, service.CheckCheckout(context.Background(), "ana@example.com", "192.168.1.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckout_QueryError(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WillReturnError(errors.New("connection reset"))

	err := service.CheckCheckout(context.Background(), "ana@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check email rate limit")

	var rateLimitErr *RateLimitError
	assert.False(t, errors.As(err, &rateLimitErr))
}

func TestRecordCheckout(t *testing.T) {
	t.Run("Email and IP", func(t *testing.T) {
		service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
		defer cleanup()

		mock.ExpectExec("INSERT INTO checkout_rate_limits").
			WithArgs("ana@example.com", RateLimitByEmail).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO checkout_rate_limits").
			WithArgs("192.168.1.1", RateLimitByIP).
			WillReturnResult(sqlmock.NewResult(2, 1))

		assert.NoError(t, service.RecordCheckout(context.Background(), "ANA@example.com", "192.168.1.1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("IP only", func(t *testing.T) {
		service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
		defer cleanup()

		mock.ExpectExec("INSERT INTO checkout_rate_limits").
			WithArgs("192.168.1.1", RateLimitByIP).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, service.RecordCheckout(context.Background(), "", "192.168.1.1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCleanupExpired(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t, defaultRateLimits())
	defer cleanup()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	mock.ExpectExec("DELETE FROM checkout_rate_limits").
		WithArgs(now.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := service.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
