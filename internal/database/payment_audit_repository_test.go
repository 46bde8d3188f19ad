package database

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotuzatours/booking-backend/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPaymentAuditRepository_Log(t *testing.T) {
	t.Run("Inserts entry", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentAuditRepository(db, quietLogger())

		audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceWebhook).
			SetTransactionID("tx-1").
			SetTourID(3).
			SetDetail("reason", "amount differs")
		match := audit.SetAmounts(decimal.NewFromInt(200), decimal.NewFromInt(150), "USD")
		assert.False(t, match)

		mock.ExpectExec(`INSERT INTO payment_audits`).
			WithArgs(
				audit.ID, "tx-1", nil, 3,
				"reconciliation_mismatch", "wompi_webhook",
				sqlmock.AnyArg(), sqlmock.AnyArg(), "USD", false,
				nil, nil, sqlmock.AnyArg(),
				nil, nil, nil,
				sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Log(context.Background(), audit))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nil entry", func(t *testing.T) {
		db, _ := newMockDB(t)
		repo := NewPaymentAuditRepository(db, quietLogger())

		assert.Error(t, repo.Log(context.Background(), nil))
	})

	t.Run("Database error is returned", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentAuditRepository(db, quietLogger())

		mock.ExpectExec(`INSERT INTO payment_audits`).WillReturnError(errors.New("disk full"))

		err := repo.Log(context.Background(), models.NewPaymentAudit(models.PaymentEventLinkFailed, models.PaymentSourceBackend))
		assert.ErrorContains(t, err, "failed to log payment audit")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentAuditRepository_GetAmountMismatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentAuditRepository(db, quietLogger())

	mock.ExpectQuery(`SELECT \* FROM payment_audits\s+WHERE amounts_match = FALSE`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "event_source", "transaction_id"}).
			AddRow("0b9f6c5e-8d8a-4c55-9b52-6e2f9d1c0a11", "reconciliation_mismatch", "wompi_webhook", "tx-1"))

	audits, err := repo.GetAmountMismatches(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, models.PaymentEventReconciliationMismatch, audits[0].EventType)
	assert.Equal(t, "tx-1", *audits[0].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
