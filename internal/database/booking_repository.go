package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cotuzatours/booking-backend/internal/models"
)

const uniqueViolation = "23505"

// BookingRepository handles confirmed booking persistence.
// The unique transaction_id constraint is what makes a commit idempotent.
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Insert stores a booking unless one already exists for its transaction id.
// It returns the stored record and whether this call created it.
func (r *BookingRepository) Insert(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	if booking.TransactionID == "" {
		return nil, false, fmt.Errorf("booking transaction id is required")
	}

	query := `
		INSERT INTO bookings (
			transaction_id, tour_id, date, people, name, phone, email,
			pickup, pickup_location, amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	var inserted struct {
		ID        int64        `db:"id"`
		CreatedAt sql.NullTime `db:"created_at"`
	}

	err := r.db.GetContext(ctx, &inserted, query,
		booking.TransactionID, booking.TourID, booking.Date, booking.People,
		booking.Name, booking.Phone, booking.Email,
		booking.Pickup, booking.PickupLocation, booking.Amount,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			existing, getErr := r.GetByTransactionID(ctx, booking.TransactionID)
			if getErr != nil {
				return nil, false, getErr
			}
			if existing == nil {
				return nil, false, fmt.Errorf("booking for transaction %s vanished after conflict", booking.TransactionID)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert booking: %w", err)
	}

	stored := *booking
	stored.ID = inserted.ID
	if inserted.CreatedAt.Valid {
		stored.CreatedAt = inserted.CreatedAt.Time
	}

	return &stored, true, nil
}

// GetByTransactionID returns the booking committed for a transaction, or nil
func (r *BookingRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Booking, error) {
	var booking models.Booking
	query := `
		SELECT id, transaction_id, tour_id, date, people, name, phone, email,
			pickup, pickup_location, amount, created_at
		FROM bookings
		WHERE transaction_id = $1`

	err := r.db.GetContext(ctx, &booking, query, transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// ListDatesByTour returns the booked dates of a tour in insertion order
func (r *BookingRepository) ListDatesByTour(ctx context.Context, tourID int) ([]string, error) {
	dates := []string{}
	query := `SELECT date FROM bookings WHERE tour_id = $1 ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &dates, query, tourID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return dates, nil
}
