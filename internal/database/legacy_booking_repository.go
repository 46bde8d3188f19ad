package database

import (
	"context"
	"fmt"

	"github.com/cotuzatours/booking-backend/internal/models"
)

// LegacyBookingRepository stores bookings made through the unpaid /api/book form
type LegacyBookingRepository struct {
	db DB
}

// NewLegacyBookingRepository creates a new legacy booking repository
func NewLegacyBookingRepository(db DB) *LegacyBookingRepository {
	return &LegacyBookingRepository{db: db}
}

// Create appends a legacy booking
func (r *LegacyBookingRepository) Create(ctx context.Context, booking *models.LegacyBooking) error {
	query := `
		INSERT INTO legacy_bookings (tour_id, date, name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.GetContext(ctx, booking, query, booking.TourID, booking.Date, booking.Name, booking.Email)
	if err != nil {
		return fmt.Errorf("failed to create legacy booking: %w", err)
	}

	return nil
}

// List returns legacy bookings of a tour, oldest first
func (r *LegacyBookingRepository) List(ctx context.Context, tourID int) ([]models.LegacyBooking, error) {
	bookings := []models.LegacyBooking{}
	query := `
		SELECT id, tour_id, date, name, email, created_at
		FROM legacy_bookings
		WHERE tour_id = $1
		ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &bookings, query, tourID); err != nil {
		return nil, fmt.Errorf("failed to list legacy bookings: %w", err)
	}

	return bookings, nil
}
