package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is a confirmed reservation. It is created only after the payment
// provider reports an approved transaction and is never mutated afterwards.
type Booking struct {
	ID             int64           `json:"id" db:"id"`
	TransactionID  string          `json:"transaction_id" db:"transaction_id"`
	TourID         int             `json:"tour_id" db:"tour_id"`
	Date           string          `json:"date" db:"date"`
	People         int             `json:"people" db:"people"`
	Name           string          `json:"name" db:"name"`
	Phone          string          `json:"phone" db:"phone"`
	Email          string          `json:"email" db:"email"`
	Pickup         bool            `json:"pickup" db:"pickup"`
	PickupLocation string          `json:"pickup_location" db:"pickup_location"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NewBookingFromIntent builds the record committed for an approved transaction
func NewBookingFromIntent(transactionID string, priced *PricedIntent) *Booking {
	intent := priced.Intent
	return &Booking{
		TransactionID:  transactionID,
		TourID:         intent.TourID,
		Date:           intent.Date,
		People:         intent.People,
		Name:           intent.Name,
		Phone:          intent.Phone,
		Email:          intent.Email,
		Pickup:         intent.Pickup,
		PickupLocation: intent.PickupLocation,
		Amount:         priced.Amount,
	}
}

// BookedDate is one entry of the booking-dates query
type BookedDate struct {
	Date string `json:"date"`
}

// LegacyBooking is an entry of the simple booking list kept for older clients.
// It does not go through payment reconciliation.
type LegacyBooking struct {
	ID        int64     `json:"id" db:"id"`
	TourID    int       `json:"tour_id" db:"tour_id"`
	Date      string    `json:"date" db:"date"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateLegacyBookingRequest represents the legacy booking form
type CreateLegacyBookingRequest struct {
	TourID int    `json:"tour_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}
