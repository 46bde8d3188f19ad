package services

import (
	"github.com/shopspring/decimal"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/models"
)

// PricingService computes the amount charged for a booking intent
type PricingService struct {
	mode      string
	pickupFee decimal.Decimal
}

// NewPricingService creates a pricing service from configuration
func NewPricingService(cfg config.PricingConfig) *PricingService {
	return &PricingService{
		mode:      cfg.Mode,
		pickupFee: cfg.PickupFee,
	}
}

// GroupRate returns the per-person rate used when more than one person travels
func (s *PricingService) GroupRate(tour *models.Tour) decimal.Decimal {
	if s.mode == config.PricingModeDifferentiated && tour.GroupPrice != nil {
		return *tour.GroupPrice
	}
	return tour.Price
}

// Quote prices an intent:
//
//	people == 1 -> single rate
//	people  > 1 -> group rate * people
//
// plus the pickup fee once when pickup is requested.
func (s *PricingService) Quote(tour *models.Tour, intent *models.BookingIntent) decimal.Decimal {
	var amount decimal.Decimal
	if intent.People == 1 {
		amount = tour.Price
	} else {
		amount = s.GroupRate(tour).Mul(decimal.NewFromInt(int64(intent.People)))
	}

	if intent.Pickup {
		amount = amount.Add(s.pickupFee)
	}

	return amount.Round(2)
}
