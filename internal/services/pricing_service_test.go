package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote(t *testing.T) {
	groupPrice := dec("100")
	tour := &models.Tour{ID: 3, Price: dec("120"), GroupPrice: &groupPrice}

	differentiated := NewPricingService(config.PricingConfig{Mode: config.PricingModeDifferentiated, PickupFee: dec("15")})
	uniform := NewPricingService(config.PricingConfig{Mode: config.PricingModeUniform, PickupFee: dec("15")})

	tests := []struct {
		name     string
		svc      *PricingService
		people   int
		pickup   bool
		expected string
	}{
		{"Single person uses single rate", differentiated, 1, false, "120"},
		{"Group uses group rate", differentiated, 2, false, "200"},
		{"Group of five", differentiated, 5, false, "500"},
		{"Single with pickup", differentiated, 1, true, "135"},
		{"Group pickup added once", differentiated, 4, true, "415"},
		{"Uniform group uses single rate", uniform, 3, false, "360"},
		{"Uniform single", uniform, 1, true, "135"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			intent := &models.BookingIntent{TourID: 3, People: tc.people, Pickup: tc.pickup}
			amount := tc.svc.Quote(tour, intent)
			assert.True(t, amount.Equal(dec(tc.expected)), "got %s want %s", amount, tc.expected)
		})
	}
}

func TestGroupRate_FallsBackToPrice(t *testing.T) {
	tour := &models.Tour{ID: 1, Price: dec("45.50")}
	svc := NewPricingService(config.PricingConfig{Mode: config.PricingModeDifferentiated})

	assert.True(t, svc.GroupRate(tour).Equal(dec("45.50")))
	assert.True(t, svc.Quote(tour, &models.BookingIntent{People: 2}).Equal(dec("91")))
}
