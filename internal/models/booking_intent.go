package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IntentState is the lifecycle position of a booking intent.
// Intents are never persisted; the state is carried in logs, audit entries and
// reconciliation results.
type IntentState string

const (
	IntentStateCreated    IntentState = "created"     // validated and priced
	IntentStateLinkIssued IntentState = "link_issued" // payment link handed to the customer
	IntentStateCommitted  IntentState = "committed"   // provider approved, booking stored
	IntentStateAbandoned  IntentState = "abandoned"   // provider reported a non-approved status
)

// IsTerminal reports whether no further transition is possible
func (s IntentState) IsTerminal() bool {
	return s == IntentStateCommitted || s == IntentStateAbandoned
}

// BookingIntent is an unconfirmed reservation request awaiting payment.
// It travels to the payment provider inside the link reference and comes back
// on reconciliation.
type BookingIntent struct {
	TourID         int    `json:"tour_id" validate:"required,gt=0"`
	Date           string `json:"date" validate:"required"`
	People         int    `json:"people" validate:"required,gte=1"`
	Name           string `json:"name" validate:"required"`
	Phone          string `json:"phone" validate:"omitempty,sv_phone"`
	Email          string `json:"email" validate:"required,email"`
	Pickup         bool   `json:"pickup"`
	PickupLocation string `json:"pickup_location,omitempty" validate:"required_if=Pickup true"`
}

// PricedIntent is an intent together with the amount the customer is charged
type PricedIntent struct {
	Intent BookingIntent   `json:"intent"`
	Amount decimal.Decimal `json:"amount"`
}

// InitiateBookingRequest is the inbound checkout request body, sent as JSON or
// as a form post. Field rules are enforced on the resulting BookingIntent.
type InitiateBookingRequest struct {
	TourID         int      `json:"tour_id" form:"tour_id"`
	Date           string   `json:"date" form:"date"`
	People         int      `json:"people" form:"people"`
	Name           string   `json:"name" form:"name"`
	Phone          string   `json:"phone" form:"phone"`
	Email          string   `json:"email" form:"email"`
	Pickup         Checkbox `json:"pickup" form:"pickup"`
	PickupLocation string   `json:"pickup_location" form:"pickup_location"`
}

// Checkbox is a boolean that also accepts the "on" value browsers submit for a
// checked HTML checkbox
type Checkbox bool

// UnmarshalParam implements gin's binding.BindUnmarshaler for form and query values
func (c *Checkbox) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	switch strings.ToLower(param) {
	case "", "off":
		*c = false
		return nil
	case "on", "yes":
		*c = true
		return nil
	}
	v, err := strconv.ParseBool(param)
	if err != nil {
		return fmt.Errorf("invalid checkbox value %q", param)
	}
	*c = Checkbox(v)
	return nil
}

// UnmarshalJSON accepts a JSON boolean or any string UnmarshalParam accepts
func (c *Checkbox) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*c = Checkbox(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid checkbox value %s", data)
	}
	return c.UnmarshalParam(s)
}

// ToIntent converts the request into a booking intent
func (r *InitiateBookingRequest) ToIntent() BookingIntent {
	return BookingIntent{
		TourID:         r.TourID,
		Date:           r.Date,
		People:         r.People,
		Name:           r.Name,
		Phone:          r.Phone,
		Email:          r.Email,
		Pickup:         bool(r.Pickup),
		PickupLocation: r.PickupLocation,
	}
}

// InitiateBookingResponse is returned in JSON checkout mode
type InitiateBookingResponse struct {
	CheckoutURL string `json:"checkout_url"`
	LinkID      string `json:"link_id,omitempty"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}
