package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventLinkRequested          PaymentEventType = "link_requested"
	PaymentEventLinkCreated            PaymentEventType = "link_created"
	PaymentEventLinkFailed             PaymentEventType = "link_failed"
	PaymentEventRedirectReceived       PaymentEventType = "redirect_received"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected        PaymentEventType = "webhook_rejected"
	PaymentEventStatusCheckResponse    PaymentEventType = "status_check_response"
	PaymentEventStatusCheckFailed      PaymentEventType = "status_check_failed"
	PaymentEventNotApproved            PaymentEventType = "payment_not_approved"
	PaymentEventBookingCommitted       PaymentEventType = "booking_committed"
	PaymentEventBookingDuplicate       PaymentEventType = "booking_duplicate"
	PaymentEventBookingCommitFailed    PaymentEventType = "booking_commit_failed"
	PaymentEventReferenceInvalid       PaymentEventType = "reference_invalid"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend  PaymentEventSource = "backend"
	PaymentSourceWebhook  PaymentEventSource = "wompi_webhook"
	PaymentSourceRedirect PaymentEventSource = "wompi_redirect"
	PaymentSourceWompiAPI PaymentEventSource = "wompi_api"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID *string   `json:"transaction_id,omitempty" db:"transaction_id"`
	LinkID        *string   `json:"link_id,omitempty" db:"link_id"`
	TourID        *int      `json:"tour_id,omitempty" db:"tour_id"`

	// Event info
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking
	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string          `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool            `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`
	ErrorMessage  *string `json:"error_message,omitempty" db:"error_message"`
	Details       JSONB   `json:"details,omitempty" db:"details"`

	// Metadata
	IPAddress     *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent     *string `json:"user_agent,omitempty" db:"user_agent"`
	CorrelationID *string `json:"correlation_id,omitempty" db:"correlation_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetTransactionID sets the provider transaction id
func (pa *PaymentAudit) SetTransactionID(id string) *PaymentAudit {
	if id != "" {
		pa.TransactionID = &id
	}
	return pa
}

// SetLinkID sets the provider payment link id
func (pa *PaymentAudit) SetLinkID(id string) *PaymentAudit {
	if id != "" {
		pa.LinkID = &id
	}
	return pa
}

// SetTourID sets the tour the payment belongs to
func (pa *PaymentAudit) SetTourID(tourID int) *PaymentAudit {
	pa.TourID = &tourID
	return pa
}

// SetExpectedAmount records the priced amount without a comparison
func (pa *PaymentAudit) SetExpectedAmount(expected decimal.Decimal, currency string) *PaymentAudit {
	pa.ExpectedAmount = &expected
	pa.Currency = &currency
	return pa
}

// SetAmounts sets and verifies amounts - returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received decimal.Decimal, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	match := expected.Equal(received)
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus sets the payment status from gateway
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		message := err.Error()
		pa.ErrorMessage = &message
	}
	return pa
}

// SetDetail adds a key to the free-form details payload
func (pa *PaymentAudit) SetDetail(key string, value interface{}) *PaymentAudit {
	if pa.Details == nil {
		pa.Details = JSONB{}
	}
	pa.Details[key] = value
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(meta RequestMetadata) *PaymentAudit {
	if meta.IPAddress != "" {
		pa.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		pa.UserAgent = &meta.UserAgent
	}
	if meta.CorrelationID != "" {
		pa.CorrelationID = &meta.CorrelationID
	}
	if meta.Device != nil {
		pa.SetDetail("device", meta.Device)
	}
	return pa
}

// RequestMetadata describes the inbound request that triggered a payment event
type RequestMetadata struct {
	IPAddress     string
	UserAgent     string
	CorrelationID string
	Device        interface{} // parsed user agent, see utils.ParseUserAgent
}
