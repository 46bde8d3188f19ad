package models

import "github.com/shopspring/decimal"

// TransactionStatus is the provider-reported status of a payment
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionApproved TransactionStatus = "APPROVED"
	TransactionDeclined TransactionStatus = "DECLINED"
	TransactionVoided   TransactionStatus = "VOIDED"
	TransactionError    TransactionStatus = "ERROR"
)

// IsApproved reports whether the status allows a booking to be committed
func (s TransactionStatus) IsApproved() bool {
	return s == TransactionApproved
}

// PaymentLink is a provider-owned checkout link
type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Transaction is a provider-owned payment record
type Transaction struct {
	ID        string            `json:"id"`
	Status    TransactionStatus `json:"status"`
	Reference string            `json:"reference"`
	Amount    *decimal.Decimal  `json:"amount,omitempty"` // nil when the provider omits it
}

// ReconcileResult describes the outcome of a reconciliation attempt
type ReconcileResult struct {
	State     IntentState `json:"state"`
	Booking   *Booking    `json:"booking,omitempty"`
	Duplicate bool        `json:"duplicate"` // booking already existed for this transaction
}
