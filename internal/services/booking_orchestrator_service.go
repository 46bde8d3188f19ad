package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/models"
	phonevalidator "github.com/cotuzatours/booking-backend/pkg/validator"
)

// TourCatalog supplies read-only tour data
type TourCatalog interface {
	GetTour(id int) (*models.Tour, error)
	ListTours() []models.Tour
}

// BookingStore persists confirmed bookings.
// Insert must not create a second record for a transaction id.
type BookingStore interface {
	Insert(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error)
	ListDatesByTour(ctx context.Context, tourID int) ([]string, error)
}

// LegacyBookingStore persists bookings made without payment
type LegacyBookingStore interface {
	Create(ctx context.Context, booking *models.LegacyBooking) error
}

// PaymentGateway is the payment provider client
type PaymentGateway interface {
	CreateLink(ctx context.Context, params *CreateLinkParams) (*models.PaymentLink, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	VerifyWebhookSignature(body []byte, signature string) error
	ParseWebhook(body []byte) (*WompiWebhookPayload, error)
}

// ReferenceCodec round-trips a priced intent through the provider reference field
type ReferenceCodec interface {
	Encode(priced *models.PricedIntent, currency string) (string, error)
	Decode(ref string) (*models.PricedIntent, string, error)
}

// OrchestratorConfig holds the checkout parameters sent with every payment link
type OrchestratorConfig struct {
	ProductName  string
	Currency     string
	LinkValidity time.Duration
	RedirectURL  string
}

// Checkout is the result of a successful InitiateBooking
type Checkout struct {
	Link     *models.PaymentLink
	Amount   decimal.Decimal
	Currency string
	State    models.IntentState
}

// BookingOrchestratorService turns booking intents into payment links and
// provider-approved transactions into bookings, exactly once per transaction
type BookingOrchestratorService struct {
	catalog  TourCatalog
	store    BookingStore
	legacy   LegacyBookingStore
	gateway  PaymentGateway
	codec    ReferenceCodec
	pricing  *PricingService
	audit    *PaymentAuditService
	config   OrchestratorConfig
	validate *validator.Validate
	phones   *phonevalidator.PhoneValidator
	logger   *logrus.Logger
}

// NewBookingOrchestratorService creates a new booking orchestrator service
func NewBookingOrchestratorService(
	catalog TourCatalog,
	store BookingStore,
	legacy LegacyBookingStore,
	gateway PaymentGateway,
	codec ReferenceCodec,
	pricing *PricingService,
	audit *PaymentAuditService,
	cfg OrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	phones := phonevalidator.NewPhoneValidator()
	return &BookingOrchestratorService{
		catalog:  catalog,
		store:    store,
		legacy:   legacy,
		gateway:  gateway,
		codec:    codec,
		pricing:  pricing,
		audit:    audit,
		config:   cfg,
		validate: newIntentValidator(phones),
		phones:   phones,
		logger:   logger,
	}
}

func newIntentValidator(phones *phonevalidator.PhoneValidator) *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("sv_phone", func(fl validator.FieldLevel) bool {
		return phones.IsValid(fl.Field().String())
	})

	return v
}

// ValidateIntent checks a booking intent before it is priced
func (s *BookingOrchestratorService) ValidateIntent(intent *models.BookingIntent) error {
	err := s.validate.Struct(intent)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// GetTour returns a catalog tour or ErrNotFound
func (s *BookingOrchestratorService) GetTour(id int) (*models.Tour, error) {
	tour, err := s.catalog.GetTour(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read tour catalog: %w", err)
	}
	if tour == nil {
		return nil, fmt.Errorf("tour %d: %w", id, ErrNotFound)
	}
	return tour, nil
}

// ListTours returns the whole catalog
func (s *BookingOrchestratorService) ListTours() []models.Tour {
	return s.catalog.ListTours()
}

// InitiateBooking prices the intent and requests a payment link carrying it.
// Nothing is stored; the intent lives only in the signed reference.
func (s *BookingOrchestratorService) InitiateBooking(ctx context.Context, intent models.BookingIntent, meta models.RequestMetadata) (*Checkout, error) {
	intent.Name = strings.TrimSpace(intent.Name)
	intent.Email = strings.TrimSpace(intent.Email)
	if !intent.Pickup {
		intent.PickupLocation = ""
	}

	if err := s.ValidateIntent(&intent); err != nil {
		return nil, err
	}
	if formatted, err := s.phones.Format(intent.Phone); err == nil {
		intent.Phone = formatted
	}

	tour, err := s.GetTour(intent.TourID)
	if err != nil {
		return nil, err
	}

	priced := &models.PricedIntent{
		Intent: intent,
		Amount: s.pricing.Quote(tour, &intent),
	}

	logger := s.logger.WithFields(logrus.Fields{
		"tour_id":        intent.TourID,
		"people":         intent.People,
		"amount":         priced.Amount.StringFixed(2),
		"state":          models.IntentStateCreated,
		"correlation_id": meta.CorrelationID,
	})
	logger.Info("Booking intent created")

	ref, err := s.codec.Encode(priced, s.config.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment reference: %w", err)
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventLinkRequested, models.PaymentSourceBackend).
		SetTourID(intent.TourID).
		SetExpectedAmount(priced.Amount, s.config.Currency).
		SetDetail("people", intent.People).
		SetDetail("pickup", intent.Pickup).
		SetMetadata(meta))

	link, err := s.gateway.CreateLink(ctx, &CreateLinkParams{
		ProductName: s.config.ProductName,
		Amount:      priced.Amount,
		Currency:    s.config.Currency,
		Reference:   ref,
		Description: describeIntent(tour, &intent),
		Expiry:      s.config.LinkValidity,
		RedirectURL: s.config.RedirectURL,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create payment link")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventLinkFailed, models.PaymentSourceWompiAPI).
			SetTourID(intent.TourID).
			SetExpectedAmount(priced.Amount, s.config.Currency).
			SetError(err).
			SetMetadata(meta))
		return nil, err
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventLinkCreated, models.PaymentSourceWompiAPI).
		SetLinkID(link.ID).
		SetTourID(intent.TourID).
		SetExpectedAmount(priced.Amount, s.config.Currency).
		SetMetadata(meta))

	logger.WithFields(logrus.Fields{
		"link_id": link.ID,
		"state":   models.IntentStateLinkIssued,
	}).Info("Payment link issued")

	return &Checkout{
		Link:     link,
		Amount:   priced.Amount,
		Currency: s.config.Currency,
		State:    models.IntentStateLinkIssued,
	}, nil
}

// ReconcileByRedirect handles the customer's return from the checkout page.
// The transaction status is always re-queried from the provider.
// A nil result with a nil error means there was nothing to reconcile.
func (s *BookingOrchestratorService) ReconcileByRedirect(ctx context.Context, transactionID string, meta models.RequestMetadata) (*models.ReconcileResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventRedirectReceived, models.PaymentSourceRedirect).
		SetTransactionID(transactionID).
		SetMetadata(meta))

	tx, err := s.gateway.GetTransaction(ctx, transactionID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"retryable":      IsRetryable(err),
			"correlation_id": meta.CorrelationID,
		}).Error("Transaction status check failed")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventStatusCheckFailed, models.PaymentSourceWompiAPI).
			SetTransactionID(transactionID).
			SetError(err).
			SetMetadata(meta))
		return nil, err
	}

	// Bookings are keyed by the provider's canonical id, which the webhook carries verbatim
	if tx.ID != "" {
		transactionID = tx.ID
	}

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventStatusCheckResponse, models.PaymentSourceWompiAPI).
		SetTransactionID(transactionID).
		SetPaymentStatus(string(tx.Status)).
		SetMetadata(meta))

	return s.commit(ctx, models.PaymentSourceRedirect, transactionID, tx.Status, tx.Reference, tx.Amount, meta)
}

// ReconcileByWebhook handles an asynchronous provider notification.
// The body is trusted only after its signature verifies.
func (s *BookingOrchestratorService) ReconcileByWebhook(ctx context.Context, body []byte, signature string, meta models.RequestMetadata) (*models.ReconcileResult, error) {
	if err := s.gateway.VerifyWebhookSignature(body, signature); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"ip_address":     meta.IPAddress,
			"correlation_id": meta.CorrelationID,
		}).Warn("Webhook rejected")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookRejected, models.PaymentSourceWebhook).
			SetError(err).
			SetMetadata(meta))
		return nil, err
	}

	payload, err := s.gateway.ParseWebhook(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	transactionID := string(payload.TransactionID)

	s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
		SetTransactionID(transactionID).
		SetPaymentStatus(payload.Status).
		SetMetadata(meta))

	if transactionID == "" {
		s.logger.WithField("estado", payload.Status).Warn("Webhook without transaction id ignored")
		return nil, nil
	}

	status := NormalizeTransactionStatus(payload.Status)
	return s.commit(ctx, models.PaymentSourceWebhook, transactionID, status, payload.Reference(), payload.Amount, meta)
}

// commit promotes an approved transaction to a booking.
// Both reconciliation paths end here and may race; the store keeps it to one record.
func (s *BookingOrchestratorService) commit(
	ctx context.Context,
	source models.PaymentEventSource,
	transactionID string,
	status models.TransactionStatus,
	reference string,
	paidAmount *decimal.Decimal,
	meta models.RequestMetadata,
) (*models.ReconcileResult, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"status":         status,
		"source":         source,
		"correlation_id": meta.CorrelationID,
	})

	if !status.IsApproved() {
		logger.WithField("state", models.IntentStateAbandoned).Info("Payment not approved, no booking created")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventNotApproved, source).
			SetTransactionID(transactionID).
			SetPaymentStatus(string(status)).
			SetMetadata(meta))
		return &models.ReconcileResult{State: models.IntentStateAbandoned}, nil
	}

	priced, currency, err := s.codec.Decode(reference)
	if err != nil {
		logger.WithError(err).Error("CRITICAL: approved payment carries an invalid reference")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventReferenceInvalid, source).
			SetTransactionID(transactionID).
			SetPaymentStatus(string(status)).
			SetError(err).
			SetMetadata(meta))
		return nil, fmt.Errorf("%w: %v", ErrReferenceRejected, err)
	}

	if paidAmount != nil {
		audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, source).
			SetTransactionID(transactionID).
			SetTourID(priced.Intent.TourID).
			SetPaymentStatus(string(status)).
			SetMetadata(meta)
		if !audit.SetAmounts(priced.Amount, *paidAmount, currency) {
			logger.WithFields(logrus.Fields{
				"expected": priced.Amount.StringFixed(2),
				"received": paidAmount.StringFixed(2),
			}).Error("CRITICAL: paid amount differs from booking amount")
			s.audit.Record(ctx, audit)
			return &models.ReconcileResult{State: models.IntentStateLinkIssued}, ErrAmountMismatch
		}
	}

	booking, created, err := s.store.Insert(ctx, models.NewBookingFromIntent(transactionID, priced))
	if err != nil {
		logger.WithError(err).Error("Failed to commit booking")
		s.audit.Record(ctx, models.NewPaymentAudit(models.PaymentEventBookingCommitFailed, source).
			SetTransactionID(transactionID).
			SetTourID(priced.Intent.TourID).
			SetExpectedAmount(priced.Amount, currency).
			SetError(err).
			SetMetadata(meta))
		return nil, err
	}

	event := models.PaymentEventBookingCommitted
	if !created {
		event = models.PaymentEventBookingDuplicate
	}
	s.audit.Record(ctx, models.NewPaymentAudit(event, source).
		SetTransactionID(transactionID).
		SetTourID(booking.TourID).
		SetExpectedAmount(booking.Amount, currency).
		SetPaymentStatus(string(status)).
		SetDetail("booking_id", booking.ID).
		SetMetadata(meta))

	logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"duplicate":  !created,
		"state":      models.IntentStateCommitted,
	}).Info("Booking committed")

	return &models.ReconcileResult{
		State:     models.IntentStateCommitted,
		Booking:   booking,
		Duplicate: !created,
	}, nil
}

// ListBookedDates returns the booked dates of a tour in booking order
func (s *BookingOrchestratorService) ListBookedDates(ctx context.Context, tourID int) ([]models.BookedDate, error) {
	dates, err := s.store.ListDatesByTour(ctx, tourID)
	if err != nil {
		return nil, err
	}

	booked := make([]models.BookedDate, 0, len(dates))
	for _, d := range dates {
		booked = append(booked, models.BookedDate{Date: d})
	}
	return booked, nil
}

// CreateLegacyBooking appends an unpaid booking from the legacy form
func (s *BookingOrchestratorService) CreateLegacyBooking(ctx context.Context, req *models.CreateLegacyBookingRequest) (*models.LegacyBooking, error) {
	booking := &models.LegacyBooking{
		TourID: req.TourID,
		Date:   req.Date,
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.TrimSpace(req.Email),
	}

	if err := s.legacy.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tour_id":    booking.TourID,
		"booking_id": booking.ID,
	}).Info("Legacy booking stored")

	return booking, nil
}

func describeIntent(tour *models.Tour, intent *models.BookingIntent) string {
	people := "1 persona"
	if intent.People > 1 {
		people = fmt.Sprintf("%d personas", intent.People)
	}
	desc := fmt.Sprintf("%s - %s - %s", tour.Name, intent.Date, people)
	if intent.Pickup {
		desc += " - con transporte"
	}
	return desc
}
