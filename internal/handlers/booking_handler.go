package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/middleware"
	"github.com/cotuzatours/booking-backend/internal/models"
	"github.com/cotuzatours/booking-backend/internal/services"
)

// BookingService is the booking flow used by the handler
type BookingService interface {
	ListTours() []models.Tour
	GetTour(id int) (*models.Tour, error)
	InitiateBooking(ctx context.Context, intent models.BookingIntent, meta models.RequestMetadata) (*services.Checkout, error)
	ReconcileByRedirect(ctx context.Context, transactionID string, meta models.RequestMetadata) (*models.ReconcileResult, error)
	ReconcileByWebhook(ctx context.Context, body []byte, signature string, meta models.RequestMetadata) (*models.ReconcileResult, error)
	ListBookedDates(ctx context.Context, tourID int) ([]models.BookedDate, error)
	CreateLegacyBooking(ctx context.Context, req *models.CreateLegacyBookingRequest) (*models.LegacyBooking, error)
}

// CheckoutLimiter throttles payment link creation
type CheckoutLimiter interface {
	CheckCheckout(ctx context.Context, email, ip string) error
	RecordCheckout(ctx context.Context, email, ip string) error
}

// BookingHandler handles tour, checkout and payment reconciliation endpoints
type BookingHandler struct {
	bookings     BookingService
	limiter      CheckoutLimiter
	renderer     Renderer
	checkoutMode string
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler. limiter may be nil.
func NewBookingHandler(bookings BookingService, limiter CheckoutLimiter, renderer Renderer, checkoutMode string, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		limiter:      limiter,
		renderer:     renderer,
		checkoutMode: checkoutMode,
		logger:       logger,
	}
}

// RegisterRoutes mounts the booking endpoints on router
func (h *BookingHandler) RegisterRoutes(router gin.IRouter, webhookBodyLimit int64) {
	router.POST("/create-payment", h.Checkout)
	router.GET("/payment-success", h.PaymentSuccess)
	router.POST("/wompi-webhook", middleware.MaxBodySize(webhookBodyLimit), h.Webhook)

	api := router.Group("/api")
	{
		api.GET("/tours", h.ListTours)
		api.GET("/tours/:id", h.GetTour)
		api.POST("/bookings/checkout", h.Checkout)
		api.GET("/bookings/:tour_id", h.ListBookedDates)
		api.POST("/book", h.CreateLegacyBooking)
	}
}

// ListTours handles GET /api/tours
func (h *BookingHandler) ListTours(c *gin.Context) {
	c.JSON(http.StatusOK, h.bookings.ListTours())
}

// GetTour handles GET /api/tours/:id
func (h *BookingHandler) GetTour(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tour_id"})
		return
	}

	tour, err := h.bookings.GetTour(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tour)
}

// ============================================================================
// CHECKOUT - POST /create-payment, POST /api/bookings/checkout
// ============================================================================

// Checkout prices the booking and hands the customer to the payment page.
// The response is the link as JSON, or a 303 to it in redirect mode
// (?mode=json|redirect overrides the configured mode).
func (h *BookingHandler) Checkout(c *gin.Context) {
	var req models.InitiateBookingRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	meta := middleware.RequestMetadata(c)

	if h.limiter != nil {
		err := h.limiter.CheckCheckout(ctx, req.Email, meta.IPAddress)
		var rateLimitErr *services.RateLimitError
		switch {
		case errors.As(err, &rateLimitErr):
			retryAfter := int(time.Until(rateLimitErr.RetryAfter).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     rateLimitErr.Message,
				"retry_after": rateLimitErr.RetryAfter,
			})
			return
		case err != nil:
			// limiter outage must not block bookings
			h.logger.WithError(err).Warn("Checkout rate limit check failed")
		}
	}

	checkout, err := h.bookings.InitiateBooking(ctx, req.ToIntent(), meta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.RecordCheckout(ctx, req.Email, meta.IPAddress); err != nil {
			h.logger.WithError(err).Warn("Failed to record checkout for rate limiting")
		}
	}

	mode := c.DefaultQuery("mode", h.checkoutMode)
	if mode == config.CheckoutModeRedirect {
		c.Redirect(http.StatusSeeOther, checkout.Link.URL)
		return
	}

	c.JSON(http.StatusOK, models.InitiateBookingResponse{
		CheckoutURL: checkout.Link.URL,
		LinkID:      checkout.Link.ID,
		Amount:      checkout.Amount.StringFixed(2),
		Currency:    checkout.Currency,
	})
}

// ============================================================================
// REDIRECT - GET /payment-success?id=
// ============================================================================

// PaymentSuccess reconciles the transaction the customer returns with and
// always renders the confirmation page. Only a stored booking is shown as confirmed.
func (h *BookingHandler) PaymentSuccess(c *gin.Context) {
	transactionID := c.Query("id")
	view := ConfirmationView{Outcome: ConfirmationNone, TransactionID: transactionID}

	result, err := h.bookings.ReconcileByRedirect(c.Request.Context(), transactionID, middleware.RequestMetadata(c))
	switch {
	case err != nil:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"correlation_id": middleware.GetCorrelationID(c),
		}).Warn("Redirect reconciliation failed")
		view.Outcome = ConfirmationPending
	case result == nil:
	case result.State == models.IntentStateCommitted:
		view.Outcome = ConfirmationConfirmed
		view.Booking = result.Booking
	case result.State == models.IntentStateAbandoned:
		view.Outcome = ConfirmationNotApproved
	default:
		view.Outcome = ConfirmationPending
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderConfirmation(c.Writer, view); err != nil {
		h.logger.WithError(err).Error("Failed to render confirmation page")
	}
}

// ============================================================================
// WEBHOOK - POST /wompi-webhook
// ============================================================================

// Webhook handles provider notifications.
// 401 for a bad signature, 500 when the booking could not be stored so the
// provider retries, 200 for everything that needs no retry.
func (h *BookingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
		return
	}

	signature := c.GetHeader(services.WebhookSignatureHeader)
	result, err := h.bookings.ReconcileByWebhook(c.Request.Context(), body, signature, middleware.RequestMetadata(c))

	switch {
	case errors.Is(err, services.ErrWebhookAuthenticity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": err.Error()})
	case errors.Is(err, services.ErrAmountMismatch), errors.Is(err, services.ErrReferenceRejected):
		// recorded for review; a retry would not change the outcome
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	case err != nil:
		h.logger.WithError(err).WithField("correlation_id", middleware.GetCorrelationID(c)).
			Error("Webhook reconciliation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation_failed"})
	case result == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":    result.State,
			"duplicate": result.Duplicate,
		})
	}
}

// ListBookedDates handles GET /api/bookings/:tour_id
func (h *BookingHandler) ListBookedDates(c *gin.Context) {
	tourID, err := strconv.Atoi(c.Param("tour_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tour_id"})
		return
	}

	dates, err := h.bookings.ListBookedDates(c.Request.Context(), tourID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dates)
}

// CreateLegacyBooking handles POST /api/book
func (h *BookingHandler) CreateLegacyBooking(c *gin.Context) {
	var req models.CreateLegacyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if _, err := h.bookings.CreateLegacyBooking(c.Request.Context(), &req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *BookingHandler) respondError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": vErr.Fields})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, services.ErrGatewayAuth):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_gateway_auth_failed", "message": err.Error()})
	case errors.Is(err, services.ErrLinkCreation), errors.Is(err, services.ErrInvalidResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_link_failed", "message": err.Error()})
	case errors.Is(err, services.ErrTransientNetwork):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment_gateway_unavailable", "message": err.Error()})
	default:
		h.logger.WithError(err).WithField("correlation_id", middleware.GetCorrelationID(c)).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
