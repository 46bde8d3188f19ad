package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/database"
)

// Rate limit identifier types
const (
	RateLimitByEmail = "email"
	RateLimitByIP    = "ip"
)

// RateLimitService throttles payment link creation per customer email and client IP
type RateLimitService struct {
	db     database.DB
	config config.RateLimitConfig
	now    func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, cfg config.RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckCheckout checks whether an email or IP has exceeded its checkout allowance.
// A limit of zero disables that check.
func (s *RateLimitService) CheckCheckout(ctx context.Context, email, ip string) error {
	email = normalizeEmail(email)

	if email != "" && s.config.MaxPerEmail > 0 {
		count, firstRequest, err := s.getRequestCount(ctx, email, RateLimitByEmail, s.config.EmailWindow)
		if err != nil {
			return fmt.Errorf("failed to check email rate limit: %w", err)
		}

		if count >= s.config.MaxPerEmail {
			retryAfter := firstRequest.Add(s.config.EmailWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many checkout attempts for this email. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       RateLimitByEmail,
			}
		}
	}

	if ip != "" && s.config.MaxPerIP > 0 {
		count, firstRequest, err := s.getRequestCount(ctx, ip, RateLimitByIP, s.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= s.config.MaxPerIP {
			retryAfter := firstRequest.Add(s.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many checkout attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       RateLimitByIP,
			}
		}
	}

	return nil
}

type requestWindow struct {
	Count        int       `db:"count"`
	FirstRequest time.Time `db:"first_request"`
}

// getRequestCount gets the number of requests within the time window and the
// time of the oldest one. A slot frees up when that request leaves the window.
func (s *RateLimitService) getRequestCount(ctx context.Context, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := s.now().Add(-window)

	query := `
		SELECT COUNT(*) AS count, COALESCE(MIN(created_at), NOW()) AS first_request
		FROM checkout_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3`

	var row requestWindow
	if err := s.db.GetContext(ctx, &row, query, identifier, identifierType, windowStart); err != nil {
		return 0, time.Time{}, err
	}

	return row.Count, row.FirstRequest, nil
}

// RecordCheckout records a checkout attempt for rate limiting
func (s *RateLimitService) RecordCheckout(ctx context.Context, email, ip string) error {
	if email = normalizeEmail(email); email != "" {
		if err := s.recordRequest(ctx, email, RateLimitByEmail); err != nil {
			return fmt.Errorf("failed to record email request: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordRequest(ctx, ip, RateLimitByIP); err != nil {
			return fmt.Errorf("failed to record IP request: %w", err)
		}
	}

	return nil
}

func (s *RateLimitService) recordRequest(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO checkout_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())`

	_, err := s.db.ExecContext(ctx, query, identifier, identifierType)
	return err
}

// CleanupExpired removes records older than the longest window
func (s *RateLimitService) CleanupExpired(ctx context.Context) (int64, error) {
	maxWindow := s.config.IPWindow
	if s.config.EmailWindow > maxWindow {
		maxWindow = s.config.EmailWindow
	}

	query := `
		DELETE FROM checkout_rate_limits
		WHERE created_at < $1`

	result, err := s.db.ExecContext(ctx, query, s.now().Add(-maxWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
