// Package reference encodes booking intents into the opaque merchant reference
// that travels through the payment provider and back.
//
// A reference is a compact HS256 JWT. The signing key is derived from the
// configured secret with HKDF so the raw webhook secret is never used directly
// as a token key.
package reference

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/hkdf"

	"github.com/cotuzatours/booking-backend/internal/models"
)

const (
	issuer  = "cotuza-tours-booking"
	keyInfo = "cotuza-tours/payment-reference/v1"
)

var (
	// ErrEmptySecret indicates the codec was built without a secret
	ErrEmptySecret = errors.New("reference secret cannot be empty")

	// ErrInvalidReference indicates a reference that failed signature or shape checks
	ErrInvalidReference = errors.New("invalid payment reference")
)

// Claims represents the reference token structure
type Claims struct {
	Intent   models.BookingIntent `json:"intent"`
	Amount   string               `json:"amount"`
	Currency string               `json:"currency"`
	jwt.RegisteredClaims
}

// Codec signs and verifies payment references
type Codec struct {
	key []byte
	now func() time.Time
}

// NewCodec creates a codec keyed from secret
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive reference key: %w", err)
	}

	return &Codec{key: key, now: time.Now}, nil
}

// Encode serializes the priced intent into a signed reference
func (c *Codec) Encode(priced *models.PricedIntent, currency string) (string, error) {
	now := c.now()
	claims := Claims{
		Intent:   priced.Intent,
		Amount:   priced.Amount.StringFixed(2),
		Currency: currency,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign reference: %w", err)
	}

	return signed, nil
}

// Decode verifies the reference and restores the priced intent
func (c *Codec) Decode(ref string) (*models.PricedIntent, string, error) {
	if ref == "" {
		return nil, "", fmt.Errorf("%w: empty", ErrInvalidReference)
	}

	token, err := jwt.ParseWithClaims(ref, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, "", fmt.Errorf("%w: bad claims", ErrInvalidReference)
	}

	amount, err := decimal.NewFromString(claims.Amount)
	if err != nil {
		return nil, "", fmt.Errorf("%w: amount %q", ErrInvalidReference, claims.Amount)
	}

	return &models.PricedIntent{Intent: claims.Intent, Amount: amount}, claims.Currency, nil
}
