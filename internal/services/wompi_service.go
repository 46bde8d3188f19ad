package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/models"
)

const (
	maxResponseBytes = 1 << 20
	tokenSafetyGap   = 60 * time.Second

	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
	WebhookSignatureHeader = "wompi_hash"

	// WebhookApprovedStatus is the approval value of the webhook estado field
	WebhookApprovedStatus = "APROBADO"
)

// WompiService handles payment gateway integration with Wompi
type WompiService struct {
	config *config.WompiConfig
	logger *logrus.Logger
	client *http.Client
	tokens TokenCache
}

// WompiTokenResponse represents the OAuth client-credentials response
type WompiTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// WompiLinkValidity represents the link validity window
type WompiLinkValidity struct {
	Type  string `json:"tipo"`
	Value int    `json:"valor"`
}

// WompiLinkRequest represents the request sent to create a payment link
type WompiLinkRequest struct {
	ProductName        string            `json:"nombreProducto"`
	ProductDescription string            `json:"descripcionProducto"`
	MerchantReference  string            `json:"identificadorEnlaceComercio"`
	Amount             json.Number       `json:"monto"`
	Currency           string            `json:"moneda"`
	AvailableQuantity  int               `json:"cantidadDisponible"`
	Validity           WompiLinkValidity `json:"vigencia"`
	RedirectURL        string            `json:"urlRedirect"`
}

// WompiLinkResponse represents the payment link response
type WompiLinkResponse struct {
	LinkID  flexibleID `json:"idEnlace"`
	LinkURL string     `json:"urlEnlace"`
	QRURL   string     `json:"urlQrCodeEnlace,omitempty"`
}

// WompiTransactionResponse represents the transaction lookup response
type WompiTransactionResponse struct {
	Data *struct {
		ID        flexibleID       `json:"id"`
		Status    string           `json:"status"`
		Reference string           `json:"reference"`
		Amount    *decimal.Decimal `json:"amount,omitempty"`
	} `json:"data"`
}

// WompiWebhookPayload represents the asynchronous notification body
type WompiWebhookPayload struct {
	Status            string           `json:"estado"`
	TransactionID     flexibleID       `json:"idTransaccion"`
	MerchantReference string           `json:"identificadorEnlaceComercio"`
	Amount            *decimal.Decimal `json:"monto,omitempty"`
	PaymentLink       *struct {
		ID                flexibleID `json:"Id"`
		MerchantReference string     `json:"IdentificadorEnlaceComercio"`
	} `json:"EnlacePago,omitempty"`
}

// Reference returns the merchant reference wherever the provider put it
func (p *WompiWebhookPayload) Reference() string {
	if p.MerchantReference != "" {
		return p.MerchantReference
	}
	if p.PaymentLink != nil {
		return p.PaymentLink.MerchantReference
	}
	return ""
}

// IsApproved reports whether the webhook announces an approved payment
func (p *WompiWebhookPayload) IsApproved() bool {
	return NormalizeTransactionStatus(p.Status).IsApproved()
}

// CreateLinkParams contains all parameters needed to create a payment link
type CreateLinkParams struct {
	ProductName string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	Description string
	Expiry      time.Duration
	RedirectURL string
}

// NewWompiService creates a new Wompi payment service
func NewWompiService(cfg *config.WompiConfig, tokens TokenCache, logger *logrus.Logger) *WompiService {
	if tokens == nil {
		tokens = NewMemoryTokenCache()
	}
	return &WompiService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: tokens,
	}
}

// Authenticate obtains an access token with the client-credentials grant
func (s *WompiService) Authenticate(ctx context.Context) (string, error) {
	if token, ok := s.tokens.Get(ctx); ok {
		return token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"audience":      {s.config.Audience},
	}

	status, body, err := s.do(ctx, http.MethodPost, s.config.AuthURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), "")
	if err != nil {
		return "", s.transportError("authenticate", err)
	}

	if status < 200 || status > 299 {
		return "", &GatewayError{Kind: ErrGatewayAuth, Op: "authenticate", StatusCode: status, Body: truncate(body)}
	}

	var tokenResp WompiTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &GatewayError{Kind: ErrGatewayAuth, Op: "authenticate", StatusCode: status, Body: truncate(body), Err: err}
	}
	if tokenResp.AccessToken == "" {
		return "", &GatewayError{Kind: ErrGatewayAuth, Op: "authenticate", StatusCode: status, Body: truncate(body), Err: errors.New("no access_token in response")}
	}

	if ttl := time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSafetyGap; ttl > 0 {
		s.tokens.Set(ctx, tokenResp.AccessToken, ttl)
	}

	s.logger.WithField("expires_in", tokenResp.ExpiresIn).Debug("Wompi access token obtained")

	return tokenResp.AccessToken, nil
}

// CreateLink requests a payment link for the given amount and reference
func (s *WompiService) CreateLink(ctx context.Context, params *CreateLinkParams) (*models.PaymentLink, error) {
	token, err := s.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	request := &WompiLinkRequest{
		ProductName:        params.ProductName,
		ProductDescription: params.Description,
		MerchantReference:  params.Reference,
		Amount:             json.Number(params.Amount.StringFixed(2)),
		Currency:           params.Currency,
		AvailableQuantity:  1,
		Validity: WompiLinkValidity{
			Type:  "MINUTOS",
			Value: int(params.Expiry / time.Minute),
		},
		RedirectURL: params.RedirectURL,
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := s.config.APIBaseURL + "/EnlacePago"

	s.logger.WithFields(logrus.Fields{
		"amount":   request.Amount,
		"currency": request.Currency,
		"endpoint": endpoint,
	}).Info("Creating Wompi payment link")

	status, body, err := s.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(jsonBody), token)
	if err != nil {
		return nil, s.transportError("create_link", err)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		s.tokens.Invalidate(ctx)
		return nil, &GatewayError{Kind: ErrGatewayAuth, Op: "create_link", StatusCode: status, Body: truncate(body)}
	}
	if status >= 500 {
		return nil, &GatewayError{Kind: ErrTransientNetwork, Op: "create_link", StatusCode: status, Body: truncate(body)}
	}

	var linkResp WompiLinkResponse
	if err := json.Unmarshal(body, &linkResp); err != nil {
		s.logger.WithFields(logrus.Fields{
			"status_code": status,
			"body":        truncate(body),
		}).Error("Failed to parse Wompi link response")
		return nil, &GatewayError{Kind: ErrLinkCreation, Op: "create_link", StatusCode: status, Body: truncate(body), Err: err}
	}

	if status < 200 || status > 299 || linkResp.LinkURL == "" {
		return nil, &GatewayError{Kind: ErrLinkCreation, Op: "create_link", StatusCode: status, Body: truncate(body), Err: errors.New("no urlEnlace in response")}
	}

	if _, err := url.ParseRequestURI(linkResp.LinkURL); err != nil {
		return nil, &GatewayError{Kind: ErrLinkCreation, Op: "create_link", StatusCode: status, Body: truncate(body), Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"link_id":  string(linkResp.LinkID),
		"link_url": linkResp.LinkURL,
	}).Info("Wompi payment link created")

	return &models.PaymentLink{ID: string(linkResp.LinkID), URL: linkResp.LinkURL}, nil
}

// GetTransaction queries the provider for the status of a transaction.
// A non-approved status is returned as a normal result.
func (s *WompiService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if transactionID == "" {
		return nil, &GatewayError{Kind: ErrNotFound, Op: "get_transaction", Err: errors.New("empty transaction id")}
	}

	bearer := s.config.PrivateKey
	if bearer == "" {
		token, err := s.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		bearer = token
	}

	endpoint := fmt.Sprintf("%s/transactions/%s", s.config.APIBaseURL, url.PathEscape(transactionID))

	s.logger.WithField("transaction_id", transactionID).Info("Checking Wompi transaction status")

	status, body, err := s.do(ctx, http.MethodGet, endpoint, "", nil, bearer)
	if err != nil {
		return nil, s.transportError("get_transaction", err)
	}

	switch {
	case status == http.StatusNotFound:
		return nil, &GatewayError{Kind: ErrNotFound, Op: "get_transaction", StatusCode: status, Body: truncate(body)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if s.config.PrivateKey == "" {
			s.tokens.Invalidate(ctx)
		}
		return nil, &GatewayError{Kind: ErrGatewayAuth, Op: "get_transaction", StatusCode: status, Body: truncate(body)}
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, &GatewayError{Kind: ErrTransientNetwork, Op: "get_transaction", StatusCode: status, Body: truncate(body)}
	case status < 200 || status > 299:
		return nil, &GatewayError{Kind: ErrInvalidResponse, Op: "get_transaction", StatusCode: status, Body: truncate(body)}
	}

	var txResp WompiTransactionResponse
	if err := json.Unmarshal(body, &txResp); err != nil {
		return nil, &GatewayError{Kind: ErrInvalidResponse, Op: "get_transaction", StatusCode: status, Body: truncate(body), Err: err}
	}
	if txResp.Data == nil || txResp.Data.Status == "" {
		return nil, &GatewayError{Kind: ErrInvalidResponse, Op: "get_transaction", StatusCode: status, Body: truncate(body), Err: errors.New("missing data.status")}
	}

	id := string(txResp.Data.ID)
	if id == "" {
		id = transactionID
	}

	return &models.Transaction{
		ID:        id,
		Status:    NormalizeTransactionStatus(txResp.Data.Status),
		Reference: txResp.Data.Reference,
		Amount:    txResp.Data.Amount,
	}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a raw webhook body
func (s *WompiService) VerifyWebhookSignature(body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrWebhookAuthenticity, WebhookSignatureHeader)
	}

	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrWebhookAuthenticity)
	}

	if !hmac.Equal(provided, SignWebhookBody(s.config.IntegritySecret, body)) {
		return fmt.Errorf("%w: signature mismatch", ErrWebhookAuthenticity)
	}

	return nil
}

// ParseWebhook decodes a webhook body that already passed signature verification
func (s *WompiService) ParseWebhook(body []byte) (*WompiWebhookPayload, error) {
	var payload WompiWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if payload.Status == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing estado")
	}
	return &payload, nil
}

// Currency returns the configured charge currency
func (s *WompiService) Currency() string {
	return s.config.Currency
}

// SignWebhookBody computes the webhook signature for body
func SignWebhookBody(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// NormalizeTransactionStatus maps provider spellings onto TransactionStatus
func NormalizeTransactionStatus(raw string) models.TransactionStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVED", "APROBADO", "APROBADA", "EXITOSAAPROBADA":
		return models.TransactionApproved
	case "PENDING", "PENDIENTE":
		return models.TransactionPending
	case "DECLINED", "RECHAZADO", "RECHAZADA", "DECLINADA":
		return models.TransactionDeclined
	case "VOIDED", "ANULADO", "ANULADA":
		return models.TransactionVoided
	default:
		return models.TransactionError
	}
}

func (s *WompiService) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, bearer string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
	}).Debug("Wompi response received")

	return resp.StatusCode, respBody, nil
}

// transportError classifies I/O failures; every one of them is retryable
func (s *WompiService) transportError(op string, err error) error {
	s.logger.WithError(err).WithField("op", op).Warn("Wompi call failed")
	return &GatewayError{Kind: ErrTransientNetwork, Op: op, Err: err}
}

// flexibleID accepts ids sent either as JSON numbers or strings
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	*f = flexibleID(strings.Trim(s, `"`))
	return nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
