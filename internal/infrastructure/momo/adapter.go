package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	tokenPath        = "/collection/token/"
	requestToPayPath = "/collection/v1_0/requesttopay"
	statusPath       = "/collection/v1_0/requesttopay/%s"

	// tokenCacheKey is shared by every instance using the same account
	tokenCacheKey = "collection_access_token"

	maxResponseBytes = 1 << 20
)

// TokenCache stores the access token between calls
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

// Client implements payment.Gateway for the MTN MoMo collection API.
// Its only state is the cached access token.
type Client struct {
	config     *Config
	httpClient *http.Client
	tokens     TokenCache
	logger     *zap.Logger
	newID      func() string
	closeFn    func() error
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenCache sets where the access token is cached
func WithTokenCache(tokens TokenCache) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// withIDGenerator overrides reference id generation in tests
func withIDGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newID = fn
	}
}

// NewClient creates a new MoMo collection client
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Client{
		config: cfg,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if c.tokens == nil {
		local := cache.NewInMemoryTokenCache()
		c.tokens = local
		c.closeFn = local.Close
	}
	return c, nil
}

// Close releases the client's own token cache, if it created one
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// AccessToken returns a bearer token, fetching a new one only when the
// cached token is missing or about to expire. Concurrent cold calls may
// both fetch; the last one written wins.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok, err := c.tokens.Get(ctx, tokenCacheKey); err != nil {
		c.logger.Warn("momo: token cache read failed", zap.Error(err))
	} else if ok {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("momo: failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.APIUser, c.config.APIKey)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.SubscriptionKey)

	status, body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayAuthFailed, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: %s", payment.ErrGatewayAuthFailed, describeError(status, body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed token response", payment.ErrGatewayAuthFailed)
	}

	if err := c.tokens.Set(ctx, tokenCacheKey, tok.AccessToken, c.tokenTTL(tok.ExpiresIn)); err != nil {
		c.logger.Warn("momo: token cache write failed", zap.Error(err))
	}
	return tok.AccessToken, nil
}

// tokenTTL is the provider lifetime minus the safety margin
func (c *Client) tokenTTL(expiresIn int64) time.Duration {
	lifetime := c.config.TokenTTL
	if expiresIn > 0 {
		lifetime = time.Duration(expiresIn) * time.Second
	}
	ttl := lifetime - c.config.TokenSafetyMargin
	if ttl <= 0 {
		ttl = lifetime / 2
	}
	return ttl
}

// RequestToPay submits a collection request. The provider answers 202 once
// it has accepted the charge; completion is reported later.
func (c *Client) RequestToPay(ctx context.Context, charge payment.ChargeRequest) (*payment.ChargeResult, error) {
	if err := charge.Validate(); err != nil {
		return nil, err
	}
	phone := NormalizePhone(charge.PhoneNumber, c.config.CountryCode)
	if len(phone) <= len(c.config.CountryCode) {
		return nil, payment.ErrChargeInvalidPhone
	}

	referenceID := c.newID()
	externalID := charge.ExternalID
	if externalID == "" {
		externalID = c.newID()
	}
	currency := charge.Currency
	if currency == "" {
		currency = c.config.Currency
	}

	payload, err := json.Marshal(requestToPayBody{
		Amount:       charge.Amount.String(),
		Currency:     currency,
		ExternalID:   externalID,
		Payer:        party{PartyIDType: "MSISDN", PartyID: phone},
		PayerMessage: charge.Description,
		PayeeNote:    charge.PayeeNote,
	})
	if err != nil {
		return nil, fmt.Errorf("momo: failed to marshal request: %w", err)
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+requestToPayPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("momo: failed to create request: %w", err)
	}
	c.setAPIHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Reference-Id", referenceID)
	if c.config.CallbackURL != "" {
		req.Header.Set("X-Callback-Url", c.config.CallbackURL)
	}

	status, body, err := c.do(req)
	if err != nil {
		c.logger.Error("momo: request to pay failed",
			zap.String("reference_id", referenceID),
			zap.String("external_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	if status != http.StatusAccepted {
		c.logger.Error("momo: request to pay rejected",
			zap.String("reference_id", referenceID),
			zap.String("external_id", externalID),
			zap.Int("status", status))
		return nil, fmt.Errorf("%w: %s", payment.ErrGatewayRejected, describeError(status, body))
	}

	c.logger.Info("momo: request to pay accepted",
		zap.String("reference_id", referenceID),
		zap.String("external_id", externalID))
	return &payment.ChargeResult{
		ReferenceID: referenceID,
		ExternalID:  externalID,
		PhoneNumber: phone,
		Status:      payment.StatusPending,
	}, nil
}

// GetStatus polls the provider for the state of a previous charge
func (c *Client) GetStatus(ctx context.Context, referenceID string) (*payment.StatusResult, error) {
	if strings.TrimSpace(referenceID) == "" {
		return nil, fmt.Errorf("%w: empty reference id", payment.ErrGatewayRejected)
	}
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.config.BaseURL + fmt.Sprintf(statusPath, url.PathEscape(referenceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("momo: failed to create request: %w", err)
	}
	c.setAPIHeaders(req, token)

	status, body, err := c.do(req)
	if err != nil {
		c.logger.Error("momo: status check failed",
			zap.String("reference_id", referenceID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", payment.ErrGatewayRejected, describeError(status, body))
	}

	var ts transactionStatus
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	res := toStatusResult(&ts)
	res.ReferenceID = referenceID
	return res, nil
}

// ParseCallback turns a notification body into a StatusResult. It persists
// nothing and makes no network calls.
func (c *Client) ParseCallback(body []byte) (*payment.StatusResult, error) {
	return ParseCallback(body)
}

// ParseCallback is the stateless form of Client.ParseCallback
func ParseCallback(body []byte) (*payment.StatusResult, error) {
	var ts transactionStatus
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidCallback, err)
	}
	res := toStatusResult(&ts)
	res.Raw = &payment.CallbackData{
		ReferenceID:            ts.ReferenceID,
		ExternalID:             ts.ExternalID,
		Status:                 ts.Status,
		Amount:                 ts.Amount,
		Currency:               ts.Currency,
		FinancialTransactionID: ts.FinancialTransactionID,
		PayerMessage:           ts.PayerMessage,
		PayeeNote:              ts.PayeeNote,
		Reason:                 ts.Reason,
		Raw:                    json.RawMessage(append([]byte(nil), body...)),
	}
	return res, nil
}

func toStatusResult(ts *transactionStatus) *payment.StatusResult {
	res := &payment.StatusResult{
		ReferenceID:            ts.ReferenceID,
		ExternalID:             ts.ExternalID,
		Status:                 payment.NormalizeStatus(ts.Status),
		Currency:               ts.Currency,
		FinancialTransactionID: ts.FinancialTransactionID,
		PayerMessage:           ts.PayerMessage,
		PayeeNote:              ts.PayeeNote,
		Reason:                 parseReason(ts.Reason),
	}
	if amount, err := decimal.NewFromString(ts.Amount); err == nil {
		res.Amount = amount
	}
	return res
}

// parseReason accepts both the string and the {code, message} forms
func parseReason(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj reasonObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Code != "" {
			return obj.Code
		}
		return obj.Message
	}
	return string(raw)
}

func (c *Client) setAPIHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.SubscriptionKey)
	req.Header.Set("X-Target-Environment", c.config.TargetEnvironment)
}

// do sends req and returns the status code and a bounded body
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func describeError(status int, body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Code != "" || errResp.Message != "") {
		return fmt.Sprintf("HTTP %d %s - %s", status, errResp.Code, errResp.Message)
	}
	return fmt.Sprintf("HTTP %d", status)
}

// NormalizePhone converts a phone number to international MSISDN digits.
// Non-digits are dropped, a leading 00 or trunk 0 is replaced, and the
// country code ends up present exactly once.
func NormalizePhone(raw, countryCode string) string {
	digits := onlyDigits(raw)
	cc := onlyDigits(countryCode)
	if digits == "" || cc == "" {
		return digits
	}

	switch {
	case strings.HasPrefix(digits, "00"+cc):
		return digits[2:]
	case strings.HasPrefix(digits, cc):
		return digits
	case strings.HasPrefix(digits, "0"):
		return cc + digits[1:]
	default:
		return cc + digits
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NotConfigured is the gateway used when no MoMo credentials are set. Every
// outbound call fails with payment.ErrGatewayNotConfigured; callbacks are
// still parsed.
type NotConfigured struct{}

// RequestToPay always fails
func (NotConfigured) RequestToPay(context.Context, payment.ChargeRequest) (*payment.ChargeResult, error) {
	return nil, payment.ErrGatewayNotConfigured
}

// GetStatus always fails
func (NotConfigured) GetStatus(context.Context, string) (*payment.StatusResult, error) {
	return nil, payment.ErrGatewayNotConfigured
}

// ParseCallback parses the notification body
func (NotConfigured) ParseCallback(body []byte) (*payment.StatusResult, error) {
	return ParseCallback(body)
}

var (
	_ payment.Gateway = (*Client)(nil)
	_ payment.Gateway = NotConfigured{}
	_ TokenCache      = (*cache.InMemoryTokenCache)(nil)
	_ TokenCache      = (*cache.RedisTokenCache)(nil)
)

// IsConfigurationError reports whether err came from Config.Validate
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingBaseURL) ||
		errors.Is(err, ErrMissingSubscriptionKey) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrMissingCountryCode) ||
		errors.Is(err, ErrInvalidCountryCode)
}
