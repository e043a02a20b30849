package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrChargeInvalidAmount = errors.New("payment: invalid charge amount")
	ErrChargeInvalidPhone  = errors.New("payment: invalid phone number")

	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayAuthFailed      = errors.New("payment: gateway authentication failed")
	ErrGatewayRejected        = errors.New("payment: gateway rejected the request")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback payload")
)

// ChargeRequest asks the gateway to collect money from a payer's wallet.
type ChargeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	PhoneNumber string
	Description string
	// ExternalID is the caller-assigned correlation id. Generated when empty.
	ExternalID string
	PayeeNote  string
}

// Validate validates the charge request
func (r *ChargeRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrChargeInvalidAmount
	}
	if r.PhoneNumber == "" {
		return ErrChargeInvalidPhone
	}
	return nil
}

// ChargeResult is returned once the gateway has accepted a charge.
// Acceptance does not mean completion.
type ChargeResult struct {
	ReferenceID string
	ExternalID  string
	PhoneNumber string
	Status      Status
}

// StatusResult is the normalized view of a charge as reported by the gateway,
// whether obtained by polling or from a callback.
type StatusResult struct {
	ReferenceID            string
	ExternalID             string
	Status                 Status
	Amount                 decimal.Decimal
	Currency               string
	FinancialTransactionID string
	PayerMessage           string
	PayeeNote              string
	Reason                 string
	// Raw is the provider payload the result was parsed from, if any.
	Raw *CallbackData
}

// Gateway is the mobile-money collection port. Implementations hold no
// state except a cached access token.
type Gateway interface {
	// RequestToPay submits a charge. Returns once the provider accepts it.
	RequestToPay(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// GetStatus polls the provider for the current state of a charge.
	GetStatus(ctx context.Context, referenceID string) (*StatusResult, error)
	// ParseCallback turns an inbound notification body into a StatusResult.
	ParseCallback(body []byte) (*StatusResult, error)
}
