package momo

import "encoding/json"

// tokenResponse is returned by the token endpoint
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// errorResponse is the provider's error body
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// party identifies the payer wallet
type party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// requestToPayBody is the body of a collection request
type requestToPayBody struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        party  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// transactionStatus is both the status poll response and the callback body.
// Reason is a string in some API versions and an object in others.
type transactionStatus struct {
	ReferenceID            string          `json:"referenceId,omitempty"`
	Amount                 string          `json:"amount"`
	Currency               string          `json:"currency"`
	FinancialTransactionID string          `json:"financialTransactionId"`
	ExternalID             string          `json:"externalId"`
	Payer                  *party          `json:"payer,omitempty"`
	PayerMessage           string          `json:"payerMessage"`
	PayeeNote              string          `json:"payeeNote"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
}

// reasonObject is the structured form of Reason
type reasonObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
