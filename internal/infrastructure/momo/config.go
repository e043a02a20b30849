package momo

import (
	"errors"
	"strings"
	"time"

	"github.com/agricoop/backend/internal/infrastructure/config"
)

// Config contains the collection API settings of one MoMo account
type Config struct {
	// BaseURL is the API root, e.g. https://sandbox.momodeveloper.mtn.com
	BaseURL string
	// SubscriptionKey is the collection product's Ocp-Apim-Subscription-Key
	SubscriptionKey string
	// APIUser and APIKey are the client credentials exchanged for a token
	APIUser string
	APIKey  string
	// TargetEnvironment is sent as X-Target-Environment
	TargetEnvironment string
	// CallbackURL receives asynchronous status notifications. Optional.
	CallbackURL string
	// Currency is used when a charge does not carry its own
	Currency string
	// CountryCode is the dialling code prefixed to local phone numbers
	CountryCode string
	Timeout     time.Duration
	// TokenTTL is used when the provider omits expires_in
	TokenTTL time.Duration
	// TokenSafetyMargin is subtracted from the token lifetime before caching
	TokenSafetyMargin time.Duration
}

// Errors for configuration validation
var (
	ErrMissingBaseURL         = errors.New("momo: missing base URL")
	ErrMissingSubscriptionKey = errors.New("momo: missing subscription key")
	ErrMissingCredentials     = errors.New("momo: missing API user or API key")
	ErrMissingCountryCode     = errors.New("momo: missing country code")
	ErrInvalidCountryCode     = errors.New("momo: country code must contain digits only")
)

// NewConfig builds a Config from the application configuration
func NewConfig(cfg config.MomoConfig) *Config {
	return &Config{
		BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		SubscriptionKey:   cfg.SubscriptionKey,
		APIUser:           cfg.APIUser,
		APIKey:            cfg.APIKey,
		TargetEnvironment: cfg.TargetEnvironment,
		CallbackURL:       cfg.CallbackURL,
		Currency:          cfg.Currency,
		CountryCode:       cfg.CountryCode,
		Timeout:           cfg.Timeout,
		TokenTTL:          cfg.TokenTTL,
		TokenSafetyMargin: cfg.TokenSafetyMargin,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.SubscriptionKey == "" {
		return ErrMissingSubscriptionKey
	}
	if c.APIUser == "" || c.APIKey == "" {
		return ErrMissingCredentials
	}
	if c.CountryCode == "" {
		return ErrMissingCountryCode
	}
	if onlyDigits(c.CountryCode) != c.CountryCode {
		return ErrInvalidCountryCode
	}
	return nil
}

func (c *Config) withDefaults() *Config {
	out := *c
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	if out.TargetEnvironment == "" {
		out.TargetEnvironment = "sandbox"
	}
	if out.Currency == "" {
		out.Currency = "EUR"
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.TokenTTL <= 0 {
		out.TokenTTL = time.Hour
	}
	if out.TokenSafetyMargin < 0 || out.TokenSafetyMargin >= out.TokenTTL {
		out.TokenSafetyMargin = 5 * time.Minute
	}
	return &out
}
