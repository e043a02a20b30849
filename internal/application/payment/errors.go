package payment

import "github.com/agricoop/backend/internal/domain/shared"

// ErrGateway is the code carried by GatewayFailure
var ErrGateway = shared.NewDomainError("GATEWAY_ERROR", "Payment gateway request failed")

// GatewayFailure reports a gateway call that failed. Nothing was persisted.
type GatewayFailure struct {
	Reason string
	Err    error
}

// Error returns the failure reason
func (e *GatewayFailure) Error() string {
	return e.Reason
}

// Unwrap exposes the adapter error
func (e *GatewayFailure) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrGateway) match any gateway failure
func (e *GatewayFailure) Is(target error) bool {
	return target == ErrGateway
}
