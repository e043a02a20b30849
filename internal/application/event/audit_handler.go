package event

import (
	"context"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes an audit trail line for every fee and payment
// state change published on the event bus.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		fee.EventTypeFeeRuleActivated,
		fee.EventTypeFeeApplicationPaid,
		payment.EventTypePaymentReconciled,
	}
}

// Handle logs the event with its domain fields
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *fee.FeeRuleActivatedEvent:
		fields = append(fields,
			zap.String("rule_name", e.Name),
			zap.Time("effective_date", e.EffectiveDate))
	case *fee.FeeApplicationPaidEvent:
		fields = append(fields,
			zap.String("fee_rule_id", e.FeeRuleID.String()),
			zap.String("user_id", e.UserID.String()),
			zap.String("amount", e.Amount.StringFixed(2)))
	case *payment.ReconciledEvent:
		fields = append(fields,
			zap.String("reference_id", e.ReferenceID),
			zap.String("status", e.Status.String()),
			zap.Int("payment_count", len(e.PaymentIDs)),
			zap.Int("paid_fee_count", len(e.PaidFeeIDs)),
			zap.String("via", e.ReconciledVia))
	default:
		h.logger.Debug("ignoring unexpected event", fields...)
		return nil
	}

	h.logger.Info("domain event", fields...)
	return nil
}
