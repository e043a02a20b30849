package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCurrency    = "EUR"
	defaultCallbackTTL = 24 * time.Hour
)

// Service orchestrates charges against the mobile-money gateway and keeps
// local payments and fee applications in line with the gateway's view.
//
// Payment rows are only written after the gateway accepted a charge. Status
// checks and callbacks both end in Reconcile, so receiving the same terminal
// status twice never applies its side effects twice.
type Service struct {
	txScope         TransactionScope
	paymentRepo     payment.Repository
	feeAppRepo      fee.FeeApplicationRepository
	gateway         payment.Gateway
	idempotency     shared.IdempotencyStore
	eventPublisher  shared.EventPublisher
	clock           shared.Clock
	logger          *zap.Logger
	currency        string
	amountTolerance decimal.Decimal
	callbackTTL     time.Duration
}

// ServiceConfig holds the dependencies of Service
type ServiceConfig struct {
	TxScope        TransactionScope
	PaymentRepo    payment.Repository
	FeeAppRepo     fee.FeeApplicationRepository
	Gateway        payment.Gateway
	Idempotency    shared.IdempotencyStore // optional
	EventPublisher shared.EventPublisher   // optional
	Clock          shared.Clock
	Logger         *zap.Logger
	Currency       string
	// AmountTolerance is the largest accepted difference between the
	// requested amount and the sum of the selected fees. Defaults to 0.01.
	AmountTolerance decimal.Decimal
	// CallbackTTL is how long a processed callback is remembered.
	CallbackTTL time.Duration
}

// NewService creates a new payment Service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = shared.NewSystemClock(nil)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	tolerance := cfg.AmountTolerance
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = decimal.NewFromFloat(0.01)
	}
	ttl := cfg.CallbackTTL
	if ttl <= 0 {
		ttl = defaultCallbackTTL
	}
	return &Service{
		txScope:         cfg.TxScope,
		paymentRepo:     cfg.PaymentRepo,
		feeAppRepo:      cfg.FeeAppRepo,
		gateway:         cfg.Gateway,
		idempotency:     cfg.Idempotency,
		eventPublisher:  cfg.EventPublisher,
		clock:           clock,
		logger:          logger,
		currency:        currency,
		amountTolerance: tolerance,
		callbackTTL:     ttl,
	}
}

// Initiate validates the selected fee applications, asks the gateway to
// charge the payer and records one payment per fee application.
func (s *Service) Initiate(ctx context.Context, actor shared.Actor, req InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	if !actor.IsAuthenticated() {
		s.logger.Warn("Unauthenticated payment initiation rejected")
		return nil, shared.ErrUnauthorized
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, payment.ErrInvalidPaymentAmount
	}

	feeIDs := req.FeeIDs()
	apps, err := s.checkFeeApplications(ctx, actor, feeIDs, req.Amount)
	if err != nil {
		return nil, err
	}

	paymentType := payment.Type(req.PaymentType)
	if paymentType == "" {
		paymentType = payment.TypeSingle
	}
	if len(feeIDs) > 1 {
		paymentType = payment.TypeBulk
	}

	charge, err := s.gateway.RequestToPay(ctx, payment.ChargeRequest{
		Amount:      req.Amount,
		Currency:    s.currency,
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
		PayeeNote:   req.Description,
	})
	if err != nil {
		s.logger.Error("Gateway rejected payment initiation",
			zap.String("user_id", actor.UserID.String()),
			zap.Int("fee_application_count", len(feeIDs)),
			zap.Error(err))
		return nil, &GatewayFailure{Reason: gatewayReason(err), Err: err}
	}

	now := s.clock.Now()
	rows := make([]*payment.Payment, 0, len(apps)+1)
	if len(apps) == 0 {
		rows = append(rows, payment.NewPendingPayment(actor.UserID, nil, req.Amount, charge, s.currency, req.Description, paymentType, now))
	}
	for i := range apps {
		feeID := apps[i].ID
		rows = append(rows, payment.NewPendingPayment(actor.UserID, &feeID, apps[i].Amount, charge, s.currency, req.Description, paymentType, now))
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.PaymentRepo().CreateBatch(ctx, rows)
	})
	if err != nil {
		// The charge is live at the provider but has no local row.
		s.logger.Error("Failed to record accepted charge",
			zap.String("reference_id", charge.ReferenceID),
			zap.String("external_id", charge.ExternalID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	result := &InitiatePaymentResult{
		ReferenceID:       charge.ReferenceID,
		ExternalID:        charge.ExternalID,
		Status:            payment.StatusPending.String(),
		Amount:            req.Amount,
		Currency:          s.currency,
		PhoneNumber:       charge.PhoneNumber,
		PaymentType:       string(paymentType),
		PaymentIDs:        make([]uuid.UUID, len(rows)),
		FeeApplicationIDs: feeIDs,
		Message:           "Payment request sent. Approve the prompt on your phone to complete it.",
	}
	for i, p := range rows {
		result.PaymentIDs[i] = p.ID
	}

	s.logger.Info("Payment initiated",
		zap.String("reference_id", charge.ReferenceID),
		zap.String("user_id", actor.UserID.String()),
		zap.String("payment_type", string(paymentType)),
		zap.Int("row_count", len(rows)))
	return result, nil
}

// checkFeeApplications loads the selected applications in request order and
// runs the pre-charge checks: ownership, not paid, a positive amount, nothing
// in flight and a matching total.
func (s *Service) checkFeeApplications(ctx context.Context, actor shared.Actor, feeIDs []uuid.UUID, amount decimal.Decimal) ([]fee.FeeApplication, error) {
	if len(feeIDs) == 0 {
		return nil, nil
	}

	found, err := s.feeAppRepo.FindByIDsForUser(ctx, feeIDs, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee applications: %w", err)
	}
	byID := make(map[uuid.UUID]fee.FeeApplication, len(found))
	for _, app := range found {
		byID[app.ID] = app
	}

	apps := make([]fee.FeeApplication, 0, len(feeIDs))
	for _, id := range feeIDs {
		app, ok := byID[id]
		if !ok {
			s.logger.Warn("Fee application not found for payer",
				zap.String("user_id", actor.UserID.String()),
				zap.String("fee_application_id", id.String()))
			return nil, fee.ErrFeeApplicationNotFound
		}
		apps = append(apps, app)
	}

	for i := range apps {
		if apps[i].IsPaid() {
			return nil, payment.ErrFeeAlreadyPaid
		}
		// Payment rows require a positive amount, so a zero fee could never
		// be recorded after the charge.
		if !apps[i].Amount.IsPositive() {
			return nil, payment.ErrNothingDue
		}
	}

	inFlight, err := s.paymentRepo.PendingFeeApplicationIDs(ctx, feeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending payments: %w", err)
	}
	if len(inFlight) > 0 {
		return nil, payment.ErrPaymentInProgress
	}

	total := decimal.Zero
	for i := range apps {
		total = total.Add(apps[i].Amount)
	}
	if total.Sub(amount).Abs().GreaterThan(s.amountTolerance) {
		return nil, payment.ErrAmountMismatch
	}
	return apps, nil
}

// CheckStatus polls the gateway for one of the actor's payments and
// reconciles every row sharing its reference.
func (s *Service) CheckStatus(ctx context.Context, actor shared.Actor, referenceID string) (*StatusResponse, error) {
	if !actor.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}

	owned, err := s.paymentRepo.FindByReferenceForUser(ctx, referenceID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if len(owned) == 0 {
		return nil, payment.ErrPaymentNotFound
	}

	res, err := s.gateway.GetStatus(ctx, referenceID)
	if err != nil {
		s.logger.Error("Gateway status check failed",
			zap.String("reference_id", referenceID),
			zap.Error(err))
		return nil, &GatewayFailure{Reason: gatewayReason(err), Err: err}
	}

	rec, err := s.Reconcile(ctx, referenceID, res, ViaStatusCheck)
	if err != nil {
		return nil, err
	}
	return toStatusResponse(rec), nil
}

// HandleCallback processes a gateway notification. It never returns an
// error: every failure is reported in the result so the provider always
// receives a 200.
func (s *Service) HandleCallback(ctx context.Context, body []byte) CallbackResult {
	res, err := s.gateway.ParseCallback(body)
	if err != nil {
		s.logger.Warn("Rejected malformed payment callback", zap.Error(err))
		return CallbackResult{Success: false, Message: "Invalid callback payload"}
	}
	if res.ReferenceID == "" {
		s.logger.Warn("Payment callback without reference id")
		return CallbackResult{Success: false, Message: "Missing reference id"}
	}

	if res.Raw != nil && res.Raw.ReceivedAt.IsZero() {
		res.Raw.ReceivedAt = s.clock.Now()
	}
	result := CallbackResult{ReferenceID: res.ReferenceID, Status: res.Status.String()}

	key := res.ReferenceID + ":" + res.Status.String()
	claimed := false
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.callbackTTL)
		switch {
		case err != nil:
			// Reconcile is idempotent on its own; carry on without the guard.
			s.logger.Warn("Callback idempotency check failed",
				zap.String("reference_id", res.ReferenceID),
				zap.Error(err))
		case !fresh:
			result.Success = true
			result.Duplicate = true
			result.Message = "Callback already processed"
			return result
		default:
			claimed = true
		}
	}

	rec, err := s.Reconcile(ctx, res.ReferenceID, res, ViaCallback)
	if err != nil {
		if claimed {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				s.logger.Warn("Failed to release callback key",
					zap.String("reference_id", res.ReferenceID),
					zap.Error(relErr))
			}
		}
		if errors.Is(err, payment.ErrPaymentNotFound) {
			s.logger.Warn("Payment callback for unknown reference",
				zap.String("reference_id", res.ReferenceID))
			result.Message = "Payment not found"
			return result
		}
		s.logger.Error("Failed to process payment callback",
			zap.String("reference_id", res.ReferenceID),
			zap.Error(err))
		result.Message = "Failed to process callback"
		return result
	}

	result.Success = true
	result.Updated = rec.Changed
	result.Message = "Callback processed"
	return result
}

// History returns one page of the actor's own payments
func (s *Service) History(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[PaymentResponse], error) {
	if !actor.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	filter = filter.Normalize()
	items, total, err := s.paymentRepo.FindByUser(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	page := shared.NewPaginated(ToPaymentResponses(items), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Reconcile brings every payment sharing referenceID in line with res and,
// on success, settles the linked fee applications. Rows already carrying the
// reported status are left alone, which makes repeated deliveries no-ops.
// Events are published after commit.
func (s *Service) Reconcile(ctx context.Context, referenceID string, res *payment.StatusResult, via string) (*ReconcileResult, error) {
	if res == nil {
		return nil, fmt.Errorf("reconcile %s: missing status", referenceID)
	}

	var (
		result *ReconcileResult
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		events = nil
		rows, err := repos.PaymentRepo().FindByReferenceForUpdate(ctx, referenceID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return payment.ErrPaymentNotFound
		}

		now := s.clock.Now()
		result = &ReconcileResult{ReferenceID: referenceID, Status: res.Status, PaidFeeApplicationIDs: []uuid.UUID{}}

		var changedIDs, settleIDs []uuid.UUID
		for i := range rows {
			p := &rows[i]
			if !p.ApplyStatus(res, now) {
				continue
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save payment %s: %w", p.ID, err)
			}
			changedIDs = append(changedIDs, p.ID)
			if p.Status.IsSuccess() && p.FeeApplicationID != nil {
				settleIDs = append(settleIDs, *p.FeeApplicationID)
			}
		}
		result.Payments = rows
		result.UpdatedPayments = len(changedIDs)
		result.Changed = len(changedIDs) > 0

		if len(settleIDs) > 0 {
			apps, err := repos.FeeApplicationRepo().FindByIDs(ctx, settleIDs)
			if err != nil {
				return fmt.Errorf("failed to load fee applications: %w", err)
			}
			for i := range apps {
				app := &apps[i]
				if !app.MarkPaid(now) {
					continue
				}
				events = append(events, app.GetDomainEvents()...)
				app.ClearDomainEvents()
				if err := repos.FeeApplicationRepo().Save(ctx, app); err != nil {
					return fmt.Errorf("failed to settle fee application %s: %w", app.ID, err)
				}
				result.PaidFeeApplicationIDs = append(result.PaidFeeApplicationIDs, app.ID)
			}
		}

		if result.Changed {
			events = append([]shared.DomainEvent{
				payment.NewReconciledEvent(referenceID, res.Status, changedIDs, result.PaidFeeApplicationIDs, via, now),
			}, events...)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, payment.ErrPaymentNotFound) {
			s.logger.Error("Payment reconciliation failed",
				zap.String("reference_id", referenceID),
				zap.String("via", via),
				zap.Error(err))
		}
		return nil, err
	}

	if result.Changed {
		s.logger.Info("Payment reconciled",
			zap.String("reference_id", referenceID),
			zap.String("status", res.Status.String()),
			zap.String("via", via),
			zap.Int("updated_payments", result.UpdatedPayments),
			zap.Int("paid_fee_applications", len(result.PaidFeeApplicationIDs)))
	}
	s.publish(ctx, events)
	return result, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payment events", zap.Error(err))
	}
}

func toStatusResponse(rec *ReconcileResult) *StatusResponse {
	resp := &StatusResponse{
		ReferenceID:           rec.ReferenceID,
		Status:                rec.Status.String(),
		TotalAmount:           decimal.Zero,
		Updated:               rec.Changed,
		PaidFeeApplicationIDs: rec.PaidFeeApplicationIDs,
		Payments:              ToPaymentResponses(rec.Payments),
	}
	for i := range rec.Payments {
		p := &rec.Payments[i]
		resp.TotalAmount = resp.TotalAmount.Add(p.Amount)
		resp.Currency = p.Currency
		// rows of one reference agree once reconciled
		resp.Status = p.Status.String()
		if p.FinancialTransactionID != "" {
			resp.FinancialTransactionID = p.FinancialTransactionID
		}
		if p.Reason != "" {
			resp.Reason = p.Reason
		}
	}
	return resp
}

// gatewayReason turns an adapter error into a message safe to show the payer
func gatewayReason(err error) string {
	switch {
	case errors.Is(err, payment.ErrChargeInvalidPhone):
		return "Invalid phone number"
	case errors.Is(err, payment.ErrGatewayAuthFailed):
		return "Payment service authentication failed"
	case errors.Is(err, payment.ErrGatewayRejected):
		return "Payment request was rejected by the provider"
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return "Payment service is temporarily unavailable"
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		return "Payment service is not configured"
	}
	return "Payment gateway error"
}
