package handler

import (
	"context"
	"io"
	"net/http"

	apppayment "github.com/agricoop/backend/internal/application/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxCallbackPayloadSize bounds the provider notification body
const maxCallbackPayloadSize = 64 * 1024

// PaymentService is the payment surface used by PaymentHandler
type PaymentService interface {
	Initiate(ctx context.Context, actor shared.Actor, req apppayment.InitiatePaymentRequest) (*apppayment.InitiatePaymentResult, error)
	CheckStatus(ctx context.Context, actor shared.Actor, referenceID string) (*apppayment.StatusResponse, error)
	HandleCallback(ctx context.Context, body []byte) apppayment.CallbackResult
	History(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[apppayment.PaymentResponse], error)
}

// PaymentHandler handles payment initiation, status and provider callbacks
type PaymentHandler struct {
	BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(base BaseHandler, service PaymentService) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service}
}

// Initiate charges the payer's wallet for the selected fee applications
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req apppayment.InitiatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Initiate(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Status checks a payment with the gateway. The reference comes from the
// query string on GET and from the JSON body on POST.
func (h *PaymentHandler) Status(c *gin.Context) {
	var req apppayment.StatusRequest
	if c.Request.Method == http.MethodGet {
		if !bindQuery(c, &req) {
			return
		}
	} else if !bindJSON(c, &req) {
		return
	}

	status, err := h.service.CheckStatus(c.Request.Context(), middleware.GetActor(c), req.ReferenceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// History returns the caller's payments, newest first
func (h *PaymentHandler) History(c *gin.Context) {
	var req dto.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	page, err := h.service.History(c.Request.Context(), middleware.GetActor(c), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Callback always answers 200 so the provider does not retry. Failures are
// reported in the body.
func (h *PaymentHandler) Callback(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackPayloadSize+1))
	if err != nil {
		h.log(c).Warn("Failed to read payment callback body", zap.Error(err))
		c.JSON(http.StatusOK, apppayment.CallbackResult{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxCallbackPayloadSize {
		h.log(c).Warn("Payment callback body too large", zap.Int("size", len(payload)))
		c.JSON(http.StatusOK, apppayment.CallbackResult{Message: "Payload too large"})
		return
	}

	c.JSON(http.StatusOK, h.service.HandleCallback(c.Request.Context(), payload))
}
