package handler

import (
	"errors"
	"net/http"

	apppayment "github.com/agricoop/backend/internal/application/payment"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/infrastructure/logger"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	// debug exposes the message of unexpected errors in responses
	debug  bool
	logger *zap.Logger
}

// NewBaseHandler creates a BaseHandler
func NewBaseHandler(debug bool, log *zap.Logger) BaseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return BaseHandler{debug: debug, logger: log}
}

// getRequestID extracts the request ID set by middleware.RequestID
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// log returns the request-scoped logger
func (h *BaseHandler) log(c *gin.Context) *zap.Logger {
	return logger.For(c.Request.Context(), h.logger)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 422 response for a single invalid field
func (h *BaseHandler) ValidationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusUnprocessableEntity, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		[]dto.ValidationDetail{{Field: field, Message: message}},
	))
}

// HandleError converts an error returned by an application service into a response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	// Gateway failures carry a reason that is safe to show
	var gatewayErr *apppayment.GatewayFailure
	if errors.As(err, &gatewayErr) {
		h.log(c).Error("Payment gateway failure", zap.String("reason", gatewayErr.Reason))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeGateway, gatewayErr.Reason, requestID))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		statusCode := dto.DomainErrorStatus(domainErr.Code)
		if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
			h.log(c).Warn("Request denied",
				append(logger.ActorFields(middleware.GetActor(c)), zap.String("code", domainErr.Code))...)
		}
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(
			dto.NormalizeErrorCode(domainErr.Code), domainErr.Message, requestID))
		return
	}

	h.log(c).Error("Unhandled error", zap.Error(err))
	message := "An unexpected error occurred"
	if h.debug {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, message, requestID))
}

// bindJSON binds the body into req, writing the 422 response on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters into req, writing the 422 response on failure
func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// paramID parses a UUID path parameter, writing a 400 response on failure
func (h *BaseHandler) paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
