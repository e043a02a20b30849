package handler

import (
	"context"
	"net/http"

	appfee "github.com/agricoop/backend/internal/application/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FeeApplicationService lists fee applications
type FeeApplicationService interface {
	ListApplications(ctx context.Context, actor shared.Actor, userID *uuid.UUID, filter shared.Filter) (*shared.Paginated[appfee.FeeApplicationResponse], error)
}

// ListFeeApplicationsQuery are the query parameters of GET /fee-applications.
// UserID is honoured for admins only.
type ListFeeApplicationsQuery struct {
	dto.ListRequest
	UserID    string `form:"user_id" binding:"omitempty,uuid"`
	FeeRuleID string `form:"fee_rule_id" binding:"omitempty,uuid"`
}

// FeeApplicationHandler serves a member's own fee applications
type FeeApplicationHandler struct {
	BaseHandler
	service FeeApplicationService
}

// NewFeeApplicationHandler creates a new FeeApplicationHandler
func NewFeeApplicationHandler(base BaseHandler, service FeeApplicationService) *FeeApplicationHandler {
	return &FeeApplicationHandler{BaseHandler: base, service: service}
}

// List returns the caller's fee applications, filtered by status or rule
func (h *FeeApplicationHandler) List(c *gin.Context) {
	var q ListFeeApplicationsQuery
	if !bindQuery(c, &q) {
		return
	}

	filter := q.ToFilter()
	if q.FeeRuleID != "" {
		filter.Filters["fee_rule_id"] = q.FeeRuleID
	}
	var userID *uuid.UUID
	if q.UserID != "" {
		id := uuid.MustParse(q.UserID)
		userID = &id
	}

	page, err := h.service.ListApplications(c.Request.Context(), middleware.GetActor(c), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}
