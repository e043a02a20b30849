package handler

import (
	"context"
	"net/http"
	"time"

	appfee "github.com/agricoop/backend/internal/application/fee"
	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeRuleService is the rule administration surface used by FeeRuleHandler
type FeeRuleService interface {
	Create(ctx context.Context, actor shared.Actor, in fee.RuleInput) (*appfee.FeeRuleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*appfee.FeeRuleResponse, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[appfee.FeeRuleResponse], error)
	Update(ctx context.Context, actor shared.Actor, id uuid.UUID, in fee.RuleInput) (*appfee.FeeRuleResponse, error)
	Deactivate(ctx context.Context, actor shared.Actor, id uuid.UUID) (*appfee.FeeRuleResponse, error)
	Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error
	UnitAssignments(ctx context.Context, id uuid.UUID) ([]fee.UnitAssignment, error)
}

// FeeSchedulingService is the scheduling surface used by FeeRuleHandler
type FeeSchedulingService interface {
	ApplyFeeRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID) (*appfee.ApplyResult, error)
	Schedule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, effectiveDate time.Time) (*fee.FeeRule, error)
	AssignFeeRuleToUnits(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, unitIDs []uuid.UUID, customAmounts map[uuid.UUID]decimal.Decimal) (*appfee.AssignResult, error)
	Sweep(ctx context.Context, actor shared.Actor) (*appfee.DailySweepResult, error)
}

// FeeRuleHandler handles fee rule endpoints. All routes are admin-only.
type FeeRuleHandler struct {
	BaseHandler
	rules      FeeRuleService
	scheduling FeeSchedulingService
	location   *time.Location
}

// NewFeeRuleHandler creates a new FeeRuleHandler. Dates in requests are read
// in loc.
func NewFeeRuleHandler(base BaseHandler, rules FeeRuleService, scheduling FeeSchedulingService, loc *time.Location) *FeeRuleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &FeeRuleHandler{
		BaseHandler: base,
		rules:       rules,
		scheduling:  scheduling,
		location:    loc,
	}
}

// Create handles POST /fee-rules
func (h *FeeRuleHandler) Create(c *gin.Context) {
	var req appfee.CreateFeeRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := h.ruleInput(c, req)
	if !ok {
		return
	}

	rule, err := h.rules.Create(c.Request.Context(), middleware.GetActor(c), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// List returns a page of fee rules
func (h *FeeRuleHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	page, err := h.rules.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Get returns one fee rule
func (h *FeeRuleHandler) Get(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Update replaces a fee rule's attributes
func (h *FeeRuleHandler) Update(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req appfee.UpdateFeeRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := h.ruleInput(c, req)
	if !ok {
		return
	}

	rule, err := h.rules.Update(c.Request.Context(), middleware.GetActor(c), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Deactivate stops a rule from producing new applications
func (h *FeeRuleHandler) Deactivate(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.Deactivate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete soft-deletes a fee rule
func (h *FeeRuleHandler) Delete(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Apply creates a fee application for every member the rule applies to
func (h *FeeRuleHandler) Apply(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.scheduling.ApplyFeeRule(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Schedule sets a future effective date on a rule
func (h *FeeRuleHandler) Schedule(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req appfee.ScheduleFeeRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	effective, err := time.ParseInLocation(appfee.DateLayout, req.EffectiveDate, h.location)
	if err != nil {
		h.ValidationError(c, "effective_date", "Must be a date in the format "+appfee.DateLayout)
		return
	}

	rule, err := h.scheduling.Schedule(c.Request.Context(), middleware.GetActor(c), id, effective)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfee.ToFeeRuleResponse(rule))
}

// AssignUnits handles POST /fee-rules/:id/assign-units
func (h *FeeRuleHandler) AssignUnits(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req appfee.AssignUnitsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.scheduling.AssignFeeRuleToUnits(c.Request.Context(), middleware.GetActor(c), id, req.UnitIDs, req.CustomAmounts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Units lists a rule's unit assignments
func (h *FeeRuleHandler) Units(c *gin.Context) {
	id, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	assignments, err := h.rules.UnitAssignments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfee.ToUnitAssignmentResponses(assignments))
}

// Sweep runs the daily fee sweep on demand
func (h *FeeRuleHandler) Sweep(c *gin.Context) {
	result, err := h.scheduling.Sweep(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *FeeRuleHandler) ruleInput(c *gin.Context, req appfee.CreateFeeRuleRequest) (fee.RuleInput, bool) {
	in, err := req.ToInput(h.location)
	if err != nil {
		h.ValidationError(c, "effective_date", "Must be a date in the format "+appfee.DateLayout)
		return fee.RuleInput{}, false
	}
	return in, true
}
