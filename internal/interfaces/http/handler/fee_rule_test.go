package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appfee "github.com/agricoop/backend/internal/application/fee"
	"github.com/agricoop/backend/internal/domain/fee"
	"github.com/agricoop/backend/internal/domain/shared"
	"github.com/agricoop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testAdmin = shared.Actor{UserID: uuid.MustParse("5f0c4b8e-1111-4c1e-9d34-000000000001"), Role: shared.RoleAdmin}

func init() {
	middleware.SetupValidator()
}

func newFeeRuleRouter(rules *MockFeeRuleService, scheduling *MockSchedulingService) *gin.Engine {
	h := NewFeeRuleHandler(NewBaseHandler(false, nil), rules, scheduling, time.UTC)
	r := gin.New()
	g := r.Group("/fee-rules", withActor(testAdmin))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/sweep", h.Sweep)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/apply", h.Apply)
	g.POST("/:id/schedule", h.Schedule)
	g.POST("/:id/assign-units", h.AssignUnits)
	g.GET("/:id/units", h.Units)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validRuleBody = `{
	"name": "Land levy",
	"type": "land",
	"amount": "5000",
	"frequency": "monthly",
	"applicable_to": "all_members",
	"effective_date": "2026-01-01"
}`

func TestFeeRuleHandler_Create(t *testing.T) {
	rules := new(MockFeeRuleService)
	r := newFeeRuleRouter(rules, new(MockSchedulingService))

	id := uuid.New()
	rules.On("Create", mock.Anything, testAdmin, mock.MatchedBy(func(in fee.RuleInput) bool {
		return in.Name == "Land levy" &&
			in.Type == fee.RuleType("land") &&
			in.Amount.Equal(decimal.NewFromInt(5000)) &&
			in.EffectiveDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	})).Return(&appfee.FeeRuleResponse{ID: id, Name: "Land levy", Status: "active"}, nil)

	w := doJSON(r, "POST", "/fee-rules", validRuleBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, id.String(), resp.Data.(map[string]any)["id"])
	rules.AssertExpectations(t)
}

func TestFeeRuleHandler_CreateValidation(t *testing.T) {
	rules := new(MockFeeRuleService)
	r := newFeeRuleRouter(rules, new(MockSchedulingService))

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"type":"land","amount":"1","frequency":"monthly","applicable_to":"all_members","effective_date":"2026-01-01"}`, "name"},
		{"bad frequency", `{"name":"x","type":"land","amount":"1","frequency":"hourly","applicable_to":"all_members","effective_date":"2026-01-01"}`, "frequency"},
		{"bad date", `{"name":"x","type":"land","amount":"1","frequency":"monthly","applicable_to":"all_members","effective_date":"01/01/2026"}`, "effective_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "POST", "/fee-rules", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)
			require.NotEmpty(t, resp.Error.Details)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
		})
	}
	rules.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestFeeRuleHandler_GetErrors(t *testing.T) {
	rules := new(MockFeeRuleService)
	r := newFeeRuleRouter(rules, new(MockSchedulingService))

	w := doJSON(r, "GET", "/fee-rules/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := uuid.New()
	rules.On("Get", mock.Anything, id).Return(nil, fee.ErrFeeRuleNotFound)
	w = doJSON(r, "GET", "/fee-rules/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_FEE_RULE_NOT_FOUND", decodeResponse(t, w).Error.Code)
}

func TestFeeRuleHandler_List(t *testing.T) {
	rules := new(MockFeeRuleService)
	r := newFeeRuleRouter(rules, new(MockSchedulingService))

	page := shared.NewPaginated([]appfee.FeeRuleResponse{{ID: uuid.New(), Name: "Storage"}}, 3, 2, 1)
	rules.On("List", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 1 && f.Filters["status"] == "active"
	})).Return(&page, nil)

	w := doJSON(r, "GET", "/fee-rules?page=2&page_size=1&status=active", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestFeeRuleHandler_Delete(t *testing.T) {
	rules := new(MockFeeRuleService)
	r := newFeeRuleRouter(rules, new(MockSchedulingService))

	id := uuid.New()
	rules.On("Delete", mock.Anything, testAdmin, id).Return(nil)

	w := doJSON(r, "DELETE", "/fee-rules/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	rules.AssertExpectations(t)
}

func TestFeeRuleHandler_Apply(t *testing.T) {
	scheduling := new(MockSchedulingService)
	r := newFeeRuleRouter(new(MockFeeRuleService), scheduling)

	id := uuid.New()
	scheduling.On("ApplyFeeRule", mock.Anything, testAdmin, id).
		Return(&appfee.ApplyResult{RuleID: id, AppliedCount: 3, SkippedCount: 1, Errors: []appfee.ItemError{}}, nil).Once()

	w := doJSON(r, "POST", "/fee-rules/"+id.String()+"/apply", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(3), data["applied_count"])
	assert.Equal(t, float64(1), data["skipped_count"])

	scheduling.On("ApplyFeeRule", mock.Anything, testAdmin, id).Return(nil, fee.ErrRuleNotActive).Once()
	w = doJSON(r, "POST", "/fee-rules/"+id.String()+"/apply", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_FEE_RULE_NOT_ACTIVE", decodeResponse(t, w).Error.Code)
}

func TestFeeRuleHandler_Schedule(t *testing.T) {
	scheduling := new(MockSchedulingService)
	r := newFeeRuleRouter(new(MockFeeRuleService), scheduling)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	rule, err := fee.NewFeeRule(fee.RuleInput{
		Name:          "Training",
		Type:          fee.RuleType("training"),
		Amount:        decimal.NewFromInt(2500),
		Frequency:     fee.Frequency("yearly"),
		ApplicableTo:  fee.Applicability("all_members"),
		EffectiveDate: now,
	}, testAdmin.UserID, now)
	require.NoError(t, err)

	future := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	scheduling.On("Schedule", mock.Anything, testAdmin, rule.ID, mock.MatchedBy(func(d time.Time) bool {
		return d.Equal(future)
	})).Return(rule, nil).Once()

	w := doJSON(r, "POST", "/fee-rules/"+rule.ID.String()+"/schedule", `{"effective_date":"2026-06-01"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	scheduling.On("Schedule", mock.Anything, testAdmin, rule.ID, mock.Anything).
		Return(nil, fee.ErrEffectiveDateNotFuture).Once()
	w = doJSON(r, "POST", "/fee-rules/"+rule.ID.String()+"/schedule", `{"effective_date":"2026-05-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_EFFECTIVE_DATE_NOT_FUTURE", decodeResponse(t, w).Error.Code)

	w = doJSON(r, "POST", "/fee-rules/"+rule.ID.String()+"/schedule", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	scheduling.AssertExpectations(t)
}

func TestFeeRuleHandler_AssignUnits(t *testing.T) {
	scheduling := new(MockSchedulingService)
	r := newFeeRuleRouter(new(MockFeeRuleService), scheduling)

	ruleID, unitA, unitB := uuid.New(), uuid.New(), uuid.New()
	scheduling.On("AssignFeeRuleToUnits", mock.Anything, testAdmin, ruleID, []uuid.UUID{unitA, unitB},
		mock.MatchedBy(func(m map[uuid.UUID]decimal.Decimal) bool {
			return len(m) == 1 && m[unitB].Equal(decimal.NewFromInt(1200))
		})).Return(&appfee.AssignResult{RuleID: ruleID, AssignedCount: 2}, nil)

	body := `{"unit_ids":["` + unitA.String() + `","` + unitB.String() + `"],"custom_amounts":{"` + unitB.String() + `":"1200"}}`
	w := doJSON(r, "POST", "/fee-rules/"+ruleID.String()+"/assign-units", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeResponse(t, w).Data.(map[string]any)["assigned_count"])

	w = doJSON(r, "POST", "/fee-rules/"+ruleID.String()+"/assign-units", `{"unit_ids":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFeeRuleHandler_Sweep(t *testing.T) {
	scheduling := new(MockSchedulingService)
	r := newFeeRuleRouter(new(MockFeeRuleService), scheduling)

	scheduling.On("Sweep", mock.Anything, testAdmin).Return(&appfee.DailySweepResult{
		Activated: &appfee.BatchResult{Processed: 1, Updated: 1},
		Applied:   &appfee.SweepResult{Success: true, RulesChecked: 2, AppliedCount: 7},
		Overdue:   &appfee.BatchResult{},
	}, nil)

	w := doJSON(r, "POST", "/fee-rules/sweep", "")
	assert.Equal(t, http.StatusOK, w.Code)
	applied := decodeResponse(t, w).Data.(map[string]any)["applied"].(map[string]any)
	assert.Equal(t, float64(7), applied["applied_count"])
}
