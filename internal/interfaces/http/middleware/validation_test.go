package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      int    `validate:"max=10"`
		UUID     string `validate:"uuid"`
		OneOf    string `validate:"oneof=monthly yearly"`
		Date     string `validate:"datetime=2006-01-02"`
	}

	v := validator.New()
	err := v.Struct(input{Min: "ab", Max: 11, UUID: "nope", OneOf: "weekly", Date: "01/02/2026"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, "This field is required", got["Required"])
	assert.Equal(t, "Must be at least 5 characters", got["Min"])
	assert.Equal(t, "Must be at most 10", got["Max"])
	assert.Equal(t, "Invalid UUID format", got["UUID"])
	assert.Equal(t, "Must be one of: monthly yearly", got["OneOf"])
	assert.Equal(t, "Must be a date in the format 2006-01-02", got["Date"])
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	type body struct {
		Name   string `json:"name" binding:"required"`
		Amount int    `json:"amount" binding:"gt=0"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var in body
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"amount":0}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"name", "amount"}, fields)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})
}

func TestValidateMSISDN(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("msisdn", validateMSISDN))

	type input struct {
		Phone string `validate:"msisdn"`
	}
	for _, phone := range []string{"256772123456", "+256 772 123 456", "0772-123-456", "(0772) 123.456"} {
		assert.NoError(t, v.Struct(input{Phone: phone}), phone)
	}
	for _, phone := range []string{"n/a", "12345", "2567721234567890", "0772x123456"} {
		err := v.Struct(input{Phone: phone})
		require.Error(t, err, phone)
		assert.Equal(t, "Must be a mobile money phone number", getValidationMessage(err.(validator.ValidationErrors)[0]))
	}
}
