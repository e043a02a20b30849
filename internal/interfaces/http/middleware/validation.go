package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/agricoop/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupOnce sync.Once

// SetupValidator reports fields by their JSON or query names and registers
// the msisdn tag used by payment requests. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("msisdn", validateMSISDN)
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return ""
}

// validateMSISDN accepts digits with an optional leading '+'. Separators are
// tolerated since the gateway client strips them.
func validateMSISDN(fl validator.FieldLevel) bool {
	s := strings.TrimPrefix(strings.TrimSpace(fl.Field().String()), "+")
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(" -().", r):
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// FormatValidationErrors converts validator errors into the error envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts with 422. Binding failures that are not field
// validation errors (malformed JSON, wrong types) get ERR_INVALID_JSON.
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Request body could not be parsed", requestID))
		return
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, FormatValidationErrors(err, requestID))
}

// Messages that only need the tag parameter appended.
var paramMessages = map[string]string{
	"oneof":    "Must be one of: ",
	"gte":      "Must be greater than or equal to ",
	"lte":      "Must be less than or equal to ",
	"gt":       "Must be greater than ",
	"lt":       "Must be less than ",
	"datetime": "Must be a date in the format ",
	"len":      "Must be exactly ",
}

var fixedMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"numeric":  "Must be numeric",
	"msisdn":   "Must be a mobile money phone number",
	"dive":     "Invalid list element",
}

func getValidationMessage(e validator.FieldError) string {
	tag := e.Tag()
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	if prefix, ok := paramMessages[tag]; ok {
		msg := prefix + e.Param()
		if tag == "len" {
			msg += " characters"
		}
		return msg
	}

	switch tag {
	case "min", "max":
		bound := "at least "
		if tag == "max" {
			bound = "at most "
		}
		if e.Type().Kind() == reflect.String {
			return "Must be " + bound + e.Param() + " characters"
		}
		return "Must be " + bound + e.Param()
	case "required_with":
		return "This field is required when " + e.Param() + " is set"
	default:
		return "Invalid value"
	}
}
