package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors report JSON (or form) field names
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
		}
		return name
	})
}

// ValidationDetails converts validator errors into response details.
// Returns nil for errors that are not validation failures (malformed JSON, wrong types).
func ValidationDetails(err error) []dto.ValidationDetail {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
	}
	return details
}

var validationMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"numeric":  "Must be numeric",
	"oneof":    "Must be one of: %s",
	"gte":      "Must be greater than or equal to %s",
	"lte":      "Must be less than or equal to %s",
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "min", "max":
		bound := "at least"
		if e.Tag() == "max" {
			bound = "at most"
		}
		if e.Kind() == reflect.String {
			return "Must be " + bound + " " + e.Param() + " characters"
		}
		return "Must be " + bound + " " + e.Param()
	}
	msg, ok := validationMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	return strings.Replace(msg, "%s", e.Param(), 1)
}
