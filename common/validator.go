package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ValidateAndDecode decodes the JSON body into payload and runs its validate tags.
func ValidateAndDecode(r *http.Request, payload interface{}) *AppError {
	if r.Body == nil {
		return NewAppError(http.StatusBadRequest, "Request body is required", nil)
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	if err := validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewAppError(http.StatusBadRequest, describe(validationErrors), err)
		}
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}
	return nil
}

func describe(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return "Validation failed: " + strings.Join(msgs, "; ")
}
