package common

import (
	"encoding/json"
	"net/http"

	"task-manager-api/logger"

	"github.com/sirupsen/logrus"
)

// AppError is the error shape every handler returns and every client sees.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Send logs server-side failures with their cause and writes the JSON body.
func (e *AppError) Send(w http.ResponseWriter) {
	if e.Err != nil {
		entry := logger.Log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"internal_error": e.Err.Error(),
		})
		if e.Code >= http.StatusInternalServerError {
			entry.Error(e.Message)
		} else {
			entry.Info(e.Message)
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(e)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response body")
	}
}
