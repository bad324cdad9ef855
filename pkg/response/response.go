package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/finlend/ledger-engine/pkg/apperr"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, code, message string) {
	response := ErrorResponse{
		Success:   false,
		Code:      code,
		Error:     message,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}

// AppError maps an engine error onto an HTTP status. Validation and
// authorization failures carry their reason; storage and invariant faults
// return a generic body while the detail stays in the server log.
func AppError(w http.ResponseWriter, err error) {
	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		slog.Error("unclassified engine error", "error", err)
		Error(w, http.StatusInternalServerError, "", "internal error")
		return
	}

	switch ae.Code {
	case apperr.CodeValidation, apperr.CodeInvalidSchedule, apperr.CodeAmountMismatch:
		Error(w, http.StatusBadRequest, ae.Code, ae.Message)
	case apperr.CodeAlreadySettled, apperr.CodeStateConflict, apperr.CodeIdempotentNoop:
		Error(w, http.StatusConflict, ae.Code, ae.Message)
	case apperr.CodeUnauthorized, apperr.CodeUnauthorizedCollection, apperr.CodeUnauthorizedSettlement:
		Error(w, http.StatusForbidden, ae.Code, ae.Message)
	case apperr.CodeNotFound:
		Error(w, http.StatusNotFound, ae.Code, ae.Message)
	case apperr.CodeRetryableStorage:
		slog.Error("storage failure", "error", err)
		Error(w, http.StatusServiceUnavailable, ae.Code, "temporary failure, retry the request")
	case apperr.CodeInvariantViolation:
		slog.Error("invariant violation", "error", err)
		Error(w, http.StatusInternalServerError, ae.Code, "internal error")
	default:
		slog.Error("engine error", "error", err)
		Error(w, http.StatusInternalServerError, "", "internal error")
	}
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, apperr.CodeValidation, message)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, apperr.CodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, apperr.CodeUnauthorized, message)
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response recorder to capture the status code
		recorder := &responseRecorder{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(recorder, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration", time.Since(start),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *responseRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}
