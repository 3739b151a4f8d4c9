package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/driving"
	"tracker/internal/repository"
	"tracker/internal/service"
)

const timeLayout = time.RFC3339Nano

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps engine/service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, driving.ErrUnknownDevice),
		errors.Is(err, service.ErrNoActiveTrip):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, driving.ErrInvalidSample),
		errors.Is(err, service.ErrInvalidDeviceID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidRadius):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrDeviceBusy),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
