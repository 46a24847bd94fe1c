package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gulshan36/QuickRides/internal/repository"
	"github.com/Gulshan36/QuickRides/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrAddressNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPickup),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest

	// Lost races and wrong-state transitions
	case errors.Is(err, service.ErrRideAlreadyAccepted),
		errors.Is(err, service.ErrRideOngoing),
		errors.Is(err, service.ErrRideCompleted),
		errors.Is(err, service.ErrRideCancelled),
		errors.Is(err, service.ErrRideNotAccepted),
		errors.Is(err, service.ErrRideNotOngoing):
		return http.StatusConflict

	// Actor/ride binding violations
	case errors.Is(err, service.ErrNotBoundDriver),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrInvalidTripCode):
		return http.StatusForbidden

	// Upstream dependency failures
	case errors.Is(err, service.ErrGeocoderUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
