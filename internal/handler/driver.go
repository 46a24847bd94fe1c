package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	drivers   *service.DriverService
	lifecycle *service.LifecycleService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(drivers *service.DriverService, lifecycle *service.LifecycleService) *DriverHandler {
	return &DriverHandler{drivers: drivers, lifecycle: lifecycle}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehicleClass string `json:"vehicle_class"`
	Status       string `json:"status"`
}

func driverResponse(driver *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           driver.ID,
		Name:         driver.Name,
		Phone:        driver.Phone,
		VehicleClass: string(driver.VehicleClass),
		Status:       string(driver.Status),
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), req.Name, req.Phone, domain.VehicleClass(req.VehicleClass))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, driverResponse(driver))
}

// List handles GET /v1/drivers
func (h *DriverHandler) List(c *gin.Context) {
	drivers, err := h.drivers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, driver := range drivers {
		response = append(response, driverResponse(driver))
	}
	respondJSON(c, http.StatusOK, response)
}

// UpdateLocationRequest is the HTTP request body for a location report.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.drivers.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Logout handles POST /v1/drivers/:id/logout
func (h *DriverHandler) Logout(c *gin.Context) {
	if err := h.drivers.Logout(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AcceptRequest is the HTTP request body for accepting a ride offer.
type AcceptRequest struct {
	RideID string `json:"ride_id"`
}

// Accept handles POST /v1/drivers/:id/accept. The winning driver's response
// carries the trip code; from acceptance on they are a participant.
func (h *DriverHandler) Accept(c *gin.Context) {
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Accept(c.Request.Context(), req.RideID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride, true))
}

// StartRequest is the HTTP request body for starting a trip.
type StartRequest struct {
	RideID   string `json:"ride_id"`
	TripCode string `json:"trip_code"`
}

// Start handles POST /v1/drivers/:id/start
func (h *DriverHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Start(c.Request.Context(), req.RideID, c.Param("id"), req.TripCode)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride, false))
}

// EndRequest is the HTTP request body for ending a trip.
type EndRequest struct {
	RideID string `json:"ride_id"`
}

// End handles POST /v1/drivers/:id/end
func (h *DriverHandler) End(c *gin.Context) {
	var req EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.End(c.Request.Context(), req.RideID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride, false))
}
