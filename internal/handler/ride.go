package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	dispatcher *service.Dispatcher
	lifecycle  *service.LifecycleService
	chat       *service.ChatService
	fares      service.FareEstimator
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(dispatcher *service.Dispatcher, lifecycle *service.LifecycleService, chat *service.ChatService, fares service.FareEstimator) *RideHandler {
	return &RideHandler{
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		chat:       chat,
		fares:      fares,
	}
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	RiderID      string `json:"rider_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	CancelledBy string `json:"cancelled_by"` // "rider" or "driver"
	ActorID     string `json:"actor_id"`
}

// RideResponse is the HTTP representation of a ride. TripCode is set only on
// the creation response and on the winning driver's accept response; plain
// reads never include it.
type RideResponse struct {
	ID           string  `json:"id"`
	RiderID      string  `json:"rider_id"`
	DriverID     string  `json:"driver_id,omitempty"`
	Pickup       string  `json:"pickup"`
	Destination  string  `json:"destination"`
	VehicleClass string  `json:"vehicle_class"`
	Fare         float64 `json:"fare"`
	Status       string  `json:"status"`
	TripCode     string  `json:"trip_code,omitempty"`
	CreatedAt    string  `json:"created_at"`
	AcceptedAt   string  `json:"accepted_at,omitempty"`
	StartedAt    string  `json:"started_at,omitempty"`
	EndedAt      string  `json:"ended_at,omitempty"`
	CancelledAt  string  `json:"cancelled_at,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func rideResponse(ride *domain.Ride, withCode bool) RideResponse {
	resp := RideResponse{
		ID:           ride.ID,
		RiderID:      ride.RiderID,
		DriverID:     ride.DriverID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		Status:       string(ride.Status),
		CreatedAt:    formatTime(ride.CreatedAt),
		AcceptedAt:   formatTime(ride.AcceptedAt),
		StartedAt:    formatTime(ride.StartedAt),
		EndedAt:      formatTime(ride.EndedAt),
		CancelledAt:  formatTime(ride.CancelledAt),
	}
	if withCode {
		resp.TripCode = ride.TripCode
	}
	return resp
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.dispatcher.Submit(c.Request.Context(), service.SubmitRequest{
		RiderID:      req.RiderID,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: domain.VehicleClass(req.VehicleClass),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, rideResponse(ride, true))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride, false))
}

// GetFare handles GET /v1/rides/fare?pickup=...&destination=...
func (h *RideHandler) GetFare(c *gin.Context) {
	pickup := c.Query("pickup")
	destination := c.Query("destination")

	fares, err := h.fares.Estimate(c.Request.Context(), pickup, destination)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, fares)
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("id"), domain.Role(req.CancelledBy), req.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rideResponse(ride, false))
}

// SendMessageRequest is the HTTP request body for sending a chat message.
type SendMessageRequest struct {
	Sender     string `json:"sender"` // "rider" or "driver"
	SenderID   string `json:"sender_id"`
	Body       string `json:"body"`
	ClientTime string `json:"client_time,omitempty"`
}

// MessageResponse is the HTTP representation of a transcript entry.
type MessageResponse struct {
	ID         string `json:"id"`
	RideID     string `json:"ride_id"`
	Seq        int64  `json:"seq"`
	Sender     string `json:"sender"`
	Body       string `json:"body"`
	ClientTime string `json:"client_time,omitempty"`
	SentAt     string `json:"sent_at"`
}

func messageResponse(msg domain.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		RideID:     msg.RideID,
		Seq:        msg.Seq,
		Sender:     string(msg.Sender),
		Body:       msg.Body,
		ClientTime: msg.ClientTime,
		SentAt:     formatTime(msg.SentAt),
	}
}

// SendMessage handles POST /v1/rides/:id/messages
func (h *RideHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), c.Param("id"), domain.Role(req.Sender), req.SenderID, req.Body, req.ClientTime)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, messageResponse(*msg))
}

// GetMessages handles GET /v1/rides/:id/messages
func (h *RideHandler) GetMessages(c *gin.Context) {
	msgs, err := h.chat.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, messageResponse(msg))
	}
	respondJSON(c, http.StatusOK, response)
}
