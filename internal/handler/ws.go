package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/observability"
	"github.com/Gulshan36/QuickRides/internal/service"
)

const wsActionTimeout = 10 * time.Second

// WSHandler upgrades websocket connections and routes inbound frames to
// services. One connection serves one actor; the newest connection for an
// actor displaces any previous one.
type WSHandler struct {
	hub       *channel.Hub
	drivers   *service.DriverService
	lifecycle *service.LifecycleService
	chat      *service.ChatService
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *channel.Hub, drivers *service.DriverService, lifecycle *service.LifecycleService, chat *service.ChatService) *WSHandler {
	return &WSHandler{
		hub:       hub,
		drivers:   drivers,
		lifecycle: lifecycle,
		chat:      chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Serve handles GET /ws?actor_id=...&role=...
func (h *WSHandler) Serve(c *gin.Context) {
	actorID := c.Query("actor_id")
	role := domain.Role(c.Query("role"))

	if actorID == "" || (role != domain.RoleRider && role != domain.RoleDriver) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "actor_id and role=rider|driver required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade %s %s: %v", role, actorID, err)
		return
	}

	client := channel.NewClient(h.hub, conn, actorID, role)
	client.OnMessage = h.route
	client.OnClose = h.closed

	switch role {
	case domain.RoleRider:
		h.hub.Bind(channel.RiderParty(actorID), client)
	case domain.RoleDriver:
		h.hub.Bind(channel.DriverParty(actorID), client)

		ctx, cancel := context.WithTimeout(context.Background(), wsActionTimeout)
		if err := h.drivers.Join(ctx, actorID); err != nil {
			log.Printf("ws: join driver %s: %v", actorID, err)
		}
		cancel()
	}

	observability.ActiveConnections.Inc()
	client.Run()
}

func (h *WSHandler) closed(client *channel.Client) {
	observability.ActiveConnections.Dec()

	if client.Role == domain.RoleDriver {
		ctx, cancel := context.WithTimeout(context.Background(), wsActionTimeout)
		defer cancel()
		if err := h.drivers.Disconnected(ctx, client.ActorID); err != nil {
			log.Printf("ws: disconnect driver %s: %v", client.ActorID, err)
		}
	}
}

func (h *WSHandler) route(client *channel.Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(client, "malformed frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsActionTimeout)
	defer cancel()

	switch frame.Event {
	case "join-ride":
		h.joinRide(ctx, client, frame.Data)
	case "leave-ride":
		h.leaveRide(client, frame.Data)
	case "location":
		h.location(ctx, client, frame.Data)
	case "message":
		h.message(ctx, client, frame.Data)
	default:
		h.sendError(client, "unknown event: "+frame.Event)
	}
}

type rideRef struct {
	RideID string `json:"ride_id"`
}

// joinRide puts the connection in a ride's shared room after verifying the
// actor is one of that ride's participants.
func (h *WSHandler) joinRide(ctx context.Context, client *channel.Client, data json.RawMessage) {
	var ref rideRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.RideID == "" {
		h.sendError(client, "ride_id required")
		return
	}

	ride, err := h.lifecycle.Get(ctx, ref.RideID)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	participant := (client.Role == domain.RoleRider && ride.RiderID == client.ActorID) ||
		(client.Role == domain.RoleDriver && ride.DriverID == client.ActorID)
	if !participant {
		h.sendError(client, service.ErrNotParticipant.Error())
		return
	}

	h.hub.Join(channel.RideParty(ref.RideID), client)
}

func (h *WSHandler) leaveRide(client *channel.Client, data json.RawMessage) {
	var ref rideRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.RideID == "" {
		h.sendError(client, "ride_id required")
		return
	}

	h.hub.Leave(channel.RideParty(ref.RideID), client)
}

type locationFrame struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *WSHandler) location(ctx context.Context, client *channel.Client, data json.RawMessage) {
	if client.Role != domain.RoleDriver {
		h.sendError(client, "location reports are driver-only")
		return
	}

	var loc locationFrame
	if err := json.Unmarshal(data, &loc); err != nil {
		h.sendError(client, "malformed location")
		return
	}

	if err := h.drivers.UpdateLocation(ctx, client.ActorID, loc.Lat, loc.Lng); err != nil {
		h.sendError(client, err.Error())
	}
}

type messageFrame struct {
	RideID     string `json:"ride_id"`
	Body       string `json:"body"`
	ClientTime string `json:"client_time,omitempty"`
}

func (h *WSHandler) message(ctx context.Context, client *channel.Client, data json.RawMessage) {
	var msg messageFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, "malformed message")
		return
	}

	if _, err := h.chat.Send(ctx, msg.RideID, client.Role, client.ActorID, msg.Body, msg.ClientTime); err != nil {
		h.sendError(client, err.Error())
	}
}

func (h *WSHandler) sendError(client *channel.Client, msg string) {
	frame, err := json.Marshal(channel.Frame{
		Event:     channel.EventError,
		Data:      map[string]string{"error": msg},
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}
	client.Queue(frame)
}
