package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

// ChatService relays ride chat between the two participants and keeps the
// append-only transcript. Relay happens before persistence: a message the
// room saw but the transcript lost comes back as ErrTranscriptNotPersisted
// so the sender can retry.
type ChatService struct {
	rideRepo repository.RideRepository
	registry channel.Registry
}

// NewChatService creates a new ChatService.
func NewChatService(rideRepo repository.RideRepository, registry channel.Registry) *ChatService {
	return &ChatService{rideRepo: rideRepo, registry: registry}
}

// ChatFrame is the frame relayed to the ride room. The sender receives its
// own message back like any other room member.
type ChatFrame struct {
	RideID     string      `json:"ride_id"`
	Sender     domain.Role `json:"sender"`
	SenderID   string      `json:"sender_id"`
	Body       string      `json:"body"`
	ClientTime string      `json:"client_time,omitempty"`
}

// Send relays a message to the ride room and appends it to the transcript.
func (s *ChatService) Send(ctx context.Context, rideID string, sender domain.Role, senderID, body, clientTime string) (*domain.ChatMessage, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if body == "" {
		return nil, ErrEmptyMessage
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch sender {
	case domain.RoleRider:
		if ride.RiderID != senderID {
			return nil, ErrNotParticipant
		}
	case domain.RoleDriver:
		if ride.DriverID == "" || ride.DriverID != senderID {
			return nil, ErrNotParticipant
		}
	default:
		return nil, ErrNotParticipant
	}

	msg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		RideID:     rideID,
		Sender:     sender,
		Body:       body,
		ClientTime: clientTime,
		SentAt:     time.Now(),
	}

	s.registry.Publish(channel.RideParty(rideID), channel.EventMessageReceived, ChatFrame{
		RideID:     rideID,
		Sender:     sender,
		SenderID:   senderID,
		Body:       body,
		ClientTime: clientTime,
	})

	if err := s.rideRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptNotPersisted, err)
	}

	return msg, nil
}

// History returns a ride's transcript in append order.
func (s *ChatService) History(ctx context.Context, rideID string) ([]domain.ChatMessage, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return nil, err
	}

	return s.rideRepo.Messages(ctx, rideID)
}
