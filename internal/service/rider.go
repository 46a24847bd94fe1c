package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

// RiderService handles rider registration and ride history.
type RiderService struct {
	riderRepo repository.RiderRepository
	rideRepo  repository.RideRepository
}

// NewRiderService creates a new RiderService.
func NewRiderService(riderRepo repository.RiderRepository, rideRepo repository.RideRepository) *RiderService {
	return &RiderService{riderRepo: riderRepo, rideRepo: rideRepo}
}

// Register creates a new rider.
func (s *RiderService) Register(ctx context.Context, name, phone string) (*domain.Rider, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	rider := &domain.Rider{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now(),
	}

	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

// Get returns a rider by ID.
func (s *RiderService) Get(ctx context.Context, riderID string) (*domain.Rider, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.riderRepo.GetByID(ctx, riderID)
}

// History returns a rider's rides, newest first.
func (s *RiderService) History(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	if _, err := s.riderRepo.GetByID(ctx, riderID); err != nil {
		return nil, err
	}

	return s.rideRepo.GetByRiderID(ctx, riderID)
}
