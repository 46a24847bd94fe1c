package repository

import (
	"context"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

// RiderRepository defines the interface for rider persistence.
type RiderRepository interface {
	Create(ctx context.Context, rider *domain.Rider) error
	GetByID(ctx context.Context, id string) (*domain.Rider, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Rider, error)
}
