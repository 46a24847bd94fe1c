package repository

import (
	"context"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

// DriverRepository defines the interface for driver persistence.
type DriverRepository interface {
	Create(ctx context.Context, driver *domain.Driver) error
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Driver, error)
	GetAll(ctx context.Context) ([]*domain.Driver, error)
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error
}
