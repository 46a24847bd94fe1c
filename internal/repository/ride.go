package repository

import (
	"context"
	"time"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

// RideRepository defines the interface for ride persistence.
//
// The transition methods are compare-and-set operations: each one updates the
// row only if it is still in the expected source status, and reports whether
// the swap happened. Losing a swap is not an error at this layer; the caller
// re-reads the ride to find out who won.
type RideRepository interface {
	Create(ctx context.Context, ride *domain.Ride) error
	GetByID(ctx context.Context, id string) (*domain.Ride, error)
	GetByRiderID(ctx context.Context, riderID string) ([]*domain.Ride, error)

	// Accept binds a driver to a requested ride. At most one caller ever
	// observes true for a given ride.
	Accept(ctx context.Context, rideID, driverID string, at time.Time) (bool, error)
	// Start moves an accepted ride to ongoing.
	Start(ctx context.Context, rideID string, at time.Time) (bool, error)
	// Complete moves an ongoing ride to completed.
	Complete(ctx context.Context, rideID string, at time.Time) (bool, error)
	// Cancel moves any non-terminal ride to cancelled.
	Cancel(ctx context.Context, rideID string, at time.Time) (bool, error)
	// ExpireIfRequested cancels the ride only if it is still unclaimed.
	ExpireIfRequested(ctx context.Context, rideID string, at time.Time) (bool, error)

	// AppendMessage persists a transcript entry and fills in its Seq.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	// Messages returns a ride's transcript in append order.
	Messages(ctx context.Context, rideID string) ([]domain.ChatMessage, error)
}
