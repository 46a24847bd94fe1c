package geo

import (
	"context"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

// Position is a driver's most recent reported location.
type Position struct {
	DriverID     string
	VehicleClass domain.VehicleClass
	Lat          float64
	Lng          float64
}

// Candidate is a driver returned by a radius query, closest first.
type Candidate struct {
	DriverID string
	Lat      float64
	Lng      float64
	DistKm   float64
}

// Query describes a "who is near this point" question.
type Query struct {
	Lat           float64
	Lng           float64
	RadiusKm      float64
	VehicleClass  domain.VehicleClass
	OnlyAvailable bool
}

// Index answers radius queries over the current driver position snapshot.
// An empty result is not an error. The index always reflects the last
// position write it observed for a driver.
type Index interface {
	// Update records a driver's position, replacing any previous one.
	Update(ctx context.Context, pos Position) error

	// SetAvailable flips a driver's availability flag.
	SetAvailable(ctx context.Context, driverID string, available bool) error

	// Remove drops a driver from the index entirely.
	Remove(ctx context.Context, driverID string) error

	// Search returns drivers matching the query, sorted by distance ascending.
	Search(ctx context.Context, q Query) ([]Candidate, error)
}
