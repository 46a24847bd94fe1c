package service

import (
	"context"
	"math"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/geo"
)

// FareEstimator quotes a fare per vehicle class for a pickup/destination pair.
type FareEstimator interface {
	Estimate(ctx context.Context, pickup, destination string) (map[domain.VehicleClass]float64, error)
}

type rate struct {
	base  float64
	perKm float64
}

// Flag-fall plus per-kilometer rates, in rupees.
var classRates = map[domain.VehicleClass]rate{
	domain.VehicleClassBike: {base: 10, perKm: 5},
	domain.VehicleClassAuto: {base: 15, perKm: 8},
	domain.VehicleClassCar:  {base: 25, perKm: 12},
}

// RateTableEstimator prices rides from a static rate table over the
// great-circle distance between the geocoded endpoints.
type RateTableEstimator struct {
	geocoder Geocoder
}

// NewRateTableEstimator creates a fare estimator backed by the given geocoder.
func NewRateTableEstimator(geocoder Geocoder) *RateTableEstimator {
	return &RateTableEstimator{geocoder: geocoder}
}

var _ FareEstimator = (*RateTableEstimator)(nil)

// Estimate geocodes both addresses and quotes every vehicle class at once.
func (e *RateTableEstimator) Estimate(ctx context.Context, pickup, destination string) (map[domain.VehicleClass]float64, error) {
	if pickup == "" {
		return nil, ErrInvalidPickup
	}
	if destination == "" {
		return nil, ErrInvalidDestination
	}

	from, err := e.geocoder.Geocode(ctx, pickup)
	if err != nil {
		return nil, err
	}
	to, err := e.geocoder.Geocode(ctx, destination)
	if err != nil {
		return nil, err
	}

	distKm := geo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)

	fares := make(map[domain.VehicleClass]float64, len(classRates))
	for class, r := range classRates {
		fares[class] = math.Round((r.base+r.perKm*distKm)*100) / 100
	}
	return fares, nil
}
