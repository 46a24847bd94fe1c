package geo

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index backed by a map and a haversine scan.
// It keeps the same semantics as RedisIndex and is what the test suite runs
// against; it is also a usable fallback for single-node deployments without
// Redis.
type MemoryIndex struct {
	mu        sync.RWMutex
	positions map[string]Position
	available map[string]bool
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		positions: make(map[string]Position),
		available: make(map[string]bool),
	}
}

var _ Index = (*MemoryIndex)(nil)

// Update records a driver's position, replacing any previous one.
func (g *MemoryIndex) Update(ctx context.Context, pos Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[pos.DriverID] = pos
	return nil
}

// SetAvailable flips a driver's availability flag.
func (g *MemoryIndex) SetAvailable(ctx context.Context, driverID string, available bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if available {
		g.available[driverID] = true
	} else {
		delete(g.available, driverID)
	}
	return nil
}

// Remove drops a driver from the index entirely.
func (g *MemoryIndex) Remove(ctx context.Context, driverID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.positions, driverID)
	delete(g.available, driverID)
	return nil
}

// Search scans every position and filters by class, availability and
// great-circle distance. Results are sorted by distance ascending.
func (g *MemoryIndex) Search(ctx context.Context, q Query) ([]Candidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	candidates := make([]Candidate, 0)
	for id, pos := range g.positions {
		if pos.VehicleClass != q.VehicleClass {
			continue
		}
		if q.OnlyAvailable && !g.available[id] {
			continue
		}
		dist := HaversineKm(q.Lat, q.Lng, pos.Lat, pos.Lng)
		if dist > q.RadiusKm {
			continue
		}
		candidates = append(candidates, Candidate{
			DriverID: id,
			Lat:      pos.Lat,
			Lng:      pos.Lng,
			DistKm:   dist,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistKm < candidates[j].DistKm
	})

	return candidates, nil
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
