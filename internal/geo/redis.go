package geo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

const (
	geoKeyPrefix    = "geo:drivers:"
	availableSetKey = "drivers:available"
	classHashKey    = "drivers:class"
)

// RedisIndex stores driver positions in Redis GEO sets, one per vehicle class.
// Availability lives in a plain set so a query can filter without a round
// trip per driver.
type RedisIndex struct {
	client *redis.Client
}

// NewRedisIndex creates a RedisIndex on the given client.
func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

var _ Index = (*RedisIndex)(nil)

func classKey(class domain.VehicleClass) string {
	return geoKeyPrefix + string(class)
}

// Update records a driver's position with GEOADD. If the driver previously
// reported a different vehicle class it is removed from the old class set,
// so a driver lives in exactly one GEO key at a time.
func (s *RedisIndex) Update(ctx context.Context, pos Position) error {
	prev, err := s.client.HGet(ctx, classHashKey, pos.DriverID).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if prev != "" && prev != string(pos.VehicleClass) {
		if err := s.client.ZRem(ctx, geoKeyPrefix+prev, pos.DriverID).Err(); err != nil {
			return err
		}
	}

	if err := s.client.GeoAdd(ctx, classKey(pos.VehicleClass), &redis.GeoLocation{
		Name:      pos.DriverID,
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err(); err != nil {
		return err
	}

	return s.client.HSet(ctx, classHashKey, pos.DriverID, string(pos.VehicleClass)).Err()
}

// SetAvailable flips a driver's availability flag.
func (s *RedisIndex) SetAvailable(ctx context.Context, driverID string, available bool) error {
	if available {
		return s.client.SAdd(ctx, availableSetKey, driverID).Err()
	}
	return s.client.SRem(ctx, availableSetKey, driverID).Err()
}

// Remove drops a driver from its class GEO set, the availability set and the
// class hash.
func (s *RedisIndex) Remove(ctx context.Context, driverID string) error {
	class, err := s.client.HGet(ctx, classHashKey, driverID).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if class != "" {
		if err := s.client.ZRem(ctx, geoKeyPrefix+class, driverID).Err(); err != nil {
			return err
		}
	}
	if err := s.client.SRem(ctx, availableSetKey, driverID).Err(); err != nil {
		return err
	}
	return s.client.HDel(ctx, classHashKey, driverID).Err()
}

// Search runs GEORADIUS over the class key and filters out unavailable
// drivers via a pipelined SISMEMBER pass.
func (s *RedisIndex) Search(ctx context.Context, q Query) ([]Candidate, error) {
	if !q.VehicleClass.Valid() {
		return nil, fmt.Errorf("geo: unknown vehicle class %q", q.VehicleClass)
	}

	results, err := s.client.GeoRadius(ctx, classKey(q.VehicleClass), q.Lng, q.Lat, &redis.GeoRadiusQuery{
		Radius:    q.RadiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []Candidate{}, nil
	}

	available := make(map[string]bool, len(results))
	if q.OnlyAvailable {
		pipe := s.client.Pipeline()
		cmds := make(map[string]*redis.BoolCmd, len(results))
		for _, r := range results {
			cmds[r.Name] = pipe.SIsMember(ctx, availableSetKey, r.Name)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		for id, cmd := range cmds {
			available[id] = cmd.Val()
		}
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		if q.OnlyAvailable && !available[r.Name] {
			continue
		}
		candidates = append(candidates, Candidate{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
			DistKm:   r.Dist,
		})
	}

	return candidates, nil
}
