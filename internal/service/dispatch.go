package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/config"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/geo"
	"github.com/Gulshan36/QuickRides/internal/observability"
	redisstore "github.com/Gulshan36/QuickRides/internal/redis"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

const (
	fanoutLockTTL = 30 * time.Second
	fanoutTimeout = 10 * time.Second
)

type jobKind int

const (
	jobOffer jobKind = iota
	jobWithdraw
)

type fanoutJob struct {
	kind jobKind
	ride *domain.Ride
}

// RideOffer is the frame pushed to candidate drivers. It carries everything a
// driver needs to decide, and never the trip code; that stays with the rider
// until the driver is bound.
type RideOffer struct {
	RideID       string              `json:"ride_id"`
	RiderID      string              `json:"rider_id"`
	RiderName    string              `json:"rider_name,omitempty"`
	Pickup       string              `json:"pickup"`
	Destination  string              `json:"destination"`
	VehicleClass domain.VehicleClass `json:"vehicle_class"`
	Fare         float64             `json:"fare"`
	DistanceKm   float64             `json:"distance_km"`
	RequestedAt  time.Time           `json:"requested_at"`
}

// RideView is the frame pushed on lifecycle events. TripCode is filled only
// on the ride-confirmed copies, once the receiving party is entitled to it.
type RideView struct {
	RideID       string              `json:"ride_id"`
	RiderID      string              `json:"rider_id"`
	DriverID     string              `json:"driver_id,omitempty"`
	Pickup       string              `json:"pickup"`
	Destination  string              `json:"destination"`
	VehicleClass domain.VehicleClass `json:"vehicle_class"`
	Fare         float64             `json:"fare"`
	Status       domain.RideStatus   `json:"status"`
	TripCode     string              `json:"trip_code,omitempty"`
}

func rideView(ride *domain.Ride, withCode bool) RideView {
	v := RideView{
		RideID:       ride.ID,
		RiderID:      ride.RiderID,
		DriverID:     ride.DriverID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: ride.VehicleClass,
		Fare:         ride.Fare,
		Status:       ride.Status,
	}
	if withCode {
		v.TripCode = ride.TripCode
	}
	return v
}

// Dispatcher accepts ride requests synchronously and sprays offers to nearby
// drivers asynchronously. Submit returns as soon as the ride row is durable;
// the fan-out runs on a fixed worker pool and its failures surface as metrics,
// never as request errors.
type Dispatcher struct {
	cfg        config.DispatchConfig
	rideRepo   repository.RideRepository
	riderRepo  repository.RiderRepository
	driverRepo repository.DriverRepository
	registry   channel.Registry
	index      geo.Index
	geocoder   Geocoder
	fares      FareEstimator
	cache      redisstore.DriverCache // optional
	locks      redisstore.FanoutLock  // optional

	jobs     chan fanoutJob
	jobWG    sync.WaitGroup
	workerWG sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewDispatcher creates a Dispatcher. Call Start before submitting rides and
// Stop at shutdown. cache and locks may be nil.
func NewDispatcher(
	cfg config.DispatchConfig,
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	driverRepo repository.DriverRepository,
	registry channel.Registry,
	index geo.Index,
	geocoder Geocoder,
	fares FareEstimator,
	cache redisstore.DriverCache,
	locks redisstore.FanoutLock,
) *Dispatcher {
	if cfg.FanoutWorkers <= 0 {
		cfg.FanoutWorkers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Dispatcher{
		cfg:        cfg,
		rideRepo:   rideRepo,
		riderRepo:  riderRepo,
		driverRepo: driverRepo,
		registry:   registry,
		index:      index,
		geocoder:   geocoder,
		fares:      fares,
		cache:      cache,
		locks:      locks,
		jobs:       make(chan fanoutJob, cfg.QueueSize),
	}
}

var _ Notifier = (*Dispatcher)(nil)

// Start launches the fan-out worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.FanoutWorkers; i++ {
		d.workerWG.Add(1)
		go func() {
			defer d.workerWG.Done()
			for job := range d.jobs {
				d.run(job)
				d.jobWG.Done()
			}
		}()
	}
}

// Stop drains queued jobs and stops the workers. Safe to call once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.jobs)
	d.workerWG.Wait()
}

// Drain blocks until every enqueued job has run. Test hook.
func (d *Dispatcher) Drain() {
	d.jobWG.Wait()
}

func (d *Dispatcher) enqueue(job fanoutJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		observability.FanoutFailures.WithLabelValues("stopped").Inc()
		return
	}

	d.jobWG.Add(1)
	select {
	case d.jobs <- job:
	default:
		d.jobWG.Done()
		observability.FanoutFailures.WithLabelValues("queue_full").Inc()
	}
}

// SubmitRequest contains the parameters for requesting a ride.
type SubmitRequest struct {
	RiderID      string
	Pickup       string
	Destination  string
	VehicleClass domain.VehicleClass
}

// Submit validates and persists a ride request, then schedules the offer
// fan-out. The returned ride carries the trip code; it belongs to the rider.
func (d *Dispatcher) Submit(ctx context.Context, req SubmitRequest) (*domain.Ride, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Pickup == "" {
		return nil, ErrInvalidPickup
	}
	if req.Destination == "" {
		return nil, ErrInvalidDestination
	}
	if !req.VehicleClass.Valid() {
		return nil, ErrInvalidVehicleClass
	}

	if _, err := d.riderRepo.GetByID(ctx, req.RiderID); err != nil {
		return nil, err
	}

	// An unquotable trip is rejected up front rather than dispatched blind.
	fares, err := d.fares.Estimate(ctx, req.Pickup, req.Destination)
	if err != nil {
		return nil, err
	}

	code, err := GenerateTripCode(d.cfg.TripCodeDigits)
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:           uuid.New().String(),
		RiderID:      req.RiderID,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: req.VehicleClass,
		Fare:         fares[req.VehicleClass],
		TripCode:     code,
		Status:       domain.RideStatusRequested,
		CreatedAt:    time.Now(),
	}

	if err := d.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	d.enqueue(fanoutJob{kind: jobOffer, ride: ride})

	if d.cfg.OfferTTL > 0 {
		d.scheduleExpiry(ride.ID)
	}

	return ride, nil
}

func (d *Dispatcher) scheduleExpiry(rideID string) {
	time.AfterFunc(d.cfg.OfferTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
		defer cancel()

		expired, err := d.rideRepo.ExpireIfRequested(ctx, rideID, time.Now())
		if err != nil {
			log.Printf("dispatch: expire ride %s: %v", rideID, err)
			return
		}
		if !expired {
			return
		}
		if ride, err := d.rideRepo.GetByID(ctx, rideID); err == nil {
			d.registry.Publish(channel.RiderParty(ride.RiderID), channel.EventRideCancelled, rideView(ride, false))
		}
	})
}

func (d *Dispatcher) run(job fanoutJob) {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	switch job.kind {
	case jobOffer:
		d.fanOut(ctx, job.ride)
	case jobWithdraw:
		d.withdraw(ctx, job.ride)
	}
}

// fanOut finds drivers near the pickup and offers them the ride. Best effort
// end to end: every failure increments a counter and stops this fan-out, the
// ride row stays requested either way.
func (d *Dispatcher) fanOut(ctx context.Context, ride *domain.Ride) {
	observability.FanoutsTotal.Inc()
	timer := prometheus.NewTimer(observability.FanoutDuration)
	defer timer.ObserveDuration()

	if d.locks != nil {
		locked, err := d.locks.AcquireFanoutLock(ctx, ride.ID, fanoutLockTTL)
		if err != nil {
			observability.FanoutFailures.WithLabelValues("lock").Inc()
			log.Printf("dispatch: fanout lock %s: %v", ride.ID, err)
			return
		}
		if !locked {
			// Another instance already fanned this ride out.
			return
		}
	}

	candidates, err := d.candidatesNear(ctx, ride, d.cfg.SearchRadiusKm)
	if err != nil {
		// A failed fan-out gives the lock back so a later attempt is not
		// pinned behind the TTL.
		if d.locks != nil {
			if relErr := d.locks.ReleaseFanoutLock(ctx, ride.ID); relErr != nil {
				log.Printf("dispatch: release fanout lock %s: %v", ride.ID, relErr)
			}
		}
		return
	}
	if len(candidates) == 0 {
		observability.FanoutNoCandidates.Inc()
		return
	}

	riderName := ""
	if rider, err := d.riderRepo.GetByID(ctx, ride.RiderID); err == nil {
		riderName = rider.Name
	}

	for _, c := range candidates {
		offer := RideOffer{
			RideID:       ride.ID,
			RiderID:      ride.RiderID,
			RiderName:    riderName,
			Pickup:       ride.Pickup,
			Destination:  ride.Destination,
			VehicleClass: ride.VehicleClass,
			Fare:         ride.Fare,
			DistanceKm:   c.DistKm,
			RequestedAt:  ride.CreatedAt,
		}
		d.registry.Publish(channel.DriverParty(c.DriverID), channel.EventRideOffer, offer)
		observability.OffersSent.Inc()
	}
}

// withdraw re-queries a narrow radius around the pickup and tells those
// drivers the ride is gone, so stale offer cards get dismissed.
func (d *Dispatcher) withdraw(ctx context.Context, ride *domain.Ride) {
	candidates, err := d.candidatesNear(ctx, ride, d.cfg.CancelRadiusKm)
	if err != nil {
		return
	}

	view := rideView(ride, false)
	for _, c := range candidates {
		if c.DriverID == ride.DriverID {
			continue // the bound driver was told directly
		}
		d.registry.Publish(channel.DriverParty(c.DriverID), channel.EventRideCancelled, view)
	}
}

// candidatesNear geocodes the pickup, queries the index and filters the
// result against driver profiles. Failures are counted and returned.
func (d *Dispatcher) candidatesNear(ctx context.Context, ride *domain.Ride, radiusKm float64) ([]geo.Candidate, error) {
	coord, err := d.geocoder.Geocode(ctx, ride.Pickup)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			observability.FanoutFailures.WithLabelValues("address_not_found").Inc()
		} else {
			observability.FanoutFailures.WithLabelValues("geocode").Inc()
		}
		log.Printf("dispatch: geocode pickup for ride %s: %v", ride.ID, err)
		return nil, err
	}

	candidates, err := d.index.Search(ctx, geo.Query{
		Lat:           coord.Lat,
		Lng:           coord.Lng,
		RadiusKm:      radiusKm,
		VehicleClass:  ride.VehicleClass,
		OnlyAvailable: true,
	})
	if err != nil {
		observability.FanoutFailures.WithLabelValues("search").Inc()
		log.Printf("dispatch: search for ride %s: %v", ride.ID, err)
		return nil, err
	}

	return d.filterActive(ctx, candidates), nil
}

// filterActive cross-checks candidates against driver profiles, cache first,
// and drops anyone not currently active. Index availability can lag a logout.
func (d *Dispatcher) filterActive(ctx context.Context, candidates []geo.Candidate) []geo.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DriverID
	}

	status := make(map[string]string, len(ids))

	missing := ids
	if d.cache != nil {
		cached, miss, err := d.cache.GetDriversBatch(ctx, ids)
		if err == nil {
			for id, drv := range cached {
				status[id] = drv.Status
			}
			missing = miss
		}
	}

	var fetched []*redisstore.CachedDriver
	for _, id := range missing {
		driver, err := d.driverRepo.GetByID(ctx, id)
		if err != nil {
			continue
		}
		status[id] = string(driver.Status)
		fetched = append(fetched, &redisstore.CachedDriver{
			ID:           driver.ID,
			Name:         driver.Name,
			Phone:        driver.Phone,
			VehicleClass: string(driver.VehicleClass),
			Status:       string(driver.Status),
		})
	}
	if d.cache != nil && len(fetched) > 0 {
		_ = d.cache.SetDriversBatch(ctx, fetched)
	}

	active := candidates[:0]
	for _, c := range candidates {
		if status[c.DriverID] == string(domain.DriverStatusActive) {
			active = append(active, c)
		}
	}
	return active
}

// NotifyAccepted tells the rider and the winning driver the ride is bound.
// Both confirmations carry the trip code; acceptance is the moment the bound
// driver becomes entitled to it.
func (d *Dispatcher) NotifyAccepted(ride *domain.Ride) {
	d.registry.Publish(channel.RiderParty(ride.RiderID), channel.EventRideConfirmed, rideView(ride, true))
	d.registry.Publish(channel.DriverParty(ride.DriverID), channel.EventRideConfirmed, rideView(ride, true))
}

// NotifyStarted tells the rider the trip is underway.
func (d *Dispatcher) NotifyStarted(ride *domain.Ride) {
	d.registry.Publish(channel.RiderParty(ride.RiderID), channel.EventRideStarted, rideView(ride, false))
}

// NotifyEnded tells the rider the trip is over.
func (d *Dispatcher) NotifyEnded(ride *domain.Ride) {
	d.registry.Publish(channel.RiderParty(ride.RiderID), channel.EventRideEnded, rideView(ride, false))
}

// NotifyCancelled tells the counterpart directly, then re-queries a narrow
// radius for unbound rides so drivers still holding the offer drop it.
func (d *Dispatcher) NotifyCancelled(ride *domain.Ride, prev domain.RideStatus, by domain.Role) {
	view := rideView(ride, false)

	switch by.Other() {
	case domain.RoleDriver:
		if ride.DriverID != "" {
			d.registry.Publish(channel.DriverParty(ride.DriverID), channel.EventRideCancelled, view)
		}
	case domain.RoleRider:
		d.registry.Publish(channel.RiderParty(ride.RiderID), channel.EventRideCancelled, view)
	}

	if prev == domain.RideStatusRequested || prev == domain.RideStatusAccepted {
		d.enqueue(fanoutJob{kind: jobWithdraw, ride: ride})
	}
}
