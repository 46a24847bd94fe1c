package tests

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/config"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/geo"
	"github.com/Gulshan36/QuickRides/internal/service"
)

// Test map: pickup near Bangalore center, destination at the airport.
var testAddresses = map[string]service.Coordinate{
	"MG Road": {Lat: 12.9756, Lng: 77.6068},
	"Airport": {Lat: 13.1989, Lng: 77.7068},
}

type dispatchFixture struct {
	rideRepo   *MockRideRepository
	riderRepo  *MockRiderRepository
	driverRepo *MockDriverRepository
	registry   *MockRegistry
	index      *geo.MemoryIndex
	geocoder   *MockGeocoder
	locks      *MockFanoutLock
	dispatcher *service.Dispatcher
}

func defaultDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		SearchRadiusKm: 50,
		CancelRadiusKm: 4,
		FanoutWorkers:  2,
		QueueSize:      16,
		TripCodeDigits: 6,
	}
}

func newDispatchFixture(t *testing.T, cfg config.DispatchConfig) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		rideRepo:   NewMockRideRepository(),
		riderRepo:  NewMockRiderRepository(),
		driverRepo: NewMockDriverRepository(),
		registry:   NewMockRegistry(),
		index:      geo.NewMemoryIndex(),
		geocoder:   NewMockGeocoder(testAddresses),
		locks:      NewMockFanoutLock(),
	}
	f.riderRepo.AddRider(&domain.Rider{ID: "rider-1", Name: "Asha", Phone: "9000000001"})

	fares := service.NewRateTableEstimator(f.geocoder)
	f.dispatcher = service.NewDispatcher(cfg, f.rideRepo, f.riderRepo, f.driverRepo, f.registry, f.index, f.geocoder, fares, nil, f.locks)
	t.Cleanup(f.dispatcher.Stop)
	return f
}

// addDriver registers an active driver and places them on the index.
func (f *dispatchFixture) addDriver(t *testing.T, id string, class domain.VehicleClass, lat, lng float64) {
	t.Helper()
	ctx := context.Background()

	f.driverRepo.AddDriver(&domain.Driver{
		ID:           id,
		Name:         "drv " + id,
		Phone:        "9" + id,
		VehicleClass: class,
		Status:       domain.DriverStatusActive,
	})
	if err := f.index.Update(ctx, geo.Position{DriverID: id, VehicleClass: class, Lat: lat, Lng: lng}); err != nil {
		t.Fatalf("index update: %v", err)
	}
	if err := f.index.SetAvailable(ctx, id, true); err != nil {
		t.Fatalf("set available: %v", err)
	}
}

func (f *dispatchFixture) submit(t *testing.T) *domain.Ride {
	t.Helper()
	ride, err := f.dispatcher.Submit(context.Background(), service.SubmitRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return ride
}

func TestSubmit_CreatesRequestedRideWithCode(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.dispatcher.Start()

	ride := f.submit(t)

	if ride.Status != domain.RideStatusRequested {
		t.Errorf("status = %s, want requested", ride.Status)
	}
	if len(ride.TripCode) != 6 {
		t.Errorf("trip code %q, want 6 digits", ride.TripCode)
	}
	if ride.Fare <= 0 {
		t.Errorf("fare = %v, want > 0", ride.Fare)
	}

	stored, err := f.rideRepo.GetByID(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("ride not persisted: %v", err)
	}
	if stored.TripCode != ride.TripCode {
		t.Error("persisted ride lost the trip code")
	}
}

func TestSubmit_OffersReachNearbyDriversOfClassWithoutCode(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-near-1", domain.VehicleClassCar, 12.98, 77.61)
	f.addDriver(t, "car-near-2", domain.VehicleClassCar, 12.96, 77.60)
	f.addDriver(t, "bike-near", domain.VehicleClassBike, 12.98, 77.61)
	f.addDriver(t, "car-far", domain.VehicleClassCar, 19.07, 72.87) // Mumbai
	f.dispatcher.Start()

	ride := f.submit(t)
	f.dispatcher.Drain()

	for _, id := range []string{"car-near-1", "car-near-2"} {
		frames := f.registry.FramesFor(channel.DriverParty(id))
		if len(frames) != 1 || frames[0].Event != channel.EventRideOffer {
			t.Fatalf("driver %s frames = %+v, want one ride-offer", id, frames)
		}

		raw, err := json.Marshal(frames[0].Data)
		if err != nil {
			t.Fatalf("marshal offer: %v", err)
		}
		if strings.Contains(string(raw), ride.TripCode) {
			t.Errorf("offer to %s leaked the trip code: %s", id, raw)
		}

		offer, ok := frames[0].Data.(service.RideOffer)
		if !ok {
			t.Fatalf("offer payload type %T", frames[0].Data)
		}
		if offer.RideID != ride.ID || offer.Fare != ride.Fare {
			t.Errorf("offer = %+v does not match ride", offer)
		}
	}

	for _, id := range []string{"bike-near", "car-far"} {
		if frames := f.registry.FramesFor(channel.DriverParty(id)); len(frames) != 0 {
			t.Errorf("driver %s should not be offered, got %+v", id, frames)
		}
	}

	// A completed fan-out keeps its lock so the offers cannot be re-sprayed.
	if n := f.locks.ReleaseCount(ride.ID); n != 0 {
		t.Errorf("lock released %d times after a successful fan-out, want 0", n)
	}
}

func TestSubmit_UnknownPickupRejected(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.dispatcher.Start()

	_, err := f.dispatcher.Submit(context.Background(), service.SubmitRequest{
		RiderID:      "rider-1",
		Pickup:       "Nowhere Lane",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
	})
	if !errors.Is(err, service.ErrAddressNotFound) {
		t.Fatalf("want ErrAddressNotFound, got %v", err)
	}
	if f.rideRepo.CreateCallCount != 0 {
		t.Error("ride must not be created when the quote fails")
	}
}

func TestFanout_GeocoderOutageIsSilentForTheRider(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-near-1", domain.VehicleClassCar, 12.98, 77.61)

	// Queue the fan-out before the workers start, then break the geocoder.
	ride := f.submit(t)
	f.geocoder.SetError(service.ErrGeocoderUnavailable)
	f.dispatcher.Start()
	f.dispatcher.Drain()

	if frames := f.registry.Frames(); len(frames) != 0 {
		t.Errorf("no offers expected after geocoder outage, got %+v", frames)
	}

	stored, _ := f.rideRepo.GetByID(context.Background(), ride.ID)
	if stored.Status != domain.RideStatusRequested {
		t.Errorf("failed fan-out must leave the ride requested, got %s", stored.Status)
	}

	// The failed attempt hands the lock back instead of sitting on it.
	if n := f.locks.AcquireCount(ride.ID); n != 1 {
		t.Errorf("lock acquired %d times, want 1", n)
	}
	if n := f.locks.ReleaseCount(ride.ID); n != 1 {
		t.Errorf("lock released %d times after a failed fan-out, want 1", n)
	}
}

func TestSubmit_NoCandidatesIsSilentNoOp(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.dispatcher.Start()

	f.submit(t)
	f.dispatcher.Drain()

	if frames := f.registry.Frames(); len(frames) != 0 {
		t.Errorf("expected no publishes with an empty index, got %+v", frames)
	}
}

func TestNotifyAccepted_CodeReachesRiderAndBoundDriver(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-near-1", domain.VehicleClassCar, 12.98, 77.61)
	f.dispatcher.Start()

	lifecycle := service.NewLifecycleService(f.rideRepo, f.driverRepo, f.dispatcher)
	ride := f.submit(t)
	f.dispatcher.Drain()

	if _, err := lifecycle.Accept(context.Background(), ride.ID, "car-near-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	riderFrames := f.registry.FramesFor(channel.RiderParty("rider-1"))
	if len(riderFrames) != 1 || riderFrames[0].Event != channel.EventRideConfirmed {
		t.Fatalf("rider frames = %+v, want one ride-confirmed", riderFrames)
	}
	riderView := riderFrames[0].Data.(service.RideView)
	if riderView.TripCode != ride.TripCode {
		t.Errorf("rider confirmation must carry the trip code, got %q", riderView.TripCode)
	}

	// The driver saw the offer without the code, then the confirmation with it.
	driverFrames := f.registry.FramesFor(channel.DriverParty("car-near-1"))
	var offered, confirmed *PublishedFrame
	for i := range driverFrames {
		switch driverFrames[i].Event {
		case channel.EventRideOffer:
			offered = &driverFrames[i]
		case channel.EventRideConfirmed:
			confirmed = &driverFrames[i]
		}
	}
	if offered == nil || confirmed == nil {
		t.Fatalf("driver frames = %+v, want a ride-offer and a ride-confirmed", driverFrames)
	}

	raw, err := json.Marshal(offered.Data)
	if err != nil {
		t.Fatalf("marshal offer: %v", err)
	}
	if strings.Contains(string(raw), ride.TripCode) {
		t.Errorf("offer leaked the trip code: %s", raw)
	}

	if view := confirmed.Data.(service.RideView); view.TripCode != ride.TripCode {
		t.Errorf("bound driver's confirmation must carry the trip code, got %q", view.TripCode)
	}
}

func TestCancel_NotifiesCounterpartAndNearbyDrivers(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-bound", domain.VehicleClassCar, 12.98, 77.61)
	f.addDriver(t, "car-close", domain.VehicleClassCar, 12.97, 77.60)
	f.addDriver(t, "car-distant", domain.VehicleClassCar, 12.80, 77.40) // ~30km out
	f.dispatcher.Start()

	lifecycle := service.NewLifecycleService(f.rideRepo, f.driverRepo, f.dispatcher)
	ride := f.submit(t)
	f.dispatcher.Drain()

	if _, err := lifecycle.Accept(context.Background(), ride.ID, "car-bound"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := lifecycle.Cancel(context.Background(), ride.ID, domain.RoleRider, "rider-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.dispatcher.Drain()

	countCancelled := func(id string) int {
		n := 0
		for _, fr := range f.registry.FramesFor(channel.DriverParty(id)) {
			if fr.Event == channel.EventRideCancelled {
				n++
			}
		}
		return n
	}

	if n := countCancelled("car-bound"); n != 1 {
		t.Errorf("bound driver got %d cancellation notices, want exactly 1", n)
	}
	if n := countCancelled("car-close"); n != 1 {
		t.Errorf("close driver got %d cancellation notices, want 1", n)
	}
	if n := countCancelled("car-distant"); n != 0 {
		t.Errorf("distant driver got %d cancellation notices, want 0", n)
	}
}

func TestCancel_ByDriverNotifiesRider(t *testing.T) {
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-bound", domain.VehicleClassCar, 12.98, 77.61)
	f.dispatcher.Start()

	lifecycle := service.NewLifecycleService(f.rideRepo, f.driverRepo, f.dispatcher)
	ride := f.submit(t)
	f.dispatcher.Drain()

	if _, err := lifecycle.Accept(context.Background(), ride.ID, "car-bound"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := lifecycle.Cancel(context.Background(), ride.ID, domain.RoleDriver, "car-bound"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.dispatcher.Drain()

	cancelled := 0
	for _, fr := range f.registry.FramesFor(channel.RiderParty("rider-1")) {
		if fr.Event == channel.EventRideCancelled {
			cancelled++
		}
	}
	if cancelled != 1 {
		t.Errorf("rider got %d cancellation notices, want exactly 1", cancelled)
	}
}

func TestOfferTTL_ExpiresUnclaimedRides(t *testing.T) {
	cfg := defaultDispatchConfig()
	cfg.OfferTTL = 40 * time.Millisecond
	f := newDispatchFixture(t, cfg)
	f.dispatcher.Start()

	ride := f.submit(t)

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, _ := f.rideRepo.GetByID(context.Background(), ride.ID)
		if stored.Status == domain.RideStatusCancelled {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ride still %s after TTL", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	frames := f.registry.FramesFor(channel.RiderParty("rider-1"))
	if len(frames) != 1 || frames[0].Event != channel.EventRideCancelled {
		t.Errorf("rider frames = %+v, want one ride-cancelled", frames)
	}
}

func TestEndToEndRideFlow(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t, defaultDispatchConfig())
	f.addDriver(t, "car-a", domain.VehicleClassCar, 12.98, 77.61)
	f.addDriver(t, "car-b", domain.VehicleClassCar, 12.96, 77.60)
	f.dispatcher.Start()

	lifecycle := service.NewLifecycleService(f.rideRepo, f.driverRepo, f.dispatcher)
	chat := service.NewChatService(f.rideRepo, f.registry)

	// Rider requests; both nearby drivers are offered.
	ride := f.submit(t)
	f.dispatcher.Drain()
	for _, id := range []string{"car-a", "car-b"} {
		if frames := f.registry.FramesFor(channel.DriverParty(id)); len(frames) != 1 {
			t.Fatalf("driver %s offers = %+v", id, frames)
		}
	}

	// Both accept; car-a wins, car-b is told the ride is taken.
	if _, err := lifecycle.Accept(ctx, ride.ID, "car-a"); err != nil {
		t.Fatalf("car-a accept: %v", err)
	}
	if _, err := lifecycle.Accept(ctx, ride.ID, "car-b"); !errors.Is(err, service.ErrRideAlreadyAccepted) {
		t.Fatalf("car-b accept: want ErrRideAlreadyAccepted, got %v", err)
	}

	// Start is gated on the rider's code.
	if _, err := lifecycle.Start(ctx, ride.ID, "car-a", "wrong"); !errors.Is(err, service.ErrInvalidTripCode) {
		t.Fatalf("start with wrong code: %v", err)
	}
	if _, err := lifecycle.Start(ctx, ride.ID, "car-a", ride.TripCode); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Both sides chat; the room sees both messages in order.
	if _, err := chat.Send(ctx, ride.ID, domain.RoleRider, "rider-1", "where are you?", ""); err != nil {
		t.Fatalf("rider send: %v", err)
	}
	if _, err := chat.Send(ctx, ride.ID, domain.RoleDriver, "car-a", "two minutes away", ""); err != nil {
		t.Fatalf("driver send: %v", err)
	}

	room := f.registry.FramesFor(channel.RideParty(ride.ID))
	if len(room) != 2 {
		t.Fatalf("room frames = %+v, want 2", room)
	}
	first := room[0].Data.(service.ChatFrame)
	second := room[1].Data.(service.ChatFrame)
	if first.Body != "where are you?" || second.Body != "two minutes away" {
		t.Errorf("room saw messages out of order: %+v then %+v", first, second)
	}

	// Driver ends the trip; the transcript and final state survive.
	if _, err := lifecycle.End(ctx, ride.ID, "car-a"); err != nil {
		t.Fatalf("end: %v", err)
	}

	final, _ := f.rideRepo.GetByID(ctx, ride.ID)
	if final.Status != domain.RideStatusCompleted || final.DriverID != "car-a" {
		t.Fatalf("final ride = %+v", final)
	}

	transcript, err := chat.History(ctx, ride.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(transcript) != 2 || transcript[0].Seq >= transcript[1].Seq {
		t.Fatalf("transcript = %+v, want 2 entries in seq order", transcript)
	}
}
