package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
	"github.com/Gulshan36/QuickRides/internal/service"
)

func seedRide(rideRepo *MockRideRepository, status domain.RideStatus, driverID string) *domain.Ride {
	ride := &domain.Ride{
		ID:           "ride-1",
		RiderID:      "rider-1",
		DriverID:     driverID,
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: domain.VehicleClassCar,
		Fare:         320,
		TripCode:     "481516",
		Status:       status,
		CreatedAt:    time.Now(),
	}
	rideRepo.AddRide(ride)
	return ride
}

func seedDrivers(driverRepo *MockDriverRepository, ids ...string) {
	for _, id := range ids {
		driverRepo.AddDriver(&domain.Driver{
			ID:           id,
			Name:         "drv " + id,
			Phone:        "9" + id,
			VehicleClass: domain.VehicleClassCar,
			Status:       domain.DriverStatusActive,
		})
	}
}

func TestAccept_ExactlyOneConcurrentWinner(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	notifier := &MockNotifier{}
	svc := service.NewLifecycleService(rideRepo, driverRepo, notifier)

	seedRide(rideRepo, domain.RideStatusRequested, "")

	const contenders = 8
	drivers := make([]string, contenders)
	for i := range drivers {
		drivers[i] = "driver-" + string(rune('a'+i))
	}
	seedDrivers(driverRepo, drivers...)

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i, id := range drivers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = svc.Accept(ctx, "ride-1", id)
		}(i, id)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, service.ErrRideAlreadyAccepted):
		default:
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	ride, _ := rideRepo.GetByID(ctx, "ride-1")
	if ride.Status != domain.RideStatusAccepted || ride.DriverID == "" {
		t.Fatalf("ride not bound after accept: %+v", ride)
	}
	if len(notifier.Accepted) != 1 {
		t.Errorf("expected 1 accepted notification, got %d", len(notifier.Accepted))
	}
}

func TestAccept_ReacceptByWinnerFails(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

	seedRide(rideRepo, domain.RideStatusRequested, "")
	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.Accept(ctx, "ride-1", "driver-a"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.Accept(ctx, "ride-1", "driver-a"); !errors.Is(err, service.ErrRideAlreadyAccepted) {
		t.Fatalf("re-accept by winner: want ErrRideAlreadyAccepted, got %v", err)
	}
}

func TestAccept_StatusSpecificErrors(t *testing.T) {
	cases := []struct {
		status domain.RideStatus
		want   error
	}{
		{domain.RideStatusAccepted, service.ErrRideAlreadyAccepted},
		{domain.RideStatusOngoing, service.ErrRideOngoing},
		{domain.RideStatusCompleted, service.ErrRideCompleted},
		{domain.RideStatusCancelled, service.ErrRideCancelled},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			ctx := context.Background()
			rideRepo := NewMockRideRepository()
			driverRepo := NewMockDriverRepository()
			svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

			seedRide(rideRepo, tc.status, "driver-a")
			seedDrivers(driverRepo, "driver-a", "driver-b")

			if _, err := svc.Accept(ctx, "ride-1", "driver-b"); !errors.Is(err, tc.want) {
				t.Fatalf("accept on %s ride: want %v, got %v", tc.status, tc.want, err)
			}
		})
	}
}

func TestAccept_UnknownRideAndDriver(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.Accept(ctx, "ghost", "driver-a"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown ride: want ErrNotFound, got %v", err)
	}

	seedRide(rideRepo, domain.RideStatusRequested, "")
	if _, err := svc.Accept(ctx, "ride-1", "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown driver: want ErrNotFound, got %v", err)
	}
}

func TestStart_TripCodeGate(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	notifier := &MockNotifier{}
	svc := service.NewLifecycleService(rideRepo, driverRepo, notifier)

	seedRide(rideRepo, domain.RideStatusAccepted, "driver-a")
	seedDrivers(driverRepo, "driver-a", "driver-b")

	if _, err := svc.Start(ctx, "ride-1", "driver-b", "481516"); !errors.Is(err, service.ErrNotBoundDriver) {
		t.Fatalf("unbound driver: want ErrNotBoundDriver, got %v", err)
	}
	if _, err := svc.Start(ctx, "ride-1", "driver-a", "000000"); !errors.Is(err, service.ErrInvalidTripCode) {
		t.Fatalf("wrong code: want ErrInvalidTripCode, got %v", err)
	}

	ride, _ := rideRepo.GetByID(ctx, "ride-1")
	if ride.Status != domain.RideStatusAccepted {
		t.Fatalf("failed starts must not move the ride, status=%s", ride.Status)
	}

	ride, err := svc.Start(ctx, "ride-1", "driver-a", "481516")
	if err != nil {
		t.Fatalf("start with right code: %v", err)
	}
	if ride.Status != domain.RideStatusOngoing || ride.StartedAt.IsZero() {
		t.Fatalf("ride not ongoing after start: %+v", ride)
	}
	if len(notifier.Started) != 1 {
		t.Errorf("expected 1 started notification, got %d", len(notifier.Started))
	}
}

func TestStart_RequiresAcceptedState(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

	seedRide(rideRepo, domain.RideStatusRequested, "")
	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.Start(ctx, "ride-1", "driver-a", "481516"); !errors.Is(err, service.ErrRideNotAccepted) {
		t.Fatalf("start on requested ride: want ErrRideNotAccepted, got %v", err)
	}
}

func TestEnd_OnlyFromOngoing(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	notifier := &MockNotifier{}
	svc := service.NewLifecycleService(rideRepo, driverRepo, notifier)

	seedRide(rideRepo, domain.RideStatusAccepted, "driver-a")
	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.End(ctx, "ride-1", "driver-a"); !errors.Is(err, service.ErrRideNotOngoing) {
		t.Fatalf("end before start: want ErrRideNotOngoing, got %v", err)
	}

	if _, err := svc.Start(ctx, "ride-1", "driver-a", "481516"); err != nil {
		t.Fatalf("start: %v", err)
	}

	ride, err := svc.End(ctx, "ride-1", "driver-a")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted || ride.EndedAt.IsZero() {
		t.Fatalf("ride not completed after end: %+v", ride)
	}

	if _, err := svc.End(ctx, "ride-1", "driver-a"); !errors.Is(err, service.ErrRideCompleted) {
		t.Fatalf("double end: want ErrRideCompleted, got %v", err)
	}
	if len(notifier.Ended) != 1 {
		t.Errorf("expected 1 ended notification, got %d", len(notifier.Ended))
	}
}

func TestCancel_ParticipantsAndTerminalStates(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	notifier := &MockNotifier{}
	svc := service.NewLifecycleService(rideRepo, driverRepo, notifier)

	seedRide(rideRepo, domain.RideStatusAccepted, "driver-a")
	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.Cancel(ctx, "ride-1", domain.RoleRider, "someone-else"); !errors.Is(err, service.ErrNotParticipant) {
		t.Fatalf("foreign rider cancel: want ErrNotParticipant, got %v", err)
	}
	if _, err := svc.Cancel(ctx, "ride-1", domain.RoleDriver, "driver-b"); !errors.Is(err, service.ErrNotBoundDriver) {
		t.Fatalf("foreign driver cancel: want ErrNotBoundDriver, got %v", err)
	}

	ride, err := svc.Cancel(ctx, "ride-1", domain.RoleRider, "rider-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled || ride.CancelledAt.IsZero() {
		t.Fatalf("ride not cancelled: %+v", ride)
	}

	if _, err := svc.Cancel(ctx, "ride-1", domain.RoleRider, "rider-1"); !errors.Is(err, service.ErrRideCancelled) {
		t.Fatalf("double cancel: want ErrRideCancelled, got %v", err)
	}
	if len(notifier.Cancelled) != 1 {
		t.Errorf("expected 1 cancelled notification, got %d", len(notifier.Cancelled))
	}
}

func TestCancel_OngoingRideByDriver(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

	seedRide(rideRepo, domain.RideStatusOngoing, "driver-a")
	seedDrivers(driverRepo, "driver-a")

	ride, err := svc.Cancel(ctx, "ride-1", domain.RoleDriver, "driver-a")
	if err != nil {
		t.Fatalf("driver cancel of ongoing ride: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Fatalf("status = %s, want cancelled", ride.Status)
	}
}

func TestCancel_CompletedRideStaysClosed(t *testing.T) {
	ctx := context.Background()
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	svc := service.NewLifecycleService(rideRepo, driverRepo, &MockNotifier{})

	seedRide(rideRepo, domain.RideStatusCompleted, "driver-a")
	seedDrivers(driverRepo, "driver-a")

	if _, err := svc.Cancel(ctx, "ride-1", domain.RoleRider, "rider-1"); !errors.Is(err, service.ErrRideCompleted) {
		t.Fatalf("cancel completed ride: want ErrRideCompleted, got %v", err)
	}
}

func TestGenerateTripCode_DigitsClamped(t *testing.T) {
	for _, digits := range []int{-1, 0, 4, 5, 6, 9} {
		code, err := service.GenerateTripCode(digits)
		if err != nil {
			t.Fatalf("generate(%d): %v", digits, err)
		}
		if len(code) < 4 || len(code) > 6 {
			t.Errorf("generate(%d) produced %q, want 4-6 digits", digits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Errorf("generate(%d) produced non-digit %q", digits, code)
			}
		}
	}
}
