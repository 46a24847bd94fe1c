package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/Gulshan36/QuickRides/internal/config"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/geo"
	"github.com/Gulshan36/QuickRides/internal/service"
)

func presenceFixture(cfg config.DispatchConfig) (*MockDriverRepository, *geo.MemoryIndex, *service.DriverService) {
	driverRepo := NewMockDriverRepository()
	index := geo.NewMemoryIndex()
	return driverRepo, index, service.NewDriverService(cfg, driverRepo, index, nil)
}

func findable(t *testing.T, index *geo.MemoryIndex, driverID string, class domain.VehicleClass) bool {
	t.Helper()
	candidates, err := index.Search(context.Background(), geo.Query{
		Lat: 12.97, Lng: 77.60, RadiusKm: 10,
		VehicleClass:  class,
		OnlyAvailable: true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, c := range candidates {
		if c.DriverID == driverID {
			return true
		}
	}
	return false
}

func TestUpdateLocation_AutoActivatesInactiveDriver(t *testing.T) {
	ctx := context.Background()
	cfg := config.DispatchConfig{AutoActivateOnLocation: true}
	driverRepo, index, drivers := presenceFixture(cfg)

	driverRepo.AddDriver(&domain.Driver{
		ID: "d1", VehicleClass: domain.VehicleClassAuto, Status: domain.DriverStatusInactive,
	})

	if err := drivers.UpdateLocation(ctx, "d1", 12.97, 77.60); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if got := driverRepo.Driver("d1").Status; got != domain.DriverStatusActive {
		t.Errorf("driver status = %s, want active", got)
	}
	if !findable(t, index, "d1", domain.VehicleClassAuto) {
		t.Error("driver should be findable after a location report")
	}
}

func TestUpdateLocation_PolicyOffKeepsInactiveDriversHidden(t *testing.T) {
	ctx := context.Background()
	cfg := config.DispatchConfig{AutoActivateOnLocation: false}
	driverRepo, index, drivers := presenceFixture(cfg)

	driverRepo.AddDriver(&domain.Driver{
		ID: "d1", VehicleClass: domain.VehicleClassAuto, Status: domain.DriverStatusInactive,
	})

	if err := drivers.UpdateLocation(ctx, "d1", 12.97, 77.60); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if got := driverRepo.Driver("d1").Status; got != domain.DriverStatusInactive {
		t.Errorf("driver status = %s, want inactive", got)
	}
	if findable(t, index, "d1", domain.VehicleClassAuto) {
		t.Error("inactive driver must not be offered rides")
	}
}

func TestUpdateLocation_RejectsBadCoordinates(t *testing.T) {
	ctx := context.Background()
	driverRepo, _, drivers := presenceFixture(config.DispatchConfig{})
	driverRepo.AddDriver(&domain.Driver{ID: "d1", VehicleClass: domain.VehicleClassCar, Status: domain.DriverStatusActive})

	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}} {
		if err := drivers.UpdateLocation(ctx, "d1", c[0], c[1]); !errors.Is(err, service.ErrInvalidLocation) {
			t.Errorf("coords %v: want ErrInvalidLocation, got %v", c, err)
		}
	}
}

func TestLogout_RemovesDriverFromRotation(t *testing.T) {
	ctx := context.Background()
	driverRepo, index, drivers := presenceFixture(config.DispatchConfig{AutoActivateOnLocation: true})
	driverRepo.AddDriver(&domain.Driver{ID: "d1", VehicleClass: domain.VehicleClassCar, Status: domain.DriverStatusActive})

	if err := drivers.UpdateLocation(ctx, "d1", 12.97, 77.60); err != nil {
		t.Fatalf("update location: %v", err)
	}
	if err := drivers.Logout(ctx, "d1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if got := driverRepo.Driver("d1").Status; got != domain.DriverStatusInactive {
		t.Errorf("driver status = %s, want inactive", got)
	}
	if findable(t, index, "d1", domain.VehicleClassCar) {
		t.Error("logged out driver still findable")
	}
}

func TestDisconnected_PolicyControlsDeactivation(t *testing.T) {
	ctx := context.Background()

	// Default policy: a dropped socket changes nothing.
	driverRepo, index, drivers := presenceFixture(config.DispatchConfig{AutoActivateOnLocation: true})
	driverRepo.AddDriver(&domain.Driver{ID: "d1", VehicleClass: domain.VehicleClassCar, Status: domain.DriverStatusActive})
	if err := drivers.UpdateLocation(ctx, "d1", 12.97, 77.60); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if err := drivers.Disconnected(ctx, "d1"); err != nil {
		t.Fatalf("disconnected: %v", err)
	}
	if !findable(t, index, "d1", domain.VehicleClassCar) {
		t.Error("default policy must keep the driver in rotation")
	}

	// Opt-in policy: a dropped socket deactivates.
	driverRepo2, index2, drivers2 := presenceFixture(config.DispatchConfig{
		AutoActivateOnLocation: true,
		DeactivateOnDisconnect: true,
	})
	driverRepo2.AddDriver(&domain.Driver{ID: "d2", VehicleClass: domain.VehicleClassCar, Status: domain.DriverStatusActive})
	if err := drivers2.UpdateLocation(ctx, "d2", 12.97, 77.60); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if err := drivers2.Disconnected(ctx, "d2"); err != nil {
		t.Fatalf("disconnected: %v", err)
	}
	if findable(t, index2, "d2", domain.VehicleClassCar) {
		t.Error("deactivate-on-disconnect policy must pull the driver")
	}
	if got := driverRepo2.Driver("d2").Status; got != domain.DriverStatusInactive {
		t.Errorf("driver status = %s, want inactive", got)
	}
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	_, _, drivers := presenceFixture(config.DispatchConfig{})

	if _, err := drivers.Register(ctx, "", "9000", domain.VehicleClassCar); !errors.Is(err, service.ErrInvalidName) {
		t.Errorf("empty name: got %v", err)
	}
	if _, err := drivers.Register(ctx, "Ravi", "", domain.VehicleClassCar); !errors.Is(err, service.ErrInvalidPhone) {
		t.Errorf("empty phone: got %v", err)
	}
	if _, err := drivers.Register(ctx, "Ravi", "9000", domain.VehicleClass("rickshaw")); !errors.Is(err, service.ErrInvalidVehicleClass) {
		t.Errorf("bad class: got %v", err)
	}

	driver, err := drivers.Register(ctx, "Ravi", "9000", domain.VehicleClassBike)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if driver.Status != domain.DriverStatusInactive {
		t.Errorf("new driver status = %s, want inactive", driver.Status)
	}
	if driver.ID == "" {
		t.Error("new driver must get an id")
	}
}
