package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Gulshan36/QuickRides/internal/config"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/geo"
	redisstore "github.com/Gulshan36/QuickRides/internal/redis"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

// DriverService handles driver registration, presence and location reporting.
type DriverService struct {
	cfg        config.DispatchConfig
	driverRepo repository.DriverRepository
	index      geo.Index
	cache      redisstore.DriverCache // optional
}

// NewDriverService creates a new DriverService.
func NewDriverService(cfg config.DispatchConfig, driverRepo repository.DriverRepository, index geo.Index, cache redisstore.DriverCache) *DriverService {
	return &DriverService{
		cfg:        cfg,
		driverRepo: driverRepo,
		index:      index,
		cache:      cache,
	}
}

// Register creates a new driver, initially inactive.
func (s *DriverService) Register(ctx context.Context, name, phone string, class domain.VehicleClass) (*domain.Driver, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if !class.Valid() {
		return nil, ErrInvalidVehicleClass
	}

	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         name,
		Phone:        phone,
		VehicleClass: class,
		Status:       domain.DriverStatusInactive,
		CreatedAt:    time.Now(),
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// Get returns a driver by ID.
func (s *DriverService) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// List returns all drivers.
func (s *DriverService) List(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// Join marks a driver active and eligible for offers.
func (s *DriverService) Join(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusActive); err != nil {
		return err
	}
	if err := s.index.SetAvailable(ctx, driverID, true); err != nil {
		return err
	}
	s.invalidate(ctx, driverID)
	return nil
}

// UpdateLocation records a driver's position. An inactive driver reporting a
// position is put back in rotation when the auto-activate policy is on.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidLocation
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	if err := s.index.Update(ctx, geo.Position{
		DriverID:     driverID,
		VehicleClass: driver.VehicleClass,
		Lat:          lat,
		Lng:          lng,
	}); err != nil {
		return err
	}

	if s.cfg.AutoActivateOnLocation && driver.Status != domain.DriverStatusActive {
		if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusActive); err != nil {
			return err
		}
		s.invalidate(ctx, driverID)
	}

	return s.index.SetAvailable(ctx, driverID, s.cfg.AutoActivateOnLocation || driver.Status == domain.DriverStatusActive)
}

// Logout marks a driver inactive and removes them from the index.
func (s *DriverService) Logout(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusInactive); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, driverID); err != nil {
		return err
	}
	s.invalidate(ctx, driverID)
	return nil
}

// Disconnected handles a dropped socket. Presence only changes when the
// deactivate-on-disconnect policy is on; by default a dropped socket means
// the driver simply stops receiving until they reconnect.
func (s *DriverService) Disconnected(ctx context.Context, driverID string) error {
	if !s.cfg.DeactivateOnDisconnect {
		return nil
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusInactive); err != nil {
		return err
	}
	if err := s.index.SetAvailable(ctx, driverID, false); err != nil {
		return err
	}
	s.invalidate(ctx, driverID)
	return nil
}

func (s *DriverService) invalidate(ctx context.Context, driverID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateDriver(ctx, driverID)
	}
}
