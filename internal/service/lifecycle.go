package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
)

// Notifier pushes lifecycle events to interested parties. Delivery is best
// effort; lifecycle outcomes never depend on it.
type Notifier interface {
	NotifyAccepted(ride *domain.Ride)
	NotifyStarted(ride *domain.Ride)
	NotifyEnded(ride *domain.Ride)
	NotifyCancelled(ride *domain.Ride, prev domain.RideStatus, by domain.Role)
}

// LifecycleService owns ride state transitions. Every transition is a
// compare-and-set in the repository; this service translates lost swaps into
// the error matching the state the ride actually reached.
type LifecycleService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	notifier   Notifier
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(rideRepo repository.RideRepository, driverRepo repository.DriverRepository, notifier Notifier) *LifecycleService {
	return &LifecycleService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		notifier:   notifier,
	}
}

// acceptConflict maps the status an acceptance raced against to its error.
// Each lost acceptance names what actually happened to the ride, so the
// losing driver's client can show the right message.
func acceptConflict(status domain.RideStatus) error {
	switch status {
	case domain.RideStatusAccepted:
		return ErrRideAlreadyAccepted
	case domain.RideStatusOngoing:
		return ErrRideOngoing
	case domain.RideStatusCompleted:
		return ErrRideCompleted
	case domain.RideStatusCancelled:
		return ErrRideCancelled
	default:
		return ErrRideAlreadyAccepted
	}
}

// Accept binds the driver to the ride. Exactly one concurrent caller wins;
// every other caller gets the error for the state the winner left behind.
// A repeated accept by the winning driver also fails, acceptance is not
// idempotent.
func (s *LifecycleService) Accept(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if _, err := s.driverRepo.GetByID(ctx, driverID); err != nil {
		return nil, err
	}

	won, err := s.rideRepo.Accept(ctx, rideID, driverID, time.Now())
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if !won {
		return nil, acceptConflict(ride.Status)
	}

	if s.notifier != nil {
		s.notifier.NotifyAccepted(ride)
	}
	return ride, nil
}

// Start moves an accepted ride to ongoing. Only the bound driver may start,
// and only with the exact trip code the rider holds.
func (s *LifecycleService) Start(ctx context.Context, rideID, driverID, tripCode string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch ride.Status {
	case domain.RideStatusRequested:
		return nil, ErrRideNotAccepted
	case domain.RideStatusOngoing:
		return nil, ErrRideOngoing
	case domain.RideStatusCompleted:
		return nil, ErrRideCompleted
	case domain.RideStatusCancelled:
		return nil, ErrRideCancelled
	}

	if ride.DriverID != driverID {
		return nil, ErrNotBoundDriver
	}

	if subtle.ConstantTimeCompare([]byte(tripCode), []byte(ride.TripCode)) != 1 {
		return nil, ErrInvalidTripCode
	}

	started, err := s.rideRepo.Start(ctx, rideID, time.Now())
	if err != nil {
		return nil, err
	}
	if !started {
		// Raced with a cancel or a duplicate start; report what won.
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		return nil, acceptConflict(current.Status)
	}

	ride, err = s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyStarted(ride)
	}
	return ride, nil
}

// End moves an ongoing ride to completed. Only the bound driver may end it.
func (s *LifecycleService) End(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch ride.Status {
	case domain.RideStatusRequested, domain.RideStatusAccepted:
		return nil, ErrRideNotOngoing
	case domain.RideStatusCompleted:
		return nil, ErrRideCompleted
	case domain.RideStatusCancelled:
		return nil, ErrRideCancelled
	}

	if ride.DriverID != driverID {
		return nil, ErrNotBoundDriver
	}

	completed, err := s.rideRepo.Complete(ctx, rideID, time.Now())
	if err != nil {
		return nil, err
	}
	if !completed {
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		return nil, acceptConflict(current.Status)
	}

	ride, err = s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyEnded(ride)
	}
	return ride, nil
}

// Cancel moves any non-terminal ride to cancelled on behalf of one of its
// participants. Terminal rides stay closed.
func (s *LifecycleService) Cancel(ctx context.Context, rideID string, by domain.Role, actorID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch by {
	case domain.RoleRider:
		if ride.RiderID != actorID {
			return nil, ErrNotParticipant
		}
	case domain.RoleDriver:
		if ride.DriverID == "" || ride.DriverID != actorID {
			return nil, ErrNotBoundDriver
		}
	default:
		return nil, ErrNotParticipant
	}

	switch ride.Status {
	case domain.RideStatusCompleted:
		return nil, ErrRideCompleted
	case domain.RideStatusCancelled:
		return nil, ErrRideCancelled
	}

	prev := ride.Status
	cancelled, err := s.rideRepo.Cancel(ctx, rideID, time.Now())
	if err != nil {
		return nil, err
	}
	if !cancelled {
		current, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		return nil, acceptConflict(current.Status)
	}

	ride, err = s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyCancelled(ride, prev, by)
	}
	return ride, nil
}

// Get returns a ride by ID.
func (s *LifecycleService) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}
