package service

import "errors"

var (
	// ErrRideAlreadyAccepted is returned when another driver won the ride first.
	ErrRideAlreadyAccepted = errors.New("ride already accepted by another driver")

	// ErrRideOngoing is returned when acting on a ride that is already in progress.
	ErrRideOngoing = errors.New("ride already in progress")

	// ErrRideCompleted is returned when acting on a completed ride.
	ErrRideCompleted = errors.New("ride already completed")

	// ErrRideCancelled is returned when acting on a cancelled ride.
	ErrRideCancelled = errors.New("ride already cancelled")

	// ErrRideNotAccepted is returned when starting a ride that has no bound driver yet.
	ErrRideNotAccepted = errors.New("ride not in accepted state")

	// ErrRideNotOngoing is returned when ending a ride that is not in progress.
	ErrRideNotOngoing = errors.New("ride not in progress")

	// ErrNotBoundDriver is returned when a driver acts on a ride bound to someone else.
	ErrNotBoundDriver = errors.New("driver not bound to this ride")

	// ErrNotParticipant is returned when an actor is neither the ride's rider nor its driver.
	ErrNotParticipant = errors.New("actor is not a participant of this ride")

	// ErrInvalidTripCode is returned when the presented trip code does not match.
	ErrInvalidTripCode = errors.New("invalid trip code")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidPickup is returned when the pickup address is empty.
	ErrInvalidPickup = errors.New("invalid pickup address")

	// ErrInvalidDestination is returned when the destination address is empty.
	ErrInvalidDestination = errors.New("invalid destination address")

	// ErrInvalidVehicleClass is returned when the vehicle class is unknown.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidName is returned when a registration name is empty.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidPhone is returned when a registration phone is empty.
	ErrInvalidPhone = errors.New("invalid phone")

	// ErrEmptyMessage is returned when a chat message body is empty.
	ErrEmptyMessage = errors.New("empty message body")

	// ErrAddressNotFound is returned when the geocoder has no result for an address.
	ErrAddressNotFound = errors.New("address not found")

	// ErrGeocoderUnavailable is returned when the geocoding provider cannot be reached.
	ErrGeocoderUnavailable = errors.New("geocoding service unavailable")

	// ErrTranscriptNotPersisted is returned when a chat message was relayed to
	// the live room but could not be appended to the transcript.
	ErrTranscriptNotPersisted = errors.New("message relayed but not persisted")
)
