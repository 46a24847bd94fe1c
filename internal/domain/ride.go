package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusOngoing   RideStatus = "ongoing"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// Terminal reports whether no further transition is reachable from the status.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Role identifies which side of a ride an actor is on.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleRider {
		return RoleDriver
	}
	return RoleRider
}

// Ride represents one requester-to-driver trip spanning its full lifecycle.
// A ride is never deleted; terminal statuses close it permanently.
type Ride struct {
	ID           string
	RiderID      string
	DriverID     string // empty until accepted; permanent once set
	Pickup       string // free-form address, geocoded outside the core
	Destination  string
	VehicleClass VehicleClass
	Fare         float64
	TripCode     string // gates accepted -> ongoing; withheld from drivers until bound
	Status       RideStatus
	CreatedAt    time.Time
	AcceptedAt   time.Time
	StartedAt    time.Time
	EndedAt      time.Time
	CancelledAt  time.Time
}

// ChatMessage is one entry in a ride's append-only transcript.
type ChatMessage struct {
	ID         string
	RideID     string
	Seq        int64 // server-assigned, strictly increasing per ride
	Sender     Role
	Body       string
	ClientTime string // wall-clock string supplied by the sending client
	SentAt     time.Time
}
