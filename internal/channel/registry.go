package channel

// Party is an addressable recipient of real-time events: a specific rider,
// a specific driver, or a specific ride's shared room.
type Party string

// RiderParty addresses one rider's endpoints.
func RiderParty(riderID string) Party { return Party("rider:" + riderID) }

// DriverParty addresses one driver's endpoints.
func DriverParty(driverID string) Party { return Party("driver:" + driverID) }

// RideParty addresses the shared room of one ride.
func RideParty(rideID string) Party { return Party("ride:" + rideID) }

// Event names pushed over the wire.
const (
	EventRideOffer       = "ride-offer"
	EventRideConfirmed   = "ride-confirmed"
	EventRideStarted     = "ride-started"
	EventRideEnded       = "ride-ended"
	EventRideCancelled   = "ride-cancelled"
	EventMessageReceived = "message-received"
	EventError           = "error"
)

// Endpoint is one live delivery path bound to a party.
type Endpoint interface {
	// Queue enqueues a frame for delivery without blocking. It returns false
	// when the endpoint cannot take the frame (buffer full or closed).
	Queue(frame []byte) bool
}

// Registry maps parties to live endpoints and delivers events best-effort.
//
// Delivery guarantees are deliberately weak: publishing to a party with no
// bound endpoints is a silent no-op, and two publishes from the same
// goroutine to the same party reach each endpoint in publish order. Nothing
// is guaranteed across parties.
type Registry interface {
	// Bind makes e the only endpoint of the party, replacing any previous
	// endpoints. Used for rider and driver scopes, where the newest device
	// wins.
	Bind(p Party, e Endpoint)

	// Join adds e to the party without displacing others. Used for ride
	// rooms, which both participants share.
	Join(p Party, e Endpoint)

	// Leave removes e from the party.
	Leave(p Party, e Endpoint)

	// Drop removes e from every party it is bound to.
	Drop(e Endpoint)

	// Publish sends the event to every endpoint of the party and returns how
	// many endpoints it reached. Zero is not an error.
	Publish(p Party, event string, data any) int
}
