package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gulshan36/QuickRides/internal/channel"
	"github.com/Gulshan36/QuickRides/internal/domain"
	"github.com/Gulshan36/QuickRides/internal/repository"
	"github.com/Gulshan36/QuickRides/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory RideRepository with the same
// compare-and-set transition semantics as the Postgres implementation.
type MockRideRepository struct {
	mu       sync.Mutex
	rides    map[string]*domain.Ride
	messages map[string][]domain.ChatMessage
	nextSeq  int64

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32

	// Error injection
	CreateError        error
	AppendMessageError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides:    make(map[string]*domain.Ride),
		messages: make(map[string][]domain.ChatMessage),
	}
}

// AddRide seeds a ride.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	return &cp, nil
}

func (m *MockRideRepository) GetByRiderID(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Ride
	for _, r := range m.rides {
		if r.RiderID == riderID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) (bool, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusRequested || ride.DriverID != "" {
		return false, nil
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.AcceptedAt = at
	return true, nil
}

func (m *MockRideRepository) Start(ctx context.Context, rideID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusAccepted {
		return false, nil
	}
	ride.Status = domain.RideStatusOngoing
	ride.StartedAt = at
	return true, nil
}

func (m *MockRideRepository) Complete(ctx context.Context, rideID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusOngoing {
		return false, nil
	}
	ride.Status = domain.RideStatusCompleted
	ride.EndedAt = at
	return true, nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, rideID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status.Terminal() {
		return false, nil
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = at
	return true, nil
}

func (m *MockRideRepository) ExpireIfRequested(ctx context.Context, rideID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok || ride.Status != domain.RideStatusRequested {
		return false, nil
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = at
	return true, nil
}

func (m *MockRideRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if m.AppendMessageError != nil {
		return m.AppendMessageError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	msg.Seq = m.nextSeq
	m.messages[msg.RideID] = append(m.messages[msg.RideID], *msg)
	return nil
}

func (m *MockRideRepository) Messages(ctx context.Context, rideID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, len(m.messages[rideID]))
	copy(out, m.messages[rideID])
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	UpdateStatusError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

func (m *MockDriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		cp := *d
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

// Driver returns a driver for test assertions.
func (m *MockDriverRepository) Driver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is a mock implementation of RiderRepository.
type MockRiderRepository struct {
	mu     sync.RWMutex
	riders map[string]*domain.Rider
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{riders: make(map[string]*domain.Rider)}
}

// AddRider adds a rider to the mock repository.
func (m *MockRiderRepository) AddRider(rider *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
}

func (m *MockRiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
	return nil
}

func (m *MockRiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rider, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rider
	return &cp, nil
}

func (m *MockRiderRepository) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.riders {
		if r.Phone == phone {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK CHANNEL REGISTRY
// ──────────────────────────────────────────────

// PublishedFrame is one recorded Publish call.
type PublishedFrame struct {
	Party channel.Party
	Event string
	Data  any
}

// MockRegistry records every Publish in call order.
type MockRegistry struct {
	mu     sync.Mutex
	frames []PublishedFrame
}

// NewMockRegistry creates a new recording registry.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{}
}

func (m *MockRegistry) Bind(p channel.Party, e channel.Endpoint)  {}
func (m *MockRegistry) Join(p channel.Party, e channel.Endpoint)  {}
func (m *MockRegistry) Leave(p channel.Party, e channel.Endpoint) {}
func (m *MockRegistry) Drop(e channel.Endpoint)                   {}

func (m *MockRegistry) Publish(p channel.Party, event string, data any) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, PublishedFrame{Party: p, Event: event, Data: data})
	return 1
}

// Frames returns every recorded publish.
func (m *MockRegistry) Frames() []PublishedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedFrame, len(m.frames))
	copy(out, m.frames)
	return out
}

// FramesFor returns the publishes addressed to one party, in order.
func (m *MockRegistry) FramesFor(p channel.Party) []PublishedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PublishedFrame
	for _, f := range m.frames {
		if f.Party == p {
			out = append(out, f)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK FANOUT LOCK
// ──────────────────────────────────────────────

// MockFanoutLock is an in-memory FanoutLock that records every acquire and
// release per ride.
type MockFanoutLock struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired map[string]int
	released map[string]int
}

// NewMockFanoutLock creates a new mock fan-out lock.
func NewMockFanoutLock() *MockFanoutLock {
	return &MockFanoutLock{
		held:     make(map[string]bool),
		acquired: make(map[string]int),
		released: make(map[string]int),
	}
}

func (m *MockFanoutLock) AcquireFanoutLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[rideID] {
		return false, nil
	}
	m.held[rideID] = true
	m.acquired[rideID]++
	return true, nil
}

func (m *MockFanoutLock) ReleaseFanoutLock(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, rideID)
	m.released[rideID]++
	return nil
}

// AcquireCount returns how often the ride's lock was taken.
func (m *MockFanoutLock) AcquireCount(rideID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired[rideID]
}

// ReleaseCount returns how often the ride's lock was given back.
func (m *MockFanoutLock) ReleaseCount(rideID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[rideID]
}

// ──────────────────────────────────────────────
// MOCK GEOCODER AND NOTIFIER
// ──────────────────────────────────────────────

// MockGeocoder resolves addresses from a fixed table. Unknown addresses get
// ErrAddressNotFound. Err, when set, overrides everything.
type MockGeocoder struct {
	mu        sync.Mutex
	addresses map[string]service.Coordinate
	err       error
}

// NewMockGeocoder creates a geocoder over the given address table.
func NewMockGeocoder(addresses map[string]service.Coordinate) *MockGeocoder {
	return &MockGeocoder{addresses: addresses}
}

// SetError forces every subsequent lookup to fail with err.
func (m *MockGeocoder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (service.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return service.Coordinate{}, m.err
	}
	coord, ok := m.addresses[address]
	if !ok {
		return service.Coordinate{}, service.ErrAddressNotFound
	}
	return coord, nil
}

// MockNotifier records lifecycle notifications.
type MockNotifier struct {
	mu        sync.Mutex
	Accepted  []string
	Started   []string
	Ended     []string
	Cancelled []string
}

func (m *MockNotifier) NotifyAccepted(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accepted = append(m.Accepted, ride.ID)
}

func (m *MockNotifier) NotifyStarted(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, ride.ID)
}

func (m *MockNotifier) NotifyEnded(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ended = append(m.Ended, ride.ID)
}

func (m *MockNotifier) NotifyCancelled(ride *domain.Ride, prev domain.RideStatus, by domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, ride.ID)
}
