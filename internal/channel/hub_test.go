package channel

import (
	"encoding/json"
	"sync"
	"testing"
)

// stubEndpoint records frames in arrival order.
type stubEndpoint struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (s *stubEndpoint) Queue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *stubEndpoint) events(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, raw := range s.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		out = append(out, f.Event)
	}
	return out
}

func TestHub_PublishToUnboundPartyIsSilentNoOp(t *testing.T) {
	h := NewHub()

	if n := h.Publish(RiderParty("nobody"), EventRideConfirmed, nil); n != 0 {
		t.Fatalf("expected 0 endpoints reached, got %d", n)
	}
}

func TestHub_BindReplacesPreviousEndpoint(t *testing.T) {
	h := NewHub()
	old := &stubEndpoint{}
	current := &stubEndpoint{}
	p := RiderParty("r-1")

	h.Bind(p, old)
	h.Bind(p, current)

	if n := h.Publish(p, EventRideConfirmed, nil); n != 1 {
		t.Fatalf("expected delivery to exactly 1 endpoint, got %d", n)
	}
	if len(old.events(t)) != 0 {
		t.Error("replaced endpoint still received events")
	}
	if got := current.events(t); len(got) != 1 || got[0] != EventRideConfirmed {
		t.Errorf("current endpoint events = %v", got)
	}
}

func TestHub_JoinAccumulatesRideRoomEndpoints(t *testing.T) {
	h := NewHub()
	rider := &stubEndpoint{}
	driver := &stubEndpoint{}
	room := RideParty("ride-1")

	h.Join(room, rider)
	h.Join(room, driver)

	if n := h.Publish(room, EventMessageReceived, nil); n != 2 {
		t.Fatalf("expected delivery to both room members, got %d", n)
	}
}

func TestHub_PublishOrderPreservedPerParty(t *testing.T) {
	h := NewHub()
	e := &stubEndpoint{}
	p := DriverParty("d-1")
	h.Bind(p, e)

	h.Publish(p, EventRideOffer, map[string]string{"seq": "1"})
	h.Publish(p, EventRideCancelled, map[string]string{"seq": "2"})

	got := e.events(t)
	if len(got) != 2 || got[0] != EventRideOffer || got[1] != EventRideCancelled {
		t.Fatalf("events out of order: %v", got)
	}
}

func TestHub_FullEndpointCountsAsUndelivered(t *testing.T) {
	h := NewHub()
	e := &stubEndpoint{full: true}
	p := DriverParty("d-1")
	h.Bind(p, e)

	if n := h.Publish(p, EventRideOffer, nil); n != 0 {
		t.Fatalf("expected 0 deliveries to a saturated endpoint, got %d", n)
	}
}

func TestHub_LeaveAndDrop(t *testing.T) {
	h := NewHub()
	e := &stubEndpoint{}
	room := RideParty("ride-1")
	own := DriverParty("d-1")

	h.Bind(own, e)
	h.Join(room, e)

	h.Leave(room, e)
	if n := h.Publish(room, EventMessageReceived, nil); n != 0 {
		t.Fatalf("left endpoint still reachable in room: %d", n)
	}
	if n := h.Publish(own, EventRideOffer, nil); n != 1 {
		t.Fatalf("leaving a room must not unbind the own party: %d", n)
	}

	h.Drop(e)
	if n := h.Publish(own, EventRideOffer, nil); n != 0 {
		t.Fatalf("dropped endpoint still reachable: %d", n)
	}
}

func TestHub_CloseDetachesEverything(t *testing.T) {
	h := NewHub()
	e := &stubEndpoint{}
	p := RiderParty("r-1")
	h.Bind(p, e)

	h.Close()
	if n := h.Publish(p, EventRideConfirmed, nil); n != 0 {
		t.Fatalf("publish after close reached %d endpoints", n)
	}
	h.Bind(p, e)
	if n := h.Publish(p, EventRideConfirmed, nil); n != 0 {
		t.Fatalf("bind after close must be ignored, reached %d", n)
	}
}
