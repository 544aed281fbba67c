package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"samsim/server/internal/proto"
	"samsim/server/internal/state"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	copied := append([]byte(nil), data...)
	c.messages = append(c.messages, copied)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeConn) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestHub() (*Hub, *state.Store) {
	store := state.NewStore()
	return NewHub(store, Config{}), store
}

func TestBroadcastStateSendsIdenticalPayloads(t *testing.T) {
	h, store := newTestHub()
	store.ApplyStatus(state.StatusUpdate{
		MissionTime: 12,
		Sites: map[string]state.SiteUpdate{
			"sam1": {SystemState: 2},
		},
	})

	conns := []*fakeConn{{}, {}, {}}
	for _, conn := range conns {
		h.Subscribe(conn)
	}

	h.BroadcastState()

	var first []byte
	for i, conn := range conns {
		sent := conn.sent()
		if len(sent) != 1 {
			t.Fatalf("expected one message on conn %d, got %d", i, len(sent))
		}
		if first == nil {
			first = sent[0]
			continue
		}
		if string(sent[0]) != string(first) {
			t.Fatalf("expected byte-identical payloads, conn %d differs", i)
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(first, &payload); err != nil {
		t.Fatalf("failed to decode broadcast payload: %v", err)
	}
	if payload["type"] != proto.TypeUpdate {
		t.Fatalf("expected type %q, got %v", proto.TypeUpdate, payload["type"])
	}
	if payload["missionTime"] != 12.0 {
		t.Fatalf("expected missionTime 12, got %v", payload["missionTime"])
	}
}

func TestBroadcastStatePrunesFailingSubscribers(t *testing.T) {
	h, _ := newTestHub()

	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("connection reset")}
	h.Subscribe(healthy)
	brokenSub := h.Subscribe(broken)

	h.BroadcastState()

	if h.SubscriberCount() != 1 {
		t.Fatalf("expected failing subscriber pruned, got %d subscribers", h.SubscriberCount())
	}
	if !broken.wasClosed() {
		t.Fatalf("expected failing connection closed")
	}

	h.BroadcastState()
	if got := len(healthy.sent()); got != 2 {
		t.Fatalf("expected healthy subscriber to keep receiving, got %d messages", got)
	}

	// Pruning the same id again must be a no-op.
	h.Disconnect(brokenSub.ID(), "send failure")
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected repeat disconnect to be a no-op")
	}
}

func TestBroadcastStateSkipsEmptyRegistry(t *testing.T) {
	h, store := newTestHub()
	store.ApplyStatus(state.StatusUpdate{MissionTime: 1})

	// Must not panic or touch the store snapshot path.
	h.BroadcastState()

	if h.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.SubscriberCount())
	}
}

func TestSendStateUsesDirectType(t *testing.T) {
	h, store := newTestHub()
	store.EnsureSite("sam1")

	conn := &fakeConn{}
	sub := h.Subscribe(conn)

	if err := h.SendState(sub); err != nil {
		t.Fatalf("failed to send state: %v", err)
	}

	sent := conn.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sent))
	}

	var payload map[string]any
	if err := json.Unmarshal(sent[0], &payload); err != nil {
		t.Fatalf("failed to decode state payload: %v", err)
	}
	if payload["type"] != proto.TypeState {
		t.Fatalf("expected type %q, got %v", proto.TypeState, payload["type"])
	}
	sites, ok := payload["sites"].(map[string]any)
	if !ok {
		t.Fatalf("expected sites object, got %T", payload["sites"])
	}
	site, ok := sites["sam1"].(map[string]any)
	if !ok {
		t.Fatalf("expected sam1 site, got %v", sites)
	}
	if site["antennaEl"] != 5.0 {
		t.Fatalf("expected default antennaEl 5, got %v", site["antennaEl"])
	}
	if site["missilesReady"] != 6.0 {
		t.Fatalf("expected default missilesReady 6, got %v", site["missilesReady"])
	}
}

func TestRunBroadcastStops(t *testing.T) {
	h, _ := newTestHub()
	conn := &fakeConn{}
	h.Subscribe(conn)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		h.RunBroadcast(stop)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(conn.sent()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected at least one broadcast before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected broadcast loop to stop")
	}
}
