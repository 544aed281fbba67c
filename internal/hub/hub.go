package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"samsim/server/internal/proto"
	"samsim/server/internal/state"
	"samsim/server/internal/telemetry"
	"samsim/server/logging"
	lognetwork "samsim/server/logging/network"
)

const (
	writeWait                = 10 * time.Second
	defaultBroadcastInterval = 100 * time.Millisecond
)

// Conn is the write surface the hub needs from a subscriber connection.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber is one registered push client. Writes are serialised by a
// per-subscriber mutex so broadcasts and direct replies never interleave.
type Subscriber struct {
	id   string
	conn Conn
	mu   sync.Mutex
}

// ID returns the subscriber's session identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Write sends one text message with the hub's write deadline applied.
func (s *Subscriber) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Config adjusts hub behaviour.
type Config struct {
	BroadcastInterval time.Duration
	Logger            telemetry.Logger
	Publisher         logging.Publisher
	Counters          *telemetry.Counters
}

// Hub owns the subscriber registry and the fixed-cadence broadcast of store
// snapshots. The registry mutex is never held across a network write.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber

	store     *state.Store
	interval  time.Duration
	logger    telemetry.Logger
	publisher logging.Publisher
	counters  *telemetry.Counters
}

// NewHub creates a hub broadcasting snapshots of the given store.
func NewHub(store *state.Store, cfg Config) *Hub {
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = defaultBroadcastInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		store:       store,
		interval:    interval,
		logger:      logger,
		publisher:   publisher,
		counters:    cfg.Counters,
	}
}

// Subscribe registers a connection and returns its subscriber handle.
func (h *Hub) Subscribe(conn Conn) *Subscriber {
	sub := &Subscriber{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.counters.SubscriberDelta(1)
	h.logger.Printf("client %s connected (%d subscribed)", sub.id, count)
	lognetwork.ClientConnected(context.Background(), h.publisher, sub.id, count)
	return sub
}

// Disconnect removes a subscriber and closes its connection. Repeat calls
// for the same id are no-ops.
func (h *Hub) Disconnect(id, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	sub.conn.Close()
	h.counters.SubscriberDelta(-1)
	h.logger.Printf("client %s disconnected (%s)", id, reason)
	lognetwork.ClientDisconnected(context.Background(), h.publisher, id, lognetwork.DisconnectPayload{Reason: reason})
}

// SubscriberCount reports current registry size.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// BroadcastState pushes one snapshot to every subscriber. The snapshot is
// taken once and marshalled once, so all subscribers in a tick receive
// byte-identical payloads. Failing subscribers are pruned after the
// fan-out completes.
func (h *Hub) BroadcastState() {
	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	snap := h.store.Snapshot()
	data, err := proto.EncodeStatePayload(proto.TypeUpdate, snap)
	if err != nil {
		h.logger.Printf("failed to marshal update message: %v", err)
		return
	}
	h.counters.Broadcast()

	failed := make([]string, 0)
	for id, sub := range subs {
		if err := sub.Write(data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			h.counters.SendFailure()
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		h.Disconnect(id, "send failure")
	}
}

// SendState sends a direct full snapshot to one subscriber.
func (h *Hub) SendState(sub *Subscriber) error {
	snap := h.store.Snapshot()
	data, err := proto.EncodeStatePayload(proto.TypeState, snap)
	if err != nil {
		return err
	}
	return sub.Write(data)
}

// RunBroadcast drives the fixed-rate broadcast loop until the stop channel
// closes.
func (h *Hub) RunBroadcast(stop <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.BroadcastState()
		}
	}
}
