package dcs

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"samsim/server/internal/export"
	"samsim/server/internal/journal"
	"samsim/server/internal/proto"
	"samsim/server/internal/state"
	"samsim/server/internal/telemetry"
	"samsim/server/logging"
	logingest "samsim/server/logging/ingest"
)

const (
	defaultPollInterval = 10 * time.Millisecond
	maxDatagramSize     = 65535
)

// ReceiverConfig wires the ingestion channel.
type ReceiverConfig struct {
	Port         int
	PollInterval time.Duration
	BridgeID     string
	Logger       telemetry.Logger
	Publisher    logging.Publisher
	Counters     *telemetry.Counters
	Journal      *journal.Writer
	Exporter     export.Writer
}

// Receiver drains the simulation's datagram feed into the store. The poll
// loop never blocks longer than the poll interval and never stops because
// of a bad datagram.
type Receiver struct {
	conn         *net.UDPConn
	store        *state.Store
	pollInterval time.Duration
	bridgeID     string
	logger       telemetry.Logger
	publisher    logging.Publisher
	counters     *telemetry.Counters
	journal      *journal.Writer
	exporter     export.Writer
}

// NewReceiver binds the inbound datagram socket. A bind failure is the one
// fatal startup error on this path.
func NewReceiver(store *state.Store, cfg ReceiverConfig) (*Receiver, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("bind ingest port %d: %w", cfg.Port, err)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	return &Receiver{
		conn:         conn,
		store:        store,
		pollInterval: pollInterval,
		bridgeID:     cfg.BridgeID,
		logger:       logger,
		publisher:    publisher,
		counters:     cfg.Counters,
		journal:      cfg.Journal,
		exporter:     cfg.Exporter,
	}, nil
}

// LocalAddr reports the bound ingest address.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Run polls the socket until the stop channel closes. Each attempt waits at
// most one poll interval so stop is honored promptly.
func (r *Receiver) Run(stop <-chan struct{}) {
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(r.pollInterval)); err != nil {
			r.logger.Printf("ingest deadline error: %v", err)
			return
		}
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			r.logger.Printf("ingest receive error: %v", err)
			continue
		}
		if n == 0 {
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		r.process(payload)
	}
}

// Close releases the socket. Call after Run has returned.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

func (r *Receiver) process(payload []byte) {
	ctx := context.Background()
	r.counters.DatagramReceived()
	if err := r.journal.RecordInbound(payload); err != nil {
		r.logger.Printf("failed to journal inbound datagram: %v", err)
	}

	msg, err := proto.DecodeSimMessage(payload)
	if err != nil {
		r.counters.DatagramDropped()
		r.logger.Printf("discarding malformed datagram: %v", err)
		logingest.DatagramDropped(ctx, r.publisher, logingest.DropPayload{Bytes: len(payload), Reason: err.Error()})
		return
	}

	switch msg.Type {
	case proto.TypeInit:
		r.store.SetConnected(true)
		r.logger.Printf("simulation connected")
		logingest.SimConnected(ctx, r.publisher)
	case proto.TypeShutdown:
		r.store.SetConnected(false)
		r.logger.Printf("simulation disconnected")
		logingest.SimDisconnected(ctx, r.publisher)
	case proto.TypeStatus:
		update := msg.StatusUpdate()
		r.store.ApplyStatus(update)
		logingest.StatusApplied(ctx, r.publisher, update.MissionTime, logingest.StatusPayload{
			Sites:        len(update.Sites),
			WorldObjects: len(update.WorldObjects),
			Paused:       update.Paused,
		})
		r.export(update)
	case proto.TypeResponse:
		// Reserved for command correlation; accepted and ignored.
	default:
		// Unknown discriminators are swallowed for forward compatibility.
	}
}

func (r *Receiver) export(update state.StatusUpdate) {
	if r.exporter == nil {
		return
	}
	rows := export.RowsFromStatus(r.bridgeID, update.MissionTime, update.Sites, time.Now())
	if len(rows) == 0 {
		return
	}
	if err := r.exporter.WriteBatch(rows); err != nil {
		r.logger.Printf("site telemetry export failed: %v", err)
	}
}
