package dcs

import (
	"encoding/json"
	"fmt"
	"log"
	"net"

	"samsim/server/internal/journal"
	"samsim/server/internal/telemetry"
)

// Sender is the one-way command sink towards the simulation. Sends are
// fire-and-forget; no acknowledgment is awaited.
type Sender struct {
	conn     net.Conn
	logger   telemetry.Logger
	journal  *journal.Writer
	counters *telemetry.Counters
}

// SenderConfig wires the optional collaborators of a Sender.
type SenderConfig struct {
	Logger   telemetry.Logger
	Journal  *journal.Writer
	Counters *telemetry.Counters
}

// NewSender opens a datagram socket towards the simulation command address.
func NewSender(addr string, cfg SenderConfig) (*Sender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial simulation %s: %w", addr, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	return &Sender{conn: conn, logger: logger, journal: cfg.Journal, counters: cfg.Counters}, nil
}

// Send serialises one command and fires a single datagram. The error is
// surfaced to the caller only; nothing retries.
func (s *Sender) Send(command any) error {
	if s == nil || s.conn == nil {
		return fmt.Errorf("command sink not connected")
	}
	data, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	s.counters.CommandSent()
	if err := s.journal.RecordOutbound(data); err != nil {
		s.logger.Printf("failed to journal outbound command: %v", err)
	}
	return nil
}

// Close releases the socket.
func (s *Sender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
