package telemetry

import (
	"log"
	"sync/atomic"
)

// Logger exposes the logging capabilities required by transport components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Counters tracks bridge activity for the diagnostics endpoint. All methods
// are safe for concurrent use and safe on a nil receiver.
type Counters struct {
	datagramsReceived atomic.Uint64
	datagramsDropped  atomic.Uint64
	commandsSent      atomic.Uint64
	broadcasts        atomic.Uint64
	sendFailures      atomic.Uint64
	subscribers       atomic.Int64
}

// CountersSnapshot is the serialisable view of the counters.
type CountersSnapshot struct {
	DatagramsReceived uint64 `json:"datagramsReceived"`
	DatagramsDropped  uint64 `json:"datagramsDropped"`
	CommandsSent      uint64 `json:"commandsSent"`
	Broadcasts        uint64 `json:"broadcasts"`
	SendFailures      uint64 `json:"sendFailures"`
	Subscribers       int64  `json:"subscribers"`
}

func (c *Counters) DatagramReceived() {
	if c != nil {
		c.datagramsReceived.Add(1)
	}
}

func (c *Counters) DatagramDropped() {
	if c != nil {
		c.datagramsDropped.Add(1)
	}
}

func (c *Counters) CommandSent() {
	if c != nil {
		c.commandsSent.Add(1)
	}
}

func (c *Counters) Broadcast() {
	if c != nil {
		c.broadcasts.Add(1)
	}
}

func (c *Counters) SendFailure() {
	if c != nil {
		c.sendFailures.Add(1)
	}
}

func (c *Counters) SubscriberDelta(delta int64) {
	if c != nil {
		c.subscribers.Add(delta)
	}
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() CountersSnapshot {
	if c == nil {
		return CountersSnapshot{}
	}
	return CountersSnapshot{
		DatagramsReceived: c.datagramsReceived.Load(),
		DatagramsDropped:  c.datagramsDropped.Load(),
		CommandsSent:      c.commandsSent.Load(),
		Broadcasts:        c.broadcasts.Load(),
		SendFailures:      c.sendFailures.Load(),
		Subscribers:       c.subscribers.Load(),
	}
}
