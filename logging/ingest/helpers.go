package ingest

import (
	"context"

	"samsim/server/logging"
)

const (
	// EventSimConnected is emitted when the simulation announces itself.
	EventSimConnected logging.EventType = "ingest.sim_connected"
	// EventSimDisconnected is emitted when the simulation announces shutdown.
	EventSimDisconnected logging.EventType = "ingest.sim_disconnected"
	// EventStatusApplied is emitted when a status update reaches the store.
	EventStatusApplied logging.EventType = "ingest.status_applied"
	// EventDatagramDropped is emitted when an inbound datagram fails to decode.
	EventDatagramDropped logging.EventType = "ingest.datagram_dropped"
)

// StatusPayload summarises an applied status update.
type StatusPayload struct {
	Sites        int  `json:"sites"`
	WorldObjects int  `json:"worldObjects"`
	Paused       bool `json:"paused"`
}

// DropPayload captures why a datagram was discarded.
type DropPayload struct {
	Bytes  int    `json:"bytes"`
	Reason string `json:"reason"`
}

func simActor() logging.EntityRef {
	return logging.EntityRef{ID: "dcs", Kind: logging.EntityKindSimulation}
}

// SimConnected publishes the simulation connect transition.
func SimConnected(ctx context.Context, pub logging.Publisher) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSimConnected,
		Actor:    simActor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIngest,
	})
}

// SimDisconnected publishes the simulation shutdown transition.
func SimDisconnected(ctx context.Context, pub logging.Publisher) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSimDisconnected,
		Actor:    simActor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIngest,
	})
}

// StatusApplied publishes a debug event for an applied status update.
func StatusApplied(ctx context.Context, pub logging.Publisher, missionTime float64, payload StatusPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:        EventStatusApplied,
		MissionTime: missionTime,
		Actor:       simActor(),
		Severity:    logging.SeverityDebug,
		Category:    logging.CategoryIngest,
		Payload:     payload,
	})
}

// DatagramDropped publishes a warning for a discarded datagram.
func DatagramDropped(ctx context.Context, pub logging.Publisher, payload DropPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDatagramDropped,
		Actor:    simActor(),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryIngest,
		Payload:  payload,
	})
}
