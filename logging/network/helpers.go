package network

import (
	"context"

	"samsim/server/logging"
)

const (
	// EventClientConnected is emitted when a subscriber registers.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a subscriber leaves or is pruned.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventCommandForwarded is emitted when a client command is sent on to the simulation.
	EventCommandForwarded logging.EventType = "network.command_forwarded"
	// EventForwardFailed is emitted when the command sink rejects a forward.
	EventForwardFailed logging.EventType = "network.forward_failed"
)

// DisconnectPayload records why a subscriber was removed.
type DisconnectPayload struct {
	Reason string `json:"reason"`
}

// CommandPayload records the forwarded command discriminator.
type CommandPayload struct {
	Command string `json:"command"`
}

func clientActor(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindClient}
}

// ClientConnected publishes a subscriber registration.
func ClientConnected(ctx context.Context, pub logging.Publisher, clientID string, subscribers int) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientConnected,
		Actor:    clientActor(clientID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
	}
	pub.Publish(ctx, event.WithExtra("subscribers", subscribers))
}

// ClientDisconnected publishes a subscriber removal.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, clientID string, payload DisconnectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientDisconnected,
		Actor:    clientActor(clientID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// CommandForwarded publishes a debug event for a forwarded command.
func CommandForwarded(ctx context.Context, pub logging.Publisher, clientID string, payload CommandPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandForwarded,
		Actor:    clientActor(clientID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ForwardFailed publishes a warning when forwarding to the simulation fails.
func ForwardFailed(ctx context.Context, pub logging.Publisher, clientID string, payload CommandPayload, err error) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventForwardFailed,
		Actor:    clientActor(clientID),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	}
	if err != nil {
		event = event.WithExtra("error", err.Error())
	}
	pub.Publish(ctx, event)
}
