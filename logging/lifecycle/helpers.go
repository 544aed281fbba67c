package lifecycle

import (
	"context"

	"samsim/server/logging"
)

const (
	// EventServerStarted is emitted once all loops are running.
	EventServerStarted logging.EventType = "lifecycle.server_started"
	// EventServerStopping is emitted when shutdown begins.
	EventServerStopping logging.EventType = "lifecycle.server_stopping"
)

// StartPayload records the listen surface announced at startup.
type StartPayload struct {
	HTTPAddr string `json:"httpAddr"`
	RecvPort int    `json:"recvPort"`
	SendAddr string `json:"sendAddr"`
}

func serverActor() logging.EntityRef {
	return logging.EntityRef{ID: "samsim", Kind: logging.EntityKindServer}
}

// ServerStarted publishes the startup event.
func ServerStarted(ctx context.Context, pub logging.Publisher, payload StartPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventServerStarted,
		Actor:    serverActor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// ServerStopping publishes the shutdown event.
func ServerStopping(ctx context.Context, pub logging.Publisher) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventServerStopping,
		Actor:    serverActor(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}
