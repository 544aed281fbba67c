package net

import (
	"context"
	"encoding/json"
	"io"
	"log"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"samsim/server/internal/hub"
	"samsim/server/internal/proto"
	"samsim/server/internal/state"
	"samsim/server/internal/telemetry"
	"samsim/server/logging"
	lognetwork "samsim/server/logging/network"
)

// CommandSender forwards client-issued commands to the simulation.
type CommandSender interface {
	Send(command any) error
}

// HTTPHandlerConfig wires the HTTP surface.
type HTTPHandlerConfig struct {
	StaticDir         string
	BroadcastInterval time.Duration
	Logger            telemetry.Logger
	Publisher         logging.Publisher
	Counters          *telemetry.Counters
}

// NewHTTPHandler builds the full request surface: health and diagnostics,
// the polling API, the websocket upgrade, and static assets.
func NewHTTPHandler(h *hub.Hub, store *state.Store, sender CommandSender, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status          string                     `json:"status"`
			ServerTime      int64                      `json:"serverTime"`
			DCSConnected    bool                       `json:"dcsConnected"`
			LastUpdate      int64                      `json:"lastUpdate"`
			Subscribers     int                        `json:"subscribers"`
			BroadcastMillis int64                      `json:"broadcastMillis"`
			Telemetry       telemetry.CountersSnapshot `json:"telemetry"`
		}{
			Status:          "ok",
			ServerTime:      time.Now().UnixMilli(),
			DCSConnected:    store.Summary().Connected,
			LastUpdate:      store.LastUpdate().UnixMilli(),
			Subscribers:     h.SubscriberCount(),
			BroadcastMillis: cfg.BroadcastInterval.Milliseconds(),
			Telemetry:       cfg.Counters.Snapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/api/status", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		data, err := json.Marshal(store.Summary())
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/api/command", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		respond := func(result commandResult) {
			data, err := json.Marshal(result)
			if err != nil {
				httpError(w, "failed to encode", nethttp.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			respond(commandResult{Success: false, Error: err.Error()})
			return
		}
		if !json.Valid(body) {
			respond(commandResult{Success: false, Error: "invalid JSON payload"})
			return
		}

		if err := sender.Send(json.RawMessage(body)); err != nil {
			logger.Printf("command forward failed: %v", err)
			lognetwork.ForwardFailed(r.Context(), publisher, "http", lognetwork.CommandPayload{Command: proto.CommandName(body)}, err)
			respond(commandResult{Success: false, Error: err.Error()})
			return
		}
		lognetwork.CommandForwarded(r.Context(), publisher, "http", lognetwork.CommandPayload{Command: proto.CommandName(body)})
		respond(commandResult{Success: true})
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("upgrade failed: %v", err)
			return
		}

		sub := h.Subscribe(conn)
		serveSubscriber(h, store, sender, sub, conn, logger, publisher)
	})

	if cfg.StaticDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.StaticDir))
		mux.Handle("/", fs)
	}

	return mux
}

type commandResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type wsReader interface {
	ReadMessage() (int, []byte, error)
}

// serveSubscriber runs one websocket session's read loop until the client
// goes away or a reply write fails.
func serveSubscriber(h *hub.Hub, store *state.Store, sender CommandSender, sub *hub.Subscriber, conn wsReader, logger telemetry.Logger, publisher logging.Publisher) {
	ctx := context.Background()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.Disconnect(sub.ID(), "read error")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			logger.Printf("discarding malformed message from %s: %v", sub.ID(), err)
			continue
		}

		switch msg.Type {
		case proto.TypeCommand:
			name := proto.CommandName(msg.Command)
			if err := sender.Send(msg.Command); err != nil {
				logger.Printf("command forward failed for %s: %v", sub.ID(), err)
				lognetwork.ForwardFailed(ctx, publisher, sub.ID(), lognetwork.CommandPayload{Command: name}, err)
				continue
			}
			lognetwork.CommandForwarded(ctx, publisher, sub.ID(), lognetwork.CommandPayload{Command: name})

			ack, err := proto.EncodeAck(name)
			if err != nil {
				logger.Printf("failed to marshal ack for %s: %v", sub.ID(), err)
				continue
			}
			if err := sub.Write(ack); err != nil {
				h.Disconnect(sub.ID(), "write error")
				return
			}
		case proto.TypeInitSite:
			if msg.SiteID == "" {
				continue
			}
			cmd := proto.NewInitSiteCommand(msg.SiteID, msg.GroupName)
			if err := sender.Send(cmd); err != nil {
				logger.Printf("init_site forward failed for %s: %v", sub.ID(), err)
				lognetwork.ForwardFailed(ctx, publisher, sub.ID(), lognetwork.CommandPayload{Command: cmd.Cmd}, err)
			}
			store.EnsureSite(msg.SiteID)
		case proto.TypeGetState:
			if err := h.SendState(sub); err != nil {
				logger.Printf("failed to send state to %s: %v", sub.ID(), err)
				h.Disconnect(sub.ID(), "write error")
				return
			}
		default:
			logger.Printf("unknown message type %q from %s", msg.Type, sub.ID())
		}
	}
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
