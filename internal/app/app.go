package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"time"

	"samsim/server/internal/config"
	"samsim/server/internal/dcs"
	"samsim/server/internal/export"
	"samsim/server/internal/hub"
	"samsim/server/internal/journal"
	servernet "samsim/server/internal/net"
	"samsim/server/internal/state"
	"samsim/server/internal/telemetry"
	"samsim/server/logging"
	loglifecycle "samsim/server/logging/lifecycle"
	logsinks "samsim/server/logging/sinks"
)

// Options carries the process-level knobs the CLI resolves before handing
// control to Run.
type Options struct {
	Config config.Config
	Logger telemetry.Logger
}

// Run wires the full bridge: ingest socket, command socket, state store,
// broadcast hub, and the HTTP surface. It blocks until ctx is cancelled or
// the HTTP listener fails.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config

	telemetryLogger := opts.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	router, err := buildRouter(cfg)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := &telemetry.Counters{}
	store := state.NewStore()

	var traffic *journal.Writer
	if cfg.Journal.Enabled {
		traffic = journal.NewWriter(cfg.Journal.Dir, "traffic")
		defer func() {
			if cerr := traffic.Close(); cerr != nil {
				telemetryLogger.Printf("failed to close traffic journal: %v", cerr)
			}
		}()
	}

	var exporter export.Writer
	if cfg.Greptime.Enabled {
		gw, err := export.NewGreptimeWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, cfg.Greptime.Table)
		if err != nil {
			telemetryLogger.Printf("telemetry export disabled: %v", err)
		} else {
			exporter = gw
		}
	}

	sender, err := dcs.NewSender(cfg.DCS.SendAddr(), dcs.SenderConfig{
		Logger:   telemetryLogger,
		Journal:  traffic,
		Counters: counters,
	})
	if err != nil {
		return fmt.Errorf("open command socket: %w", err)
	}
	defer sender.Close()

	receiver, err := dcs.NewReceiver(store, dcs.ReceiverConfig{
		Port:         cfg.DCS.RecvPort,
		PollInterval: cfg.DCS.PollInterval(),
		BridgeID:     cfg.BridgeID,
		Logger:       telemetryLogger,
		Publisher:    router,
		Counters:     counters,
		Journal:      traffic,
		Exporter:     exporter,
	})
	if err != nil {
		return err
	}
	defer receiver.Close()

	h := hub.NewHub(store, hub.Config{
		BroadcastInterval: cfg.BroadcastInterval(),
		Logger:            telemetryLogger,
		Publisher:         router,
		Counters:          counters,
	})

	stop := make(chan struct{})
	defer close(stop)
	go receiver.Run(stop)
	go h.RunBroadcast(stop)

	staticDir := cfg.HTTP.StaticDir
	if staticDir == "" {
		if resolved, rerr := servernet.ResolveStaticDir(); rerr == nil {
			staticDir = resolved
		} else {
			telemetryLogger.Printf("serving without static assets: %v", rerr)
		}
	}

	handler := servernet.NewHTTPHandler(h, store, sender, servernet.HTTPHandlerConfig{
		StaticDir:         staticDir,
		BroadcastInterval: cfg.BroadcastInterval(),
		Logger:            telemetryLogger,
		Publisher:         router,
		Counters:          counters,
	})

	srv := &nethttp.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	loglifecycle.ServerStarted(ctx, router, loglifecycle.StartPayload{
		HTTPAddr: cfg.HTTP.Addr,
		RecvPort: cfg.DCS.RecvPort,
		SendAddr: cfg.DCS.SendAddr(),
	})
	telemetryLogger.Printf("bridge listening on %s (ingest udp/%d, commands %s)", cfg.HTTP.Addr, cfg.DCS.RecvPort, cfg.DCS.SendAddr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		loglifecycle.ServerStopping(context.Background(), router)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			telemetryLogger.Printf("http shutdown: %v", serr)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

func buildRouter(cfg config.Config) (*logging.Router, error) {
	logCfg := logging.DefaultConfig()
	logCfg.MinimumSeverity = logging.ParseSeverity(cfg.Log.Severity)
	logCfg.Fields = map[string]any{"bridge": cfg.BridgeID}

	sinks := []logging.NamedSink{
		{Name: "console", Sink: logsinks.NewConsoleSink(os.Stdout, logCfg.Console)},
	}
	if cfg.Log.File != "" {
		jsonCfg := logCfg.JSON
		jsonCfg.FilePath = cfg.Log.File
		if cfg.Log.MaxSizeMB > 0 {
			jsonCfg.MaxSizeMB = cfg.Log.MaxSizeMB
		}
		if cfg.Log.MaxBackups > 0 {
			jsonCfg.MaxBackups = cfg.Log.MaxBackups
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: logsinks.NewJSONFile(jsonCfg)})
	}

	return logging.NewRouter(nil, logCfg, sinks)
}
