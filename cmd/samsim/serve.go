package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"samsim/server/internal/app"
	"samsim/server/internal/config"
	"samsim/server/internal/telemetry"
)

var (
	serveConfigPath string
	serveHTTPAddr   string
	serveLogFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge server",
	Long:  "serve listens for DCS telemetry datagrams and publishes mission state to browser clients over websocket and HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err == nil {
			log.Println("loaded environment from .env")
		}

		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return err
		}
		if serveHTTPAddr != "" {
			cfg.HTTP.Addr = serveHTTPAddr
		}
		if serveLogFile != "" {
			cfg.Log.File = serveLogFile
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return app.Run(ctx, app.Options{
			Config: cfg,
			Logger: telemetry.WrapLogger(log.Default()),
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to YAML configuration (defaults apply when omitted)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "addr", "", "override the HTTP listen address")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "write structured JSON logs to this file")
}
