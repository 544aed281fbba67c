package main

import (
	"github.com/spf13/cobra"

	"samsim/server/internal/tui"
)

var monitorURL string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch live mission state in the terminal",
	Long:  "monitor connects to a running bridge's websocket and renders site telemetry as a live table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(monitorURL)
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorURL, "url", "ws://127.0.0.1:8080/ws", "websocket endpoint of the running bridge")
}
