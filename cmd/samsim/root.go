package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "samsim",
	Short: "DCS SAM simulation bridge",
	Long:  "samsim bridges DCS World SAM telemetry to browser clients and forwards client commands back to the mission.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(monitorCmd)
}
