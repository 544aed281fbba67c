package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"samsim/server/internal/journal"
)

var (
	replayInput string
	replayAddr  string
	replaySpeed float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a traffic journal against a running bridge",
	Long:  "replay resends recorded simulation datagrams to the bridge's ingest port, preserving inter-arrival timing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		sent, err := journal.Replay(replayInput, replayAddr, replaySpeed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d datagrams to %s\n", sent, replayAddr)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a traffic journal file (.jsonl.zst)")
	replayCmd.Flags().StringVar(&replayAddr, "addr", "127.0.0.1:7777", "UDP ingest address of the running bridge")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 disables pacing)")
	replayCmd.MarkFlagRequired("input")
}
