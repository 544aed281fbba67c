package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"samsim/server/internal/proto"
)

var schemaOutDir string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Write the wire protocol JSON schemas",
	Long:  "schema reflects the bridge's message types into JSON schema documents for validation and editor tooling.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for name, schema := range proto.WireSchemas() {
			outPath := filepath.Join(schemaOutDir, name+".schema.json")
			if err := writeSchema(outPath, schema); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
		}
		return nil
	},
}

func writeSchema(outPath string, schema any) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOutDir, "out", "schemas", "directory to write schema documents")
}
