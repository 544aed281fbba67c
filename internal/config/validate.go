package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// ValidateWithCUE checks a YAML config document against the embedded CUE
// schema before it is unmarshalled.
func ValidateWithCUE(path string, data []byte) error {
	ctx := cuecontext.New()

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("build config %s: %w", path, err)
	}

	schemaVal := ctx.CompileString(schemaSource)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	final := schemaVal.Unify(configVal)
	if err := final.Err(); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}
	return nil
}
