package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates the --output flag
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch format {
	case "", "yaml":
		return OutputFormatYAML, nil
	case "json":
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
