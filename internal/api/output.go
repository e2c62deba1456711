package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatText lets commands print a short human summary instead of
	// the full response.
	OutputFormatText OutputFormat = "text"
)

// DefaultOutput is the default output format.
const DefaultOutput = OutputFormatYAML

var globalOutputFormat atomic.Value

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatYAML, OutputFormatJSON, OutputFormatText:
		return f, nil
	case "":
		return DefaultOutput, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json or text)", s)
	}
}

// SetOutputFormat sets the global output format.
func SetOutputFormat(format OutputFormat) {
	globalOutputFormat.Store(format)
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	if f, ok := globalOutputFormat.Load().(OutputFormat); ok {
		return f
	}
	return DefaultOutput
}

// Output writes data to stdout in the configured format. In text mode
// summary is printed instead; a nil summary falls back to YAML.
func Output(data any, summary func(io.Writer)) error {
	return OutputTo(os.Stdout, GetOutputFormat(), data, summary)
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any, summary func(io.Writer)) error {
	switch format {
	case OutputFormatText:
		if summary != nil {
			summary(w)
			return nil
		}
		return OutputTo(w, OutputFormatYAML, data, nil)
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
