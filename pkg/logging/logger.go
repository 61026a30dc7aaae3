// Package logging wires up the hclog logger shared by every bpak
// component and command.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates a new hclog logger with standard settings.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat := os.Getenv("BPAK_JSON_LOG") == "1"

	if !jsonFormat {
		output = NewPrefixWriter("bpak: ", output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// GetLogLevel returns the configured log level from the environment,
// falling back to "warn" for production safety.
func GetLogLevel() string {
	level := os.Getenv("BPAK_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return level
}

// VerbosityFromEnv reads BPAK_VERBOSE, the environment-variable
// equivalent of the CLI's repeatable -v flag (spec.md §6), returning 0
// if it is unset or unparsable.
func VerbosityFromEnv() int {
	v := os.Getenv("BPAK_VERBOSE")
	if v == "" {
		return 0
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// LevelFromVerbosity maps the CLI's -v counting flag (0..4, per the
// bpak CLI surface) onto an hclog level name.
func LevelFromVerbosity(v int) string {
	switch {
	case v <= 0:
		return "warn"
	case v == 1:
		return "info"
	case v == 2:
		return "debug"
	default:
		return "trace"
	}
}
