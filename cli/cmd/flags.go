// Package cmd provides CLI commands for the xray binary.
package cmd

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/adapter/webhook"
	"github.com/pithecene-io/xray/transport"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables the Bubble Tea live view.
	// Only valid for score.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (score only)",
	}
)

// Shared logging and config flags.
var (
	// ConfigFlag points at an xray.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./xray.yaml when present)",
	}

	// VerboseFlag enables debug logs and the metrics summary.
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log at debug level and print a metrics summary to stderr",
	}

	// QuietFlag suppresses report output and progress.
	QuietFlag = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "Suppress report output; only the exit code reports the outcome",
	}

	// LogLevelFlag overrides the level chosen by --verbose / --quiet.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}

	// LogFileFlag redirects logs from stderr to a file.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Write logs to this file instead of stderr",
	}
)

// OutputFlags returns the shared flags for commands that render data.
// Includes --tui so that unsupported commands can provide explicit error
// messages instead of generic "flag not defined" errors.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// QueryFlags returns the flags shared by commands that ingest a stream.
func QueryFlags() []cli.Flag {
	return append(OutputFlags(),
		ConfigFlag,
		VerboseFlag,
		QuietFlag,
		LogLevelFlag,
		LogFileFlag,
		&cli.IntFlag{
			Name:  "tasks",
			Usage: "Expected task count until the backend announces one",
		},
	)
}

// BackendFlags returns the scoring backend flags.
func BackendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Scoring backend base URL",
			EnvVars: []string{"XRAY_BACKEND"},
		},
		&cli.StringSliceFlag{
			Name:  "header",
			Usage: "Backend request header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "connect-timeout",
			Usage: "Backend connect timeout",
			Value: transport.DefaultConnectTimeout,
		},
	}
}

// AdapterFlags returns the completion adapter flags.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook URL or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel (default: xray:query_completed)",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-publish timeout",
			Value: webhook.DefaultTimeout,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retry attempts",
			Value: webhook.DefaultRetries,
		},
		&cli.StringFlag{
			Name:  "adapter-latest-prefix",
			Usage: "Redis key prefix for storing each company's latest report (disabled when empty)",
		},
	}
}

// publishTimeout bounds the whole best-effort publish, retries included.
const publishTimeout = 30 * time.Second

// isStderrTTY returns true if stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
