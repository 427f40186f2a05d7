package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/cli/config"
	"github.com/pithecene-io/xray/cli/render"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/runtime"
	"github.com/pithecene-io/xray/transport"
)

// ReplayCommand returns the replay command.
// It scores a recorded NDJSON stream from a file or stdin, reading it in
// fixed-size chunks. Nothing is published.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Score a recorded report stream (file or - for stdin)",
		ArgsUsage: "<file|->",
		Flags: append(QueryFlags(),
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Read size in bytes; small values exercise chunk reassembly",
				Value: transport.DefaultChunkSize,
			},
			&cli.StringFlag{
				Name:  "company",
				Usage: "Company name shown in the report",
				Value: "replay",
			},
		),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for replay command", 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("replay requires exactly one file argument (use - for stdin)", 1)
	}
	if _, err := render.ParseFormat(c.String("format")); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Int("chunk-size") <= 0 {
		return cli.Exit("--chunk-size must be positive", 1)
	}

	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger, closeLog, err := newLogger(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeLog()

	for _, name := range cfg.MissingEnv {
		logger.Warn("config references unset environment variable", map[string]any{"var": name})
	}

	path := c.Args().First()
	chunkSize := c.Int("chunk-size")
	opener := runtime.OpenerFunc(func(_ context.Context, _ string) (transport.ChunkSource, error) {
		r, err := openReplayInput(path, c.App.Reader)
		if err != nil {
			return nil, err
		}
		return transport.NewReaderSource(r, chunkSize), nil
	})

	weights := cfg.WeightTable()
	collector := metrics.NewCollector("replay:"+path, "")

	report, result := executeQuery(c.Context, queryRun{
		company:          c.String("company"),
		opener:           opener,
		weights:          weights,
		defaultTaskCount: resolveInt(c, "tasks", cfg.ExpectedTaskCount()),
		logger:           logger,
		collector:        collector,
	})
	return finishQuery(c, report, result, weights, collector)
}

// openReplayInput opens path, or returns stdin for "-".
// Stdin is never closed by the source.
func openReplayInput(path string, stdin io.Reader) (io.Reader, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	return f, nil
}
