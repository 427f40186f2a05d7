package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/xray/adapter"
	"github.com/pithecene-io/xray/cli/render"
	"github.com/pithecene-io/xray/iox"
	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/runtime"
	"github.com/pithecene-io/xray/score"
	"github.com/pithecene-io/xray/types"
)

// newLogger builds the CLI logger. Level is warn by default, debug with
// --verbose, error with --quiet; --log-level overrides all three.
// The returned func flushes and releases the log output.
func newLogger(c *cli.Context) (*log.Logger, func(), error) {
	level := zapcore.WarnLevel
	switch {
	case c.Bool("verbose"):
		level = zapcore.DebugLevel
	case c.Bool("quiet"):
		level = zapcore.ErrorLevel
	}
	if name := c.String("log-level"); name != "" {
		parsed, err := log.ParseLevel(name)
		if err != nil {
			return nil, nil, err
		}
		level = parsed
	}

	opts := []log.Option{log.WithLevel(level)}
	closeOutput := func() {}
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		opts = append(opts, log.WithWriter(f))
		closeOutput = iox.CloseFunc(f)
	}

	logger := log.NewLogger(opts...)
	return logger, func() {
		iox.DiscardErr(logger.Sync)
		closeOutput()
	}, nil
}

// queryRun describes one non-interactive query.
type queryRun struct {
	company          string
	opener           runtime.Opener
	weights          types.WeightTable
	defaultTaskCount int
	logger           *log.Logger
	collector        *metrics.Collector
	adapter          adapter.Adapter
	// progress, when set, receives a line per update.
	progress io.Writer
}

// executeQuery runs the query under an oklog/run group with a signal
// actor, so SIGINT/SIGTERM cancel the stream. It returns the report with
// its outcome attached.
func executeQuery(ctx context.Context, q queryRun) (types.ScoreReport, runtime.QueryResult) {
	queryID := uuid.NewString()
	var result runtime.QueryResult

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				q.logger.Debug("termination signal received", nil)
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Query.
	{
		queryCtx, queryCancel := context.WithCancel(ctx)
		defer queryCancel()

		g.Add(
			func() error {
				result = runtime.RunQuery(queryCtx, runtime.QueryConfig{
					QueryID:          queryID,
					Company:          q.company,
					Opener:           q.opener,
					Logger:           q.logger,
					Collector:        q.collector,
					DefaultTaskCount: q.defaultTaskCount,
				}, progressPrinter(q.progress, q.weights))
				return nil
			},
			func(_ error) {
				queryCancel()
			},
		)
	}

	_ = g.Run()

	if q.progress != nil {
		fmt.Fprintln(q.progress)
	}

	report := score.Report(result.QueryID, result.Company, result.State, q.weights)
	outcome := result.Outcome
	report.Outcome = &outcome

	if q.adapter != nil {
		// The query context may already be canceled; publishing still runs.
		publishCompletion(context.WithoutCancel(ctx), q.adapter, report, result.Duration, q.collector, q.logger)
	}

	return report, result
}

// progressPrinter rewrites a single status line on w.
func progressPrinter(w io.Writer, weights types.WeightTable) runtime.UpdateFunc {
	if w == nil {
		return nil
	}
	return func(state types.AggregateState) {
		p := score.Progress(state, weights)
		fmt.Fprintf(w, "\r%d of %d signals", p.Completed, p.Total)
	}
}

// finishQuery renders the report and maps the outcome to an exit code.
func finishQuery(c *cli.Context, report types.ScoreReport, result runtime.QueryResult, weights types.WeightTable, collector *metrics.Collector) error {
	if !c.Bool("quiet") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		if err := r.RenderReport(report, weights, result.Duration); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}

	if c.Bool("verbose") {
		printMetrics(c.App.ErrWriter, collector.Snapshot())
	}

	code := runtime.ExitCode(result.Outcome.Status)
	if code == runtime.ExitCodeCompleted {
		return nil
	}
	msg := result.Outcome.Message
	if result.Outcome.Status == types.OutcomeCanceled {
		msg = ""
	}
	return cli.Exit(msg, code)
}

// printMetrics writes a short counter summary.
func printMetrics(w io.Writer, s metrics.Snapshot) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "metrics: chunks=%d bytes=%d lines=%d blank=%d decode_failures=%d\n",
		s.ChunksReceived, s.BytesReceived, s.LinesReceived, s.BlankLines, s.DecodeFailures)
	fmt.Fprintf(w, "metrics: events=%s tasks=%s\n", formatCounts(s.EventsByKind), formatCounts(s.TasksByStatus))
	if s.Adapter != "" {
		fmt.Fprintf(w, "metrics: publish ok=%d failed=%d (%s)\n", s.PublishSuccess, s.PublishFailure, s.Adapter)
	}
}

func formatCounts(m map[string]int64) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
