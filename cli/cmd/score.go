package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/adapter"
	"github.com/pithecene-io/xray/cli/config"
	"github.com/pithecene-io/xray/cli/render"
	"github.com/pithecene-io/xray/cli/tui"
	"github.com/pithecene-io/xray/iox"
	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/runtime"
	"github.com/pithecene-io/xray/transport"
)

// ScoreCommand returns the score command.
// It streams a company report from the backend and renders the weighted
// composite score.
func ScoreCommand() *cli.Command {
	flags := QueryFlags()
	flags = append(flags, BackendFlags()...)
	flags = append(flags, AdapterFlags()...)

	return &cli.Command{
		Name:      "score",
		Usage:     "Stream a company reputation report and print its weighted score",
		ArgsUsage: "<company>",
		Flags:     flags,
		Action:    scoreAction,
	}
}

// scoreSetup is everything resolved from flags and config before a query.
type scoreSetup struct {
	cfg       *config.Config
	client    *transport.HTTPClient
	tasks     int
	logger    *log.Logger
	collector *metrics.Collector
	adapter   adapter.Adapter
	cleanup   []func()
}

func (s *scoreSetup) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func scoreAction(c *cli.Context) error {
	company := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if company == "" && !c.Bool("tui") {
		return cli.Exit("score requires a company name", 1)
	}

	setup, err := newScoreSetup(c)
	if err != nil {
		return err
	}
	defer setup.close()

	weights := setup.cfg.WeightTable()

	if c.Bool("tui") {
		session := runtime.NewSession(setup.client, setup.logger, setup.collector,
			runtime.WithDefaultTaskCount(setup.tasks))
		defer session.Close()

		if _, err := tui.Run(c.Context, session, weights, setup.tasks, company); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	}

	var progress io.Writer
	if !c.Bool("quiet") && isStderrTTY() && c.String("log-file") == "" && !c.Bool("verbose") {
		progress = c.App.ErrWriter
	}

	report, result := executeQuery(c.Context, queryRun{
		company:          company,
		opener:           setup.client,
		weights:          weights,
		defaultTaskCount: setup.tasks,
		logger:           setup.logger,
		collector:        setup.collector,
		adapter:          setup.adapter,
		progress:         progress,
	})
	return finishQuery(c, report, result, weights, setup.collector)
}

// newScoreSetup resolves config, backend, logger and adapter.
// Config errors exit with code 1.
func newScoreSetup(c *cli.Context) (*scoreSetup, error) {
	if _, err := render.ParseFormat(c.String("format")); err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	cfg, err := config.LoadDefault(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	setup := &scoreSetup{cfg: cfg}

	logger, closeLog, err := newTUIAwareLogger(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	setup.logger = logger
	setup.cleanup = append(setup.cleanup, closeLog)

	for _, name := range cfg.MissingEnv {
		logger.Warn("config references unset environment variable", map[string]any{"var": name})
	}

	backendURL := resolveString(c, "backend", cfg.Backend.URL)
	if backendURL == "" {
		setup.close()
		return nil, cli.Exit("--backend is required (or set backend.url in config)", 1)
	}
	headers, err := resolveHeaders(c, "header", cfg.Backend.Headers)
	if err != nil {
		setup.close()
		return nil, cli.Exit(err.Error(), 1)
	}
	timeout := resolveDuration(c, "connect-timeout", cfg.Backend.ConnectTimeout.Duration)
	setup.client = transport.NewHTTPClient(backendURL, headers, timeout)
	// Fail on a malformed base URL before any query starts.
	if _, err := setup.client.URL(""); err != nil {
		setup.close()
		return nil, cli.Exit(fmt.Sprintf("invalid --backend: %v", err), 1)
	}

	setup.tasks = resolveInt(c, "tasks", cfg.ExpectedTaskCount())

	adapterType := resolveString(c, "adapter", cfg.Adapter.Type)
	if adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			setup.close()
			return nil, cli.Exit(err.Error(), 1)
		}
		adp, err := buildAdapter(ac)
		if err != nil {
			setup.close()
			return nil, cli.Exit(fmt.Sprintf("adapter: %v", err), 1)
		}
		setup.adapter = adp
		setup.cleanup = append(setup.cleanup, func() { iox.DiscardClose(adp) })
	}

	setup.collector = metrics.NewCollector(backendURL, adapterType)
	return setup, nil
}

// newTUIAwareLogger is newLogger, except that in TUI mode logs are
// discarded unless --log-file gives them somewhere to go.
func newTUIAwareLogger(c *cli.Context) (*log.Logger, func(), error) {
	if c.Bool("tui") && c.String("log-file") == "" {
		return log.Nop(), func() {}, nil
	}
	return newLogger(c)
}
