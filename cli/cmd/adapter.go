package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/adapter"
	redisadapter "github.com/pithecene-io/xray/adapter/redis"
	"github.com/pithecene-io/xray/adapter/webhook"
	"github.com/pithecene-io/xray/cli/config"
	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/types"
)

// adapterChoice holds resolved adapter configuration.
type adapterChoice struct {
	adapterType  string
	url          string
	channel      string
	headers      map[string]string
	timeout      time.Duration
	retries      int
	latestPrefix string
}

// parseAdapterConfigWithPrecedence resolves adapter settings from flags
// and config for the given adapter type.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (adapterChoice, error) {
	switch adapterType {
	case config.AdapterWebhook, config.AdapterRedis:
	default:
		return adapterChoice{}, fmt.Errorf("unknown adapter type: %q (must be webhook or redis)", adapterType)
	}

	ac := adapterChoice{adapterType: adapterType}

	ac.url = resolveString(c, "adapter-url", configVal(cfg, func(cfg *config.Config) string { return cfg.Adapter.URL }))
	if ac.url == "" {
		return adapterChoice{}, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
	}

	ac.channel = resolveString(c, "adapter-channel", configVal(cfg, func(cfg *config.Config) string { return cfg.Adapter.Channel }))
	ac.latestPrefix = resolveString(c, "adapter-latest-prefix", configVal(cfg, func(cfg *config.Config) string { return cfg.Adapter.LatestPrefix }))
	ac.timeout = resolveDuration(c, "adapter-timeout", configVal(cfg, func(cfg *config.Config) time.Duration { return cfg.Adapter.Timeout.Duration }))

	// retries: 0 in config is meaningful, so nil and 0 are told apart.
	ac.retries = c.Int("adapter-retries")
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(cfg *config.Config) *int { return cfg.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}

	headers, err := resolveHeaders(c, "adapter-header", configVal(cfg, func(cfg *config.Config) map[string]string { return cfg.Adapter.Headers }))
	if err != nil {
		return adapterChoice{}, err
	}
	ac.headers = headers

	return ac, nil
}

// buildAdapter constructs the adapter for a resolved choice.
func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case config.AdapterWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case config.AdapterRedis:
		return redisadapter.New(redisadapter.Config{
			URL:          ac.url,
			Channel:      ac.channel,
			Timeout:      ac.timeout,
			Retries:      ac.retries,
			LatestPrefix: ac.latestPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %q", ac.adapterType)
	}
}

// publishCompletion sends the completion event. Failures are logged and
// counted; they never change the command's outcome.
func publishCompletion(
	ctx context.Context,
	adp adapter.Adapter,
	report types.ScoreReport,
	duration time.Duration,
	collector *metrics.Collector,
	logger *log.Logger,
) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	event := adapter.NewQueryCompletedEvent(report, duration, time.Now())
	if err := adp.Publish(ctx, event); err != nil {
		collector.IncPublishFailure()
		logger.Warn("completion publish failed", map[string]any{
			"query_id": report.QueryID,
			"error":    err.Error(),
		})
		return
	}
	collector.IncPublishSuccess()
	logger.Debug("completion published", map[string]any{"query_id": report.QueryID})
}
