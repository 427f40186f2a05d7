// Package redis implements a Redis pub/sub completion adapter.
//
// Publishes query completion events as JSON to a configurable channel.
// When a latest-key prefix is configured, the same payload is also stored
// under <prefix><company> so late consumers can read the last score
// without having been subscribed. Retries with exponential backoff on
// connection errors.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/xray/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "xray:query_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultLatestTTL is how long a stored latest report lives.
const DefaultLatestTTL = 24 * time.Hour

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: xray:query_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// LatestPrefix enables the per-company latest key when non-empty.
	LatestPrefix string
	// LatestTTL is the latest key's expiry (default 24h).
	LatestTTL time.Duration
}

// Adapter publishes query completion events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.LatestTTL <= 0 {
		cfg.LatestTTL = DefaultLatestTTL
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channel returns the channel events are published to.
func (a *Adapter) Channel() string {
	return a.config.Channel
}

// LatestKey returns the key holding the last report for company, or ""
// when latest keys are disabled.
func (a *Adapter) LatestKey(company string) string {
	if a.config.LatestPrefix == "" {
		return ""
	}
	return a.config.LatestPrefix + strings.ToLower(strings.TrimSpace(company))
}

// Publish sends the event as a JSON PUBLISH to the configured channel,
// pipelined with the latest-key SET when enabled.
// Retries with exponential backoff on failures.
func (a *Adapter) Publish(ctx context.Context, event *adapter.QueryCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	var lastErr error
	attempts := 1 + a.config.Retries

	for i := range attempts {
		if err := adapter.Sleep(ctx, i); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		lastErr = a.send(publishCtx, event.Company, body)
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

func (a *Adapter) send(ctx context.Context, company string, body []byte) error {
	key := a.LatestKey(company)
	if key == "" {
		return a.client.Publish(ctx, a.config.Channel, body).Err()
	}
	_, err := a.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, key, body, a.config.LatestTTL)
		p.Publish(ctx, a.config.Channel, body)
		return nil
	})
	return err
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
