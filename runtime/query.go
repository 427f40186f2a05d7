package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/xray/iox"
	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/store"
	"github.com/pithecene-io/xray/transport"
	"github.com/pithecene-io/xray/types"
)

// Opener opens the report stream for a company.
// transport.HTTPClient implements it.
type Opener interface {
	Open(ctx context.Context, company string) (transport.ChunkSource, error)
}

// OpenerFunc adapts a function into an Opener.
type OpenerFunc func(ctx context.Context, company string) (transport.ChunkSource, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, company string) (transport.ChunkSource, error) {
	return f(ctx, company)
}

// QueryConfig identifies one query and its collaborators.
type QueryConfig struct {
	QueryID   string
	Company   string
	Opener    Opener
	Logger    *log.Logger
	Collector *metrics.Collector
	// DefaultTaskCount is the expected task count before a start event.
	// Zero means types.DefaultExpectedTaskCount.
	DefaultTaskCount int
}

// QueryResult is the final state of one query.
type QueryResult struct {
	QueryID  string
	Company  string
	State    types.AggregateState
	Outcome  types.QueryOutcome
	Err      error
	Duration time.Duration
}

// RunQuery opens the stream, ingests it to the end and classifies the
// outcome. onUpdate sees every intermediate snapshot.
func RunQuery(ctx context.Context, cfg QueryConfig, onUpdate UpdateFunc) QueryResult {
	start := time.Now()
	logger := cfg.Logger.WithQuery(log.QueryMeta{QueryID: cfg.QueryID, Company: cfg.Company})
	cfg.Collector.IncQueryStarted()

	logger.Info("query started", nil)

	result := QueryResult{
		QueryID: cfg.QueryID,
		Company: cfg.Company,
		State:   store.NewWithDefault(cfg.DefaultTaskCount).Snapshot(),
	}

	src, err := cfg.Opener.Open(ctx, cfg.Company)
	if err != nil {
		if ctx.Err() != nil {
			err = &IngestionError{Kind: IngestionErrorCanceled, Err: ctx.Err()}
		} else {
			err = &IngestionError{Kind: IngestionErrorTransport, Err: fmt.Errorf("open stream: %w", err)}
		}
	} else {
		defer iox.DiscardClose(src)
		engine := NewIngestionEngine(src, logger, cfg.Collector)
		engine.SetDefaultTaskCount(cfg.DefaultTaskCount)
		err = engine.Run(ctx, onUpdate)
		result.State = engine.Snapshot()
	}

	result.Err = err
	result.Outcome = DetermineOutcome(err, result.State.EndReceived)
	result.Duration = time.Since(start)
	RecordOutcome(cfg.Collector, result.Outcome)

	fields := map[string]any{
		"outcome":     result.Outcome.Status,
		"records":     len(result.State.Records),
		"duration_ms": result.Duration.Milliseconds(),
	}
	switch result.Outcome.Status {
	case types.OutcomeCompleted, types.OutcomeCanceled:
		logger.Info("query ended", fields)
	case types.OutcomeTruncated:
		logger.Warn("query ended without end event", fields)
	default:
		fields["error"] = result.Outcome.Message
		logger.Error("query failed", fields)
	}

	return result
}

// RecordOutcome increments the collector counter for an outcome.
func RecordOutcome(c *metrics.Collector, outcome types.QueryOutcome) {
	switch outcome.Status {
	case types.OutcomeCompleted:
		c.IncQueryCompleted()
	case types.OutcomeTruncated:
		c.IncQueryTruncated()
	case types.OutcomeCanceled:
		c.IncQueryCanceled()
	default:
		c.IncQueryFailed()
	}
}
