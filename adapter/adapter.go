// Package adapter defines the completion-notification boundary.
//
// Adapters publish a summary of each finished query to a downstream system.
// Publishing is best-effort: a failed publish is reported to the caller but
// never changes the query's outcome.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/xray/types"
)

// EventTypeQueryCompleted is the event_type of every published event.
const EventTypeQueryCompleted = "query_completed"

// QueryCompletedEvent is the payload published when a query finishes.
type QueryCompletedEvent struct {
	ContractVersion string                 `json:"contract_version"`
	EventType       string                 `json:"event_type"` // always "query_completed"
	QueryID         string                 `json:"query_id"`
	Company         string                 `json:"company"`
	Outcome         string                 `json:"outcome"` // completed, truncated, etc.
	Message         string                 `json:"message,omitempty"`
	CompositeScore  float64                `json:"composite_score"`
	Completed       int                    `json:"completed"`
	Total           int                    `json:"total"`
	Breakdown       []types.BreakdownEntry `json:"breakdown"`
	Timestamp       string                 `json:"timestamp"` // RFC 3339
	DurationMs      int64                  `json:"duration_ms"`
}

// NewQueryCompletedEvent builds the event for a finished report.
func NewQueryCompletedEvent(report types.ScoreReport, duration time.Duration, at time.Time) *QueryCompletedEvent {
	ev := &QueryCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeQueryCompleted,
		QueryID:         report.QueryID,
		Company:         report.Company,
		CompositeScore:  report.CompositeScore,
		Completed:       report.Progress.Completed,
		Total:           report.Progress.Total,
		Breakdown:       report.Breakdown,
		Timestamp:       at.UTC().Format(time.RFC3339),
		DurationMs:      duration.Milliseconds(),
	}
	if report.Outcome != nil {
		ev.Outcome = string(report.Outcome.Status)
		ev.Message = report.Outcome.Message
	}
	return ev
}

// Adapter publishes query completion events to a downstream system.
type Adapter interface {
	// Publish sends a query completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *QueryCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the delay before retry attempt i (i >= 1):
// 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Sleep waits for the backoff of attempt i or until ctx is done.
func Sleep(ctx context.Context, i int) error {
	d := Backoff(i)
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
