package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pithecene-io/xray/log"
	"github.com/pithecene-io/xray/metrics"
	"github.com/pithecene-io/xray/store"
	"github.com/pithecene-io/xray/stream"
	"github.com/pithecene-io/xray/transport"
	"github.com/pithecene-io/xray/types"
)

// IngestionError classifies ingestion errors for outcome determination.
type IngestionError struct {
	// Kind indicates whether the source failed or the query was abandoned.
	Kind IngestionErrorKind
	// Err is the underlying error.
	Err error
}

// IngestionErrorKind classifies ingestion errors.
type IngestionErrorKind int

const (
	// IngestionErrorTransport indicates the chunk source failed (transport_error outcome).
	IngestionErrorTransport IngestionErrorKind = iota
	// IngestionErrorCanceled indicates context cancellation (canceled outcome).
	IngestionErrorCanceled
)

func (e *IngestionError) Error() string {
	return e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if the error is a chunk source failure.
func IsTransportError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorTransport
	}
	return false
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorCanceled
	}
	return false
}

// UpdateFunc receives a fresh snapshot after every applied event.
type UpdateFunc func(types.AggregateState)

// IngestionEngine drives one query's stream into a task store.
//   - Chunks are split into lines regardless of where boundaries fall
//   - Blank lines are skipped
//   - Undecodable lines are logged and dropped; they never stop the stream
//   - Every decoded event is applied in arrival order
//   - A source error other than EOF is terminal; there is no retry
type IngestionEngine struct {
	source    transport.ChunkSource
	splitter  *stream.LineSplitter
	store     *store.TaskStore
	logger    *log.Logger
	collector *metrics.Collector

	linesSeen      int
	decodeFailures int
}

// NewIngestionEngine creates an engine with a fresh splitter and store.
// logger and collector may be nil.
func NewIngestionEngine(
	source transport.ChunkSource,
	logger *log.Logger,
	collector *metrics.Collector,
) *IngestionEngine {
	return &IngestionEngine{
		source:    source,
		splitter:  stream.NewLineSplitter(),
		store:     store.New(),
		logger:    logger,
		collector: collector,
	}
}

// SetDefaultTaskCount sets the expected task count used until a start
// event arrives. It must be called before Run.
func (e *IngestionEngine) SetDefaultTaskCount(n int) {
	e.store = store.NewWithDefault(n)
}

// Run runs the ingestion loop until EOF or a fatal error.
// onUpdate, if non-nil, is called on the engine's goroutine after each
// applied event.
// Returns:
//   - nil: stream ended (EOF), with or without the end event
//   - *IngestionError with Kind=IngestionErrorTransport: source failure
//   - *IngestionError with Kind=IngestionErrorCanceled: context canceled
func (e *IngestionEngine) Run(ctx context.Context, onUpdate UpdateFunc) error {
	for {
		select {
		case <-ctx.Done():
			return &IngestionError{
				Kind: IngestionErrorCanceled,
				Err:  ctx.Err(),
			}
		default:
		}

		chunk, err := e.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if tail, ok := e.splitter.Finish(); ok {
					e.processLine(tail, onUpdate)
				}
				e.logger.Debug("stream ended", map[string]any{
					"lines":           e.linesSeen,
					"decode_failures": e.decodeFailures,
					"end_received":    e.store.EndReceived(),
				})
				return nil
			}

			if ctx.Err() != nil {
				return &IngestionError{
					Kind: IngestionErrorCanceled,
					Err:  ctx.Err(),
				}
			}

			e.logger.Error("stream read failed", map[string]any{
				"error":          err.Error(),
				"lines":          e.linesSeen,
				"buffered_bytes": e.splitter.Buffered(),
				"end_received":   e.store.EndReceived(),
			})
			return &IngestionError{
				Kind: IngestionErrorTransport,
				Err:  fmt.Errorf("stream read failed: %w", err),
			}
		}

		e.collector.AddChunk(len(chunk))
		for _, line := range e.splitter.Feed(chunk) {
			e.processLine(line, onUpdate)
		}
	}
}

// processLine decodes a single line and applies the resulting event.
func (e *IngestionEngine) processLine(line string, onUpdate UpdateFunc) {
	e.linesSeen++
	if strings.TrimSpace(line) == "" {
		e.collector.IncLine(true)
		return
	}
	e.collector.IncLine(false)

	ev, err := stream.DecodeLine(line)
	if err != nil {
		e.decodeFailures++
		fields := map[string]any{"error": err.Error()}
		if decErr, ok := stream.AsDecodeError(err); ok {
			fields["kind"] = decErr.Kind.String()
			fields["line"] = decErr.Line
			e.collector.IncDecodeFailure(decErr.Kind.String())
		}
		e.logger.Warn("dropping undecodable line", fields)
		return
	}

	e.collector.IncEvent(string(ev.Kind()))
	switch ev := ev.(type) {
	case types.StartEvent:
		e.logger.Debug("start event received", map[string]any{
			"tasks_count": ev.ExpectedTaskCount,
		})
	case types.EndEvent:
		e.logger.Debug("end event received", nil)
	case types.TaskEvent:
		e.collector.IncTaskStatus(string(ev.Status))
		e.logger.Debug("task event received", map[string]any{
			"task":   ev.TaskID,
			"status": ev.Status,
		})
	}

	e.store.Apply(ev)
	if onUpdate != nil {
		onUpdate(e.store.Snapshot())
	}
}

// Snapshot returns the current store state.
// Only safe to call when Run is not executing.
func (e *IngestionEngine) Snapshot() types.AggregateState {
	return e.store.Snapshot()
}

// EndReceived returns true if the end event has been applied.
func (e *IngestionEngine) EndReceived() bool {
	return e.store.EndReceived()
}

// DecodeFailures returns the number of dropped lines.
func (e *IngestionEngine) DecodeFailures() int {
	return e.decodeFailures
}
