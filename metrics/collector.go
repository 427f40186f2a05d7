// Package metrics provides per-process counters for stream ingestion.
//
// The Collector accumulates counters across the queries of one CLI process.
// It is a leaf package with no internal dependencies: event kinds, task
// statuses and decode failure kinds are recorded as plain strings.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Query lifecycle
	QueriesStarted   int64
	QueriesCompleted int64
	QueriesTruncated int64
	QueriesFailed    int64
	QueriesCanceled  int64

	// Transport
	ChunksReceived int64
	BytesReceived  int64

	// Line splitting and decoding
	LinesReceived  int64
	BlankLines     int64
	DecodeFailures int64
	FailuresByKind map[string]int64
	EventsByKind   map[string]int64
	TasksByStatus  map[string]int64

	// Completion adapter
	PublishSuccess int64
	PublishFailure int64

	// Dimensions (informational, set at construction)
	Backend string
	Adapter string
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	queriesStarted   int64
	queriesCompleted int64
	queriesTruncated int64
	queriesFailed    int64
	queriesCanceled  int64

	chunksReceived int64
	bytesReceived  int64

	linesReceived  int64
	blankLines     int64
	decodeFailures int64
	failuresByKind map[string]int64
	eventsByKind   map[string]int64
	tasksByStatus  map[string]int64

	publishSuccess int64
	publishFailure int64

	backend string
	adapter string
}

// NewCollector creates a Collector with dimension labels.
// backend names the chunk source: the backend base URL for live queries,
// "replay:<path>" for recorded streams. adapter is the completion adapter
// type, empty when none is configured.
func NewCollector(backend, adapter string) *Collector {
	return &Collector{
		failuresByKind: make(map[string]int64),
		eventsByKind:   make(map[string]int64),
		tasksByStatus:  make(map[string]int64),
		backend:        backend,
		adapter:        adapter,
	}
}

// --- Query lifecycle ---

// IncQueryStarted records a query start.
func (c *Collector) IncQueryStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesStarted++
	c.mu.Unlock()
}

// IncQueryCompleted records a query whose stream ended after the end event.
func (c *Collector) IncQueryCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesCompleted++
	c.mu.Unlock()
}

// IncQueryTruncated records a query whose stream ended without the end event.
func (c *Collector) IncQueryTruncated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesTruncated++
	c.mu.Unlock()
}

// IncQueryFailed records a transport failure.
func (c *Collector) IncQueryFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesFailed++
	c.mu.Unlock()
}

// IncQueryCanceled records an abandoned query.
func (c *Collector) IncQueryCanceled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.queriesCanceled++
	c.mu.Unlock()
}

// --- Transport ---

// AddChunk records one received chunk of n bytes.
func (c *Collector) AddChunk(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksReceived++
	c.bytesReceived += int64(n)
	c.mu.Unlock()
}

// --- Lines ---

// IncLine records a complete line, blank or not.
func (c *Collector) IncLine(blank bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.linesReceived++
	if blank {
		c.blankLines++
	}
	c.mu.Unlock()
}

// IncDecodeFailure records a line that yielded no event.
func (c *Collector) IncDecodeFailure(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeFailures++
	c.failuresByKind[kind]++
	c.mu.Unlock()
}

// IncEvent records a decoded event.
func (c *Collector) IncEvent(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsByKind[kind]++
	c.mu.Unlock()
}

// IncTaskStatus records the status carried by a task event.
func (c *Collector) IncTaskStatus(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksByStatus[status]++
	c.mu.Unlock()
}

// --- Adapter ---

// IncPublishSuccess records a delivered completion event.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a completion event that was not delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{
			FailuresByKind: map[string]int64{},
			EventsByKind:   map[string]int64{},
			TasksByStatus:  map[string]int64{},
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		QueriesStarted:   c.queriesStarted,
		QueriesCompleted: c.queriesCompleted,
		QueriesTruncated: c.queriesTruncated,
		QueriesFailed:    c.queriesFailed,
		QueriesCanceled:  c.queriesCanceled,

		ChunksReceived: c.chunksReceived,
		BytesReceived:  c.bytesReceived,

		LinesReceived:  c.linesReceived,
		BlankLines:     c.blankLines,
		DecodeFailures: c.decodeFailures,
		FailuresByKind: maps.Clone(c.failuresByKind),
		EventsByKind:   maps.Clone(c.eventsByKind),
		TasksByStatus:  maps.Clone(c.tasksByStatus),

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Backend: c.backend,
		Adapter: c.adapter,
	}
}
