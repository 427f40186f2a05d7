// Package store holds the per-query task state.
//
// The store is an insertion-ordered map from task id to the latest record.
// Updates are last-write-wins per task id: a later record replaces the
// earlier one whole, in its original position. Consumers only ever see
// deep-copied snapshots.
package store

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pithecene-io/xray/types"
)

// TaskStore accumulates task records for one query.
// It is owned by a single driver and is not safe for concurrent use.
type TaskStore struct {
	records       *orderedmap.OrderedMap[string, types.TaskRecord]
	expectedCount int
	defaultCount  int
	endReceived   bool
}

// New creates an empty store with the default expected task count.
func New() *TaskStore {
	return NewWithDefault(types.DefaultExpectedTaskCount)
}

// NewWithDefault creates an empty store whose expected task count is
// defaultCount until a start event says otherwise. A non-positive
// defaultCount means types.DefaultExpectedTaskCount.
func NewWithDefault(defaultCount int) *TaskStore {
	if defaultCount <= 0 {
		defaultCount = types.DefaultExpectedTaskCount
	}
	return &TaskStore{
		records:       orderedmap.New[string, types.TaskRecord](),
		expectedCount: defaultCount,
		defaultCount:  defaultCount,
	}
}

// Apply dispatches a decoded event to the matching Apply* method.
func (s *TaskStore) Apply(ev types.Event) {
	switch e := ev.(type) {
	case types.StartEvent:
		s.ApplyStart(e.ExpectedTaskCount)
	case types.EndEvent:
		s.ApplyEnd()
	case types.TaskEvent:
		s.ApplyTask(e.Record())
	}
}

// ApplyStart sets the expected task count. Later calls overwrite it.
// A non-positive count falls back to the store's default.
func (s *TaskStore) ApplyStart(count int) {
	if count <= 0 {
		count = s.defaultCount
	}
	s.expectedCount = count
}

// ApplyEnd marks the end sentinel as received.
// Task records applied afterwards are still accepted.
func (s *TaskStore) ApplyEnd() {
	s.endReceived = true
}

// ApplyTask inserts the record, or replaces the existing record for the
// same task id while keeping its first-seen position.
func (s *TaskStore) ApplyTask(rec types.TaskRecord) {
	s.records.Set(rec.TaskID, rec.Clone())
}

// Len returns the number of task ids seen.
func (s *TaskStore) Len() int {
	return s.records.Len()
}

// EndReceived reports whether the end sentinel has been applied.
func (s *TaskStore) EndReceived() bool {
	return s.endReceived
}

// Snapshot returns a deep copy of the current state.
func (s *TaskStore) Snapshot() types.AggregateState {
	records := make([]types.TaskRecord, 0, s.records.Len())
	for pair := s.records.Oldest(); pair != nil; pair = pair.Next() {
		records = append(records, pair.Value.Clone())
	}
	return types.AggregateState{
		Records:           records,
		ExpectedTaskCount: s.expectedCount,
		EndReceived:       s.endReceived,
	}
}

// Reset discards all state, returning the store to its initial condition.
func (s *TaskStore) Reset() {
	s.records = orderedmap.New[string, types.TaskRecord]()
	s.expectedCount = s.defaultCount
	s.endReceived = false
}
