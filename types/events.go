package types

import (
	"bytes"
	"encoding/json"
)

// Wire field names of the backend's NDJSON stream.
const (
	FieldEvent      = "event"
	FieldTasksCount = "tasks_count"
	FieldTask       = "task"
	FieldStatus     = "status"
	FieldData       = "data"
	FieldTimeTaken  = "time_taken"
	FieldError      = "error"
)

// DefaultExpectedTaskCount is used when no start event arrives or the
// start event carries no usable count.
const DefaultExpectedTaskCount = 5

// EventKind discriminates decoded stream events.
type EventKind string

// Event kinds. Start and end are the literal values of the "event" field;
// task is implied by the presence of a "task" field.
const (
	EventKindStart EventKind = "start"
	EventKindEnd   EventKind = "end"
	EventKindTask  EventKind = "task"
)

// TaskStatus is the state of a single signal computation.
type TaskStatus string

// Task status constants. Pending is never sent by the backend; it is what
// consumers report for a task with no record yet.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// IsTerminal returns true if the task will not update further.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusError
}

// Event is one decoded line of the stream.
// Concrete types are StartEvent, EndEvent and TaskEvent.
type Event interface {
	Kind() EventKind
}

// StartEvent opens the stream and announces how many tasks to expect.
type StartEvent struct {
	ExpectedTaskCount int
}

// Kind implements Event.
func (StartEvent) Kind() EventKind { return EventKindStart }

// EndEvent is the closing sentinel. It carries no data.
type EndEvent struct{}

// Kind implements Event.
func (EndEvent) Kind() EventKind { return EventKindEnd }

// TaskEvent reports the result of one signal computation.
type TaskEvent struct {
	TaskID string
	// Status is taken verbatim from the wire.
	Status TaskStatus
	// Payload is the opaque "data" value. Absent when missing or null.
	Payload Payload
	// ElapsedSeconds is set only when "time_taken" is numeric.
	ElapsedSeconds *float64
	// Error is the backend's failure message for errored tasks.
	Error string
}

// Kind implements Event.
func (TaskEvent) Kind() EventKind { return EventKindTask }

// Record converts the event into the record the task store keeps.
func (e TaskEvent) Record() TaskRecord {
	return TaskRecord{
		TaskID:         e.TaskID,
		Status:         e.Status,
		Payload:        e.Payload.Clone(),
		ElapsedSeconds: cloneFloat(e.ElapsedSeconds),
		Error:          e.Error,
	}
}

// Payload is a raw JSON value taken verbatim from the wire.
// Document key order is preserved, which the rating lookup relies on.
type Payload []byte

var jsonNull = []byte("null")

// IsAbsent returns true for a missing or null payload.
func (p Payload) IsAbsent() bool {
	trimmed := bytes.TrimSpace(p)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

// Clone returns an independent copy of the payload bytes.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return bytes.Clone(p)
}

// MarshalJSON emits the raw value, or null when absent.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsAbsent() {
		return jsonNull, nil
	}
	return p, nil
}

// UnmarshalJSON stores the raw value.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = bytes.Clone(data)
	return nil
}

// MarshalYAML decodes the payload into generic values for YAML output.
func (p Payload) MarshalYAML() (any, error) {
	if p.IsAbsent() {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(p, &v); err != nil {
		return string(p), nil
	}
	return v, nil
}

// TaskRecord is the latest known state of one task.
type TaskRecord struct {
	TaskID         string     `json:"task" yaml:"task"`
	Status         TaskStatus `json:"status" yaml:"status"`
	Payload        Payload    `json:"data" yaml:"data"`
	ElapsedSeconds *float64   `json:"time_taken,omitempty" yaml:"time_taken,omitempty"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Clone returns a deep copy of the record.
func (r TaskRecord) Clone() TaskRecord {
	r.Payload = r.Payload.Clone()
	r.ElapsedSeconds = cloneFloat(r.ElapsedSeconds)
	return r
}

// AggregateState is a read-only snapshot of the task store.
type AggregateState struct {
	// Records holds one record per task id in first-seen order.
	Records []TaskRecord
	// ExpectedTaskCount comes from the start event, or the default.
	ExpectedTaskCount int
	// EndReceived is set once the end sentinel has been applied.
	EndReceived bool
}

// Record looks up the record for a task id.
func (s AggregateState) Record(taskID string) (TaskRecord, bool) {
	for _, r := range s.Records {
		if r.TaskID == taskID {
			return r, true
		}
	}
	return TaskRecord{}, false
}

// StatusOf returns the status for a task id, pending if no record exists.
func (s AggregateState) StatusOf(taskID string) TaskStatus {
	if r, ok := s.Record(taskID); ok {
		return r.Status
	}
	return TaskStatusPending
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
