package stream

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pithecene-io/xray/types"
)

// maxDiagnosticLine caps how much of a rejected line is kept for logging.
const maxDiagnosticLine = 512

// DecodeErrorKind classifies line decoding failures.
type DecodeErrorKind int

const (
	// DecodeErrorSyntax indicates the line is not valid JSON.
	DecodeErrorSyntax DecodeErrorKind = iota
	// DecodeErrorShape indicates valid JSON that is not a known event.
	DecodeErrorShape
)

// String returns the metrics/log label for the kind.
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorSyntax:
		return "syntax"
	case DecodeErrorShape:
		return "shape"
	default:
		return "unknown"
	}
}

// DecodeError is returned for a line that yields no event.
// It is never fatal: the caller logs it and moves to the next line.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
	// Line is the raw line, truncated, kept for diagnostics only.
	Line string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

// AsDecodeError extracts a *DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return decErr, true
	}
	return nil, false
}

// DecodeLine decodes one NDJSON line into an event.
//
// Classification:
//   - "event":"start" -> StartEvent (count from "tasks_count", default 5)
//   - "event":"end"   -> EndEvent
//   - "task" present and "event" absent -> TaskEvent
//
// The event-kind field wins when both are present. Anything else,
// including invalid JSON, is a *DecodeError.
func DecodeLine(line string) (types.Event, error) {
	if !gjson.Valid(line) {
		return nil, newDecodeError(DecodeErrorSyntax, "invalid JSON", line)
	}

	root := gjson.Parse(line)
	if !root.IsObject() {
		return nil, newDecodeError(DecodeErrorShape, "line is not a JSON object", line)
	}

	if kind := field(root, types.FieldEvent); kind.Exists() {
		return decodeSentinel(kind, root, line)
	}

	task := field(root, types.FieldTask)
	if !task.Exists() {
		return nil, newDecodeError(DecodeErrorShape, "neither event nor task field present", line)
	}
	if task.Type != gjson.String || task.Str == "" {
		return nil, newDecodeError(DecodeErrorShape, "task id must be a non-empty string", line)
	}

	return decodeTask(task.Str, root), nil
}

func decodeSentinel(kind, root gjson.Result, line string) (types.Event, error) {
	if kind.Type != gjson.String {
		return nil, newDecodeError(DecodeErrorShape, "event field is not a string", line)
	}

	switch types.EventKind(kind.Str) {
	case types.EventKindStart:
		return types.StartEvent{ExpectedTaskCount: expectedCount(field(root, types.FieldTasksCount))}, nil
	case types.EventKindEnd:
		return types.EndEvent{}, nil
	default:
		return nil, newDecodeError(DecodeErrorShape, fmt.Sprintf("unknown event %q", kind.Str), line)
	}
}

func decodeTask(taskID string, root gjson.Result) types.TaskEvent {
	ev := types.TaskEvent{
		TaskID: taskID,
		Status: types.TaskStatus(field(root, types.FieldStatus).String()),
	}

	if data := field(root, types.FieldData); data.Exists() && data.Type != gjson.Null {
		ev.Payload = types.Payload(data.Raw)
	}

	if elapsed := field(root, types.FieldTimeTaken); elapsed.Type == gjson.Number && elapsed.Num >= 0 {
		v := elapsed.Num
		ev.ElapsedSeconds = &v
	}

	if msg := field(root, types.FieldError); msg.Type == gjson.String {
		ev.Error = msg.Str
	}

	return ev
}

// expectedCount reads tasks_count, falling back to the default when the
// value is absent, non-numeric or not positive.
func expectedCount(v gjson.Result) int {
	if v.Type != gjson.Number {
		return types.DefaultExpectedTaskCount
	}
	n := int(v.Num)
	if n <= 0 {
		return types.DefaultExpectedTaskCount
	}
	return n
}

// field returns the value of key in obj. A key repeated within the object
// resolves to its last occurrence, as most JSON object decoders keep it.
func field(obj gjson.Result, key string) gjson.Result {
	var last gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			last = v
		}
		return true
	})
	return last
}

func newDecodeError(kind DecodeErrorKind, msg, line string) *DecodeError {
	if len(line) > maxDiagnosticLine {
		line = line[:maxDiagnosticLine] + "..."
	}
	return &DecodeError{Kind: kind, Msg: msg, Line: line}
}
