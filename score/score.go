// Package score derives the composite score, breakdown and progress from a
// task store snapshot.
//
// Everything here is a pure function of (snapshot, weight table). Callers
// recompute from scratch on every update; there is no running sum to drift
// when records are overwritten.
package score

import (
	"unicode"
	"unicode/utf8"

	"github.com/pithecene-io/xray/types"
)

// Result is the output of Aggregate.
type Result struct {
	CompositeScore float64
	// Breakdown has one entry per weight table row, in table order.
	Breakdown []types.BreakdownEntry
}

// Aggregate computes the weighted composite score over the tasks in the
// weight table.
//
// A task contributes only when its record has status success, a payload,
// and a numeric rating. Non-contributing tasks are excluded from both the
// numerator and the denominator rather than counted as zero. The composite
// is 0 when nothing contributes. Ratings are not clamped.
func Aggregate(state types.AggregateState, weights types.WeightTable) Result {
	breakdown := make([]types.BreakdownEntry, 0, len(weights))
	var weightedSum float64
	var totalWeight int

	for _, w := range weights {
		entry := types.BreakdownEntry{
			TaskID: w.TaskID,
			Label:  Label(w.TaskID),
			Weight: w.Weight,
		}
		if v, ok := taskValue(state, w.TaskID); ok {
			entry.Value = &v
			weightedSum += v * float64(w.Weight)
			totalWeight += w.Weight
		}
		breakdown = append(breakdown, entry)
	}

	var composite float64
	if totalWeight > 0 {
		composite = weightedSum / float64(totalWeight)
	}
	return Result{CompositeScore: composite, Breakdown: breakdown}
}

// taskValue returns the usable rating for a task, if any.
func taskValue(state types.AggregateState, taskID string) (float64, bool) {
	rec, ok := state.Record(taskID)
	if !ok || rec.Status != types.TaskStatusSuccess || rec.Payload.IsAbsent() {
		return 0, false
	}
	return Rating(rec.Payload)
}

// Label returns the display label for a task id: the id with its first
// character upper-cased.
func Label(taskID string) string {
	r, size := utf8.DecodeRuneInString(taskID)
	if r == utf8.RuneError {
		return taskID
	}
	return string(unicode.ToUpper(r)) + taskID[size:]
}
