package types

import (
	"errors"
	"fmt"
)

// MaxTotalWeight is the upper bound on the sum of all weights (percent).
const MaxTotalWeight = 100

// Weight assigns a scoring weight to one task id.
type Weight struct {
	TaskID string `json:"task" yaml:"task"`
	Weight int    `json:"weight" yaml:"weight"`
}

// WeightTable is an ordered set of task weights.
// Order is the display order of the score breakdown.
type WeightTable []Weight

// DefaultWeights is the weight table used when no config overrides it.
var DefaultWeights = WeightTable{
	{TaskID: "finance", Weight: 35},
	{TaskID: "legal", Weight: 10},
	{TaskID: "news", Weight: 20},
	{TaskID: "reviews", Weight: 25},
	{TaskID: "ambitionbox", Weight: 10},
}

// Errors returned by WeightTable.Validate.
var (
	ErrEmptyWeightTable = errors.New("weight table is empty")
	ErrEmptyTaskID      = errors.New("weight entry has empty task id")
)

// WeightOf returns the weight for a task id, 0 if the id is not in the table.
func (t WeightTable) WeightOf(taskID string) int {
	for _, w := range t {
		if w.TaskID == taskID {
			return w.Weight
		}
	}
	return 0
}

// Contains returns true if the task id has an entry in the table.
func (t WeightTable) Contains(taskID string) bool {
	for _, w := range t {
		if w.TaskID == taskID {
			return true
		}
	}
	return false
}

// Total returns the sum of all weights.
func (t WeightTable) Total() int {
	total := 0
	for _, w := range t {
		total += w.Weight
	}
	return total
}

// Validate checks ids are unique and non-empty, weights are positive,
// and the total does not exceed MaxTotalWeight.
func (t WeightTable) Validate() error {
	if len(t) == 0 {
		return ErrEmptyWeightTable
	}
	seen := make(map[string]struct{}, len(t))
	for i, w := range t {
		if w.TaskID == "" {
			return fmt.Errorf("entry %d: %w", i, ErrEmptyTaskID)
		}
		if _, dup := seen[w.TaskID]; dup {
			return fmt.Errorf("duplicate weight for task %q", w.TaskID)
		}
		seen[w.TaskID] = struct{}{}
		if w.Weight <= 0 {
			return fmt.Errorf("weight for task %q must be > 0, got %d", w.TaskID, w.Weight)
		}
	}
	if total := t.Total(); total > MaxTotalWeight {
		return fmt.Errorf("weights sum to %d, must be <= %d", total, MaxTotalWeight)
	}
	return nil
}
