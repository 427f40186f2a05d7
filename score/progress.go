package score

import "github.com/pithecene-io/xray/types"

// Progress derives "completed of total signals" from a snapshot.
//
// Total is the expected task count. Completed counts records with a
// terminal status whose task id is in the weight table; auxiliary tasks
// outside the table never count.
func Progress(state types.AggregateState, weights types.WeightTable) types.Progress {
	completed := 0
	for _, rec := range state.Records {
		if rec.Status.IsTerminal() && weights.Contains(rec.TaskID) {
			completed++
		}
	}
	return types.Progress{
		Completed: completed,
		Total:     state.ExpectedTaskCount,
	}
}

// Report builds the presentation view of one snapshot. The outcome is left
// unset; callers attach it once the query has ended.
func Report(queryID, company string, state types.AggregateState, weights types.WeightTable) types.ScoreReport {
	res := Aggregate(state, weights)
	return types.ScoreReport{
		QueryID:        queryID,
		Company:        company,
		CompositeScore: res.CompositeScore,
		Progress:       Progress(state, weights),
		Breakdown:      res.Breakdown,
		Tasks:          state.Records,
		EndReceived:    state.EndReceived,
	}
}
