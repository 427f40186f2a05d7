package types

// BreakdownEntry is one row of the score breakdown, produced for every
// weight table entry whether or not data has arrived.
type BreakdownEntry struct {
	TaskID string `json:"task" yaml:"task"`
	Label  string `json:"label" yaml:"label"`
	// Value is nil when the task has no usable numeric rating.
	Value  *float64 `json:"value" yaml:"value"`
	Weight int      `json:"weight" yaml:"weight"`
}

// Progress is "Completed of Total signals".
type Progress struct {
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
}

// Fraction returns Completed/Total clamped to [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Completed) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// QueryOutcomeStatus is the final status of a query.
type QueryOutcomeStatus string

// Outcome statuses.
const (
	// OutcomeCompleted means the stream ended after the end sentinel.
	OutcomeCompleted QueryOutcomeStatus = "completed"
	// OutcomeTruncated means the stream ended without the end sentinel.
	OutcomeTruncated QueryOutcomeStatus = "truncated"
	// OutcomeTransportError means the connection failed or was rejected.
	OutcomeTransportError QueryOutcomeStatus = "transport_error"
	// OutcomeCanceled means the query was abandoned.
	OutcomeCanceled QueryOutcomeStatus = "canceled"
)

// QueryOutcome describes how a query ended.
type QueryOutcome struct {
	Status  QueryOutcomeStatus `json:"status" yaml:"status"`
	Message string             `json:"message" yaml:"message"`
}

// ScoreReport is the presentation view of one snapshot.
type ScoreReport struct {
	QueryID        string           `json:"query_id" yaml:"query_id"`
	Company        string           `json:"company" yaml:"company"`
	CompositeScore float64          `json:"composite_score" yaml:"composite_score"`
	Progress       Progress         `json:"progress" yaml:"progress"`
	Breakdown      []BreakdownEntry `json:"breakdown" yaml:"breakdown"`
	Tasks          []TaskRecord     `json:"tasks" yaml:"tasks"`
	EndReceived    bool             `json:"end_received" yaml:"end_received"`
	Outcome        *QueryOutcome    `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}
