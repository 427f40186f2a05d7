package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"testing"
)

func TestTaskStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusSuccess, true},
		{TaskStatusError, true},
		{TaskStatusPending, false},
		{TaskStatus("running"), false},
		{TaskStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("TaskStatus(%q).IsTerminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestPayload_IsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    bool
	}{
		{"nil", nil, true},
		{"empty", Payload(""), true},
		{"null", Payload("null"), true},
		{"padded null", Payload("  null "), true},
		{"object", Payload(`{"rating":8}`), false},
		{"empty object", Payload(`{}`), false},
		{"number", Payload(`4`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.IsAbsent(); got != tt.want {
				t.Errorf("IsAbsent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskRecord_MarshalJSON(t *testing.T) {
	elapsed := 1.5
	rec := TaskRecord{
		TaskID:         "finance",
		Status:         TaskStatusSuccess,
		Payload:        Payload(`{"Rating":7.5,"pe":12}`),
		ElapsedSeconds: &elapsed,
	}

	got, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"task":"finance","status":"success","data":{"Rating":7.5,"pe":12},"time_taken":1.5}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}

	rec = TaskRecord{TaskID: "legal", Status: TaskStatusError, Error: "boom"}
	got, err = json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want = `{"task":"legal","status":"error","data":null,"error":"boom"}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestTaskRecord_CloneIsIndependent(t *testing.T) {
	elapsed := 2.0
	rec := TaskRecord{TaskID: "news", Payload: Payload(`{"rating":3}`), ElapsedSeconds: &elapsed}

	clone := rec.Clone()
	clone.Payload[2] = 'X'
	*clone.ElapsedSeconds = 9

	if string(rec.Payload) != `{"rating":3}` {
		t.Errorf("original payload mutated: %s", rec.Payload)
	}
	if *rec.ElapsedSeconds != 2.0 {
		t.Errorf("original elapsed mutated: %v", *rec.ElapsedSeconds)
	}
}

func TestAggregateState_StatusOf(t *testing.T) {
	s := AggregateState{
		Records: []TaskRecord{
			{TaskID: "finance", Status: TaskStatusSuccess},
			{TaskID: "legal", Status: TaskStatusError},
		},
	}

	if got := s.StatusOf("finance"); got != TaskStatusSuccess {
		t.Errorf("finance = %q, want success", got)
	}
	if got := s.StatusOf("legal"); got != TaskStatusError {
		t.Errorf("legal = %q, want error", got)
	}
	if got := s.StatusOf("news"); got != TaskStatusPending {
		t.Errorf("news = %q, want pending", got)
	}
}
