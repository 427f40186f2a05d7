package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/xray/types"
)

func ptr(f float64) *float64 { return &f }

func sampleReport() types.ScoreReport {
	return types.ScoreReport{
		QueryID:        "q-1",
		Company:        "Acme",
		CompositeScore: 8,
		Progress:       types.Progress{Completed: 2, Total: 5},
		Breakdown: []types.BreakdownEntry{
			{TaskID: "finance", Label: "Finance", Value: ptr(8), Weight: 35},
			{TaskID: "legal", Label: "Legal", Weight: 10},
		},
		Tasks: []types.TaskRecord{
			{TaskID: "finance", Status: types.TaskStatusSuccess, Payload: types.Payload(`{"rating":8}`), ElapsedSeconds: ptr(1.234)},
			{TaskID: "legal", Status: types.TaskStatusError, Error: "rate limited"},
			{TaskID: "extra", Status: types.TaskStatusPending},
		},
		Outcome: &types.QueryOutcome{Status: types.OutcomeCompleted, Message: "report completed"},
	}
}

func TestRenderReport_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	if err := r.RenderReport(sampleReport(), types.DefaultWeights, 1500*time.Millisecond); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"company:", "Acme",
		"score:", "8.00",
		"2 of 5 signals",
		"outcome:", "completed",
		"elapsed:", "1.5s",
		"SIGNAL", "Finance", "35%", "Legal",
		"TASK", "1.23s", "rating 8.00",
		"rate limited",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("--no-color output contains escape sequences:\n%s", got)
	}
}

func TestRenderReport_TableWeightZeroForUnknownTask(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	if err := r.RenderReport(sampleReport(), types.DefaultWeights, 0); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	for _, line := range strings.Split(buf.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "extra" {
			if fields[2] != "0%" {
				t.Errorf("extra task weight = %q, want 0%%", fields[2])
			}
			return
		}
	}
	t.Errorf("no row for extra task:\n%s", buf.String())
}

func TestRenderReport_LegalBreakdownShowsDash(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	if err := r.RenderReport(sampleReport(), types.DefaultWeights, 0); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "Legal" {
			if fields[2] != "-" {
				t.Errorf("Legal value = %q, want -", fields[2])
			}
			return
		}
	}
	t.Errorf("no breakdown row for Legal:\n%s", buf.String())
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	if err := r.RenderReport(sampleReport(), types.DefaultWeights, time.Second); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["company"] != "Acme" || got["composite_score"] != 8.0 {
		t.Errorf("unexpected report fields: %v", got)
	}
	breakdown, _ := got["breakdown"].([]any)
	if len(breakdown) != 2 {
		t.Fatalf("breakdown = %v", got["breakdown"])
	}
	if legal := breakdown[1].(map[string]any); legal["value"] != nil {
		t.Errorf("legal value = %v, want null", legal["value"])
	}
	tasks, _ := got["tasks"].([]any)
	finance := tasks[0].(map[string]any)
	if diff := cmp.Diff(map[string]any{"rating": 8.0}, finance["data"]); diff != "" {
		t.Errorf("payload should be embedded verbatim (-want +got):\n%s", diff)
	}
}

func TestHighlights(t *testing.T) {
	tests := []struct {
		name string
		rec  types.TaskRecord
		want []string
	}{
		{
			name: "news articles",
			rec:  success(`{"rating":4,"articles":[{"title":"a"},{"title":"b"},{"title":"c"}]}`),
			want: []string{"3 articles"},
		},
		{
			name: "single review",
			rec:  success(`{"Title":"Acme","Reviews":["good"]}`),
			want: []string{"1 review"},
		},
		{
			name: "employer reviews and url",
			rec:  success(`{"rating":3.9,"review count":"1.2k","url":"https://example.com/acme"}`),
			want: []string{"1.2k employer reviews", "https://example.com/acme"},
		},
		{
			name: "non-string url skipped",
			rec:  success(`{"url":42}`),
		},
		{
			name: "array payload",
			rec:  success(`[1,2]`),
		},
		{
			name: "pending task",
			rec:  types.TaskRecord{TaskID: "news", Status: types.TaskStatusPending, Payload: types.Payload(`{"articles":[]}`)},
		},
		{
			name: "absent payload",
			rec:  types.TaskRecord{TaskID: "news", Status: types.TaskStatusSuccess},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Highlights(tt.rec)); diff != "" {
				t.Errorf("Highlights mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetails(t *testing.T) {
	if diff := cmp.Diff([]string{"boom"}, Details(types.TaskRecord{Status: types.TaskStatusError, Error: "boom"})); diff != "" {
		t.Errorf("error details (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"failed"}, Details(types.TaskRecord{Status: types.TaskStatusError})); diff != "" {
		t.Errorf("error without message (-want +got):\n%s", diff)
	}
	got := Details(success(`{"Rating":4.5,"articles":[]}`))
	if diff := cmp.Diff([]string{"rating 4.50", "0 articles"}, got); diff != "" {
		t.Errorf("success details (-want +got):\n%s", diff)
	}
}

func TestCompletedIn(t *testing.T) {
	tests := []struct {
		secs *float64
		want string
	}{
		{nil, ""},
		{ptr(0), ""},
		{ptr(-1), ""},
		{ptr(2.5), "completed in 2.50s"},
		{ptr(0.004), "completed in 0.00s"},
	}
	for _, tt := range tests {
		if got := CompletedIn(types.TaskRecord{ElapsedSeconds: tt.secs}); got != tt.want {
			t.Errorf("CompletedIn(%v) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(nil); got != "-" {
		t.Errorf("FormatValue(nil) = %q", got)
	}
	if got := FormatValue(ptr(7.125)); got != "7.12" && got != "7.13" {
		t.Errorf("FormatValue(7.125) = %q", got)
	}
}

func success(payload string) types.TaskRecord {
	return types.TaskRecord{TaskID: "t", Status: types.TaskStatusSuccess, Payload: types.Payload(payload)}
}
